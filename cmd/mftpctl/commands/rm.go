package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prokas-nikos/mftp/cmd/mftpctl/cmdutil"
	"github.com/prokas-nikos/mftp/ftp"
)

var rmCmd = &cobra.Command{
	Use:   "rm <remote-path>",
	Short: "Remove a remote file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.NewClient()
		if err != nil {
			return err
		}
		defer c.Close()

		if result := c.RemoveFileSync(args[0]); result != ftp.ResultSuccess {
			return fmt.Errorf("rm failed: %s", result)
		}
		return nil
	},
}
