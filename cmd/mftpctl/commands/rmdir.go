package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prokas-nikos/mftp/cmd/mftpctl/cmdutil"
	"github.com/prokas-nikos/mftp/ftp"
)

var rmdirCmd = &cobra.Command{
	Use:   "rmdir <remote-path>",
	Short: "Remove a remote directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.NewClient()
		if err != nil {
			return err
		}
		defer c.Close()

		if result := c.RemoveDirectorySync(args[0]); result != ftp.ResultSuccess {
			return fmt.Errorf("rmdir failed: %s", result)
		}
		return nil
	},
}
