package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prokas-nikos/mftp/cmd/mftpctl/cmdutil"
	"github.com/prokas-nikos/mftp/ftp"
)

var mvCmd = &cobra.Command{
	Use:     "mv <from-path> <to-path>",
	Aliases: []string{"rename"},
	Short:   "Rename or move a remote path",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.NewClient()
		if err != nil {
			return err
		}
		defer c.Close()

		if result := c.RenameSync(args[0], args[1]); result != ftp.ResultSuccess {
			return fmt.Errorf("rename failed: %s", result)
		}
		return nil
	},
}
