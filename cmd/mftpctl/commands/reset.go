package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prokas-nikos/mftp/cmd/mftpctl/cmdutil"
	"github.com/prokas-nikos/mftp/ftp"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Release any orphaned remote session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.NewClient()
		if err != nil {
			return err
		}
		defer c.Close()

		if result := c.ResetSync(); result != ftp.ResultSuccess {
			return fmt.Errorf("reset failed: %s", result)
		}
		return nil
	},
}
