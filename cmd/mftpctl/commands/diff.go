package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prokas-nikos/mftp/cmd/mftpctl/cmdutil"
	"github.com/prokas-nikos/mftp/ftp"
)

var diffCmd = &cobra.Command{
	Use:   "diff <local-file> <remote-path>",
	Short: "Compare a local file against a remote file by checksum",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.NewClient()
		if err != nil {
			return err
		}
		defer c.Close()

		result, identical := c.AreFilesIdentical(args[0], args[1])
		if result != ftp.ResultSuccess {
			return fmt.Errorf("diff failed: %s", result)
		}
		if !identical {
			return fmt.Errorf("%s and %s differ", args[0], args[1])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s and %s are identical\n", args[0], args[1])
		return nil
	},
}
