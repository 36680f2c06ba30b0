package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prokas-nikos/mftp/cmd/mftpctl/cmdutil"
	"github.com/prokas-nikos/mftp/ftp"
)

var cksumCmd = &cobra.Command{
	Use:   "cksum <remote-path>",
	Short: "Compute a remote file's CRC-32",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.NewClient()
		if err != nil {
			return err
		}
		defer c.Close()

		result, checksum := c.Crc32Sync(args[0])
		if result != ftp.ResultSuccess {
			return fmt.Errorf("cksum failed: %s", result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%08x  %s\n", checksum, args[0])
		return nil
	},
}
