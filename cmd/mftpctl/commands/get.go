package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prokas-nikos/mftp/cmd/mftpctl/cmdutil"
	"github.com/prokas-nikos/mftp/ftp"
)

var getCmd = &cobra.Command{
	Use:     "get <remote-path> <local-dir>",
	Aliases: []string{"download"},
	Short:   "Download a remote file into a local directory",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.NewClient()
		if err != nil {
			return err
		}
		defer c.Close()

		done := make(chan ftp.Result, 1)
		c.Download(args[0], args[1], func(result ftp.Result, progress ftp.ProgressData) {
			if result == ftp.ResultNext {
				fmt.Fprintf(cmd.OutOrStdout(), "\r%s  %d/%d bytes", args[0], progress.BytesTransferred, progress.TotalBytes)
				return
			}
			done <- result
		})
		result := <-done
		fmt.Fprintln(cmd.OutOrStdout())
		if result != ftp.ResultSuccess {
			return fmt.Errorf("download failed: %s", result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: done\n", args[0], args[1])
		return nil
	},
}
