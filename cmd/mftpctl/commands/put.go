package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prokas-nikos/mftp/cmd/mftpctl/cmdutil"
	"github.com/prokas-nikos/mftp/ftp"
)

var putCmd = &cobra.Command{
	Use:     "put <local-file> <remote-dir>",
	Aliases: []string{"upload"},
	Short:   "Upload a local file into a remote directory",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.NewClient()
		if err != nil {
			return err
		}
		defer c.Close()

		done := make(chan ftp.Result, 1)
		c.Upload(args[0], args[1], func(result ftp.Result, progress ftp.ProgressData) {
			if result == ftp.ResultNext {
				fmt.Fprintf(cmd.OutOrStdout(), "\r%s  %d/%d bytes", args[0], progress.BytesTransferred, progress.TotalBytes)
				return
			}
			done <- result
		})
		result := <-done
		fmt.Fprintln(cmd.OutOrStdout())
		if result != ftp.ResultSuccess {
			return fmt.Errorf("upload failed: %s", result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: done\n", args[0], args[1])
		return nil
	},
}
