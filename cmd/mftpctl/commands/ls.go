package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"

	"github.com/prokas-nikos/mftp/cmd/mftpctl/cmdutil"
	"github.com/prokas-nikos/mftp/collectionutil"
	"github.com/prokas-nikos/mftp/ftp"
)

var (
	lsFilterPrefix string
	lsSort         bool
)

var lsCmd = &cobra.Command{
	Use:   "ls <remote-dir>",
	Short: "List a remote directory's entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.NewClient()
		if err != nil {
			return err
		}
		defer c.Close()

		result, entries := c.ListDirectorySync(args[0])
		if result != ftp.ResultSuccess {
			return fmt.Errorf("list failed: %s", result)
		}

		if lsFilterPrefix != "" {
			entries = collectionutil.Filter(entries, func(e string) bool {
				return strings.HasPrefix(e, lsFilterPrefix)
			})
		}
		if lsSort {
			slices.Sort(entries)
		}
		for _, e := range entries {
			fmt.Fprintln(cmd.OutOrStdout(), e)
		}
		return nil
	},
}

func init() {
	lsCmd.Flags().StringVar(&lsFilterPrefix, "filter", "", "only show entries whose name starts with this prefix")
	lsCmd.Flags().BoolVar(&lsSort, "sort", false, "sort entries instead of printing them in server order")
}
