// Package commands implements the mftpctl CLI's subcommands.
package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prokas-nikos/mftp/cmd/mftpctl/cmdutil"
)

var v = viper.New()

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mftpctl",
	Short: "mftpctl - file-transfer client over a command/telemetry datagram bus",
	Long: `mftpctl drives the reliable request/response file-transfer protocol
carried as encapsulated payloads over a point-to-point command/telemetry
message bus between a ground station and a remote vehicle.

Use "mftpctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return syncFlags(cmd)
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cmdutil.BindViper(v)

	flags := rootCmd.PersistentFlags()
	flags.String("local-addr", v.GetString("local-addr"), "local UDP address to bind (host:port or :port)")
	flags.String("remote-addr", v.GetString("remote-addr"), "remote peer UDP address (host:port)")
	flags.Uint8("own-system", uint8(v.GetUint32("own-system")), "this client's own system id")
	flags.Uint8("own-component", uint8(v.GetUint32("own-component")), "this client's own component id")
	flags.Uint8("target-system", uint8(v.GetUint32("target-system")), "remote system id")
	flags.Uint8("target-component", uint8(v.GetUint32("target-component")), "remote file-transfer server component id")
	flags.Uint8("network-id", uint8(v.GetUint32("network-id")), "outer network id byte")
	flags.Duration("timeout", v.GetDuration("timeout"), "per-step response timeout")
	flags.Int("retries", v.GetInt("retries"), "per-step retry budget before Timeout")
	flags.String("root", v.GetString("root"), "remote root directory prefix")
	flags.Bool("debug", v.GetBool("debug"), "enable wire-trace debug logging")

	_ = v.BindPFlags(flags)

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(rmdirCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(cksumCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(resetCmd)
}

// syncFlags copies the resolved (flag > env > default) viper values into
// cmdutil.Flags once per invocation, so subcommands read a single struct
// instead of consulting viper themselves.
func syncFlags(cmd *cobra.Command) error {
	cmdutil.Flags = cmdutil.GlobalFlags{
		LocalAddr:       v.GetString("local-addr"),
		RemoteAddr:      v.GetString("remote-addr"),
		OwnSystem:       uint8(v.GetUint32("own-system")),
		OwnComponent:    uint8(v.GetUint32("own-component")),
		TargetSystem:    uint8(v.GetUint32("target-system")),
		TargetComponent: uint8(v.GetUint32("target-component")),
		NetworkID:       uint8(v.GetUint32("network-id")),
		Timeout:         v.GetDuration("timeout"),
		Retries:         v.GetInt("retries"),
		Root:            v.GetString("root"),
		Debug:           v.GetBool("debug"),
	}
	return nil
}
