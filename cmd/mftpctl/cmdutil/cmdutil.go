// Package cmdutil holds the mftpctl CLI's global flag state and the
// client construction every subcommand shares.
package cmdutil

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/prokas-nikos/mftp/client"
	"github.com/prokas-nikos/mftp/localfs"
	"github.com/prokas-nikos/mftp/transport"
)

// GlobalFlags mirrors the persistent CLI flags, synced from viper in the
// root command's PersistentPreRun so every subcommand reads one place.
type GlobalFlags struct {
	LocalAddr       string
	RemoteAddr      string
	OwnSystem       uint8
	OwnComponent    uint8
	TargetSystem    uint8
	TargetComponent uint8
	NetworkID       uint8
	Timeout         time.Duration
	Retries         int
	Root            string
	Debug           bool
}

// Flags is the process-wide CLI flag state, populated once by the root
// command before any subcommand runs.
var Flags GlobalFlags

// BindViper registers environment-variable overrides (prefix MFTP_) and
// defaults for every global flag. Called once at startup before flags are
// parsed.
func BindViper(v *viper.Viper) {
	v.SetEnvPrefix("MFTP")
	v.AutomaticEnv()

	v.SetDefault("local-addr", ":0")
	v.SetDefault("remote-addr", "127.0.0.1:14550")
	v.SetDefault("own-system", 255)
	v.SetDefault("own-component", 190)
	v.SetDefault("target-system", 1)
	v.SetDefault("target-component", 1)
	v.SetDefault("network-id", 0)
	v.SetDefault("timeout", 500*time.Millisecond)
	v.SetDefault("retries", 4)
	v.SetDefault("root", "")
	v.SetDefault("debug", false)
}

// NewClient builds a client.Client from the current GlobalFlags: a UDP
// transport bound to LocalAddr/RemoteAddr, the real local filesystem, and
// a client.Config assembled from the remaining flags.
func NewClient() (*client.Client, error) {
	t, err := transport.NewUDP(Flags.LocalAddr, Flags.RemoteAddr, Flags.OwnSystem, Flags.OwnComponent, transport.NopLogger{})
	if err != nil {
		return nil, fmt.Errorf("mftpctl: open transport: %w", err)
	}

	cfg := client.DefaultConfig()
	cfg.Timeout = Flags.Timeout
	cfg.Retries = Flags.Retries
	cfg.NetworkID = Flags.NetworkID
	cfg.OwnSystemID = Flags.OwnSystem
	cfg.OwnComponentID = Flags.OwnComponent
	cfg.TargetSystemID = Flags.TargetSystem
	cfg.TargetComponentID = Flags.TargetComponent
	cfg.RootDirectory = Flags.Root
	cfg.Debugging = Flags.Debug

	return client.New(t, localfs.New(), cfg), nil
}
