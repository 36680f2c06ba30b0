package client

import (
	"os"
	"time"

	"github.com/prokas-nikos/mftp/ftp"
)

// Config collects everything a Client needs at construction: per-peer
// timeout/retry budget, bus addressing, the remote root directory prefix,
// and debug tracing.
type Config struct {
	// Timeout is the per-step retry timer, restarted on every outbound
	// payload. Defaults to 500ms, sized for loopback and local links;
	// radio links want seconds.
	Timeout time.Duration

	// Retries is the per-step attempt budget, first send included, before
	// a terminal Timeout. Defaults to ftp.Retries (4).
	Retries int

	// NetworkID is the outer network id byte carried on every send.
	NetworkID uint8

	// OwnSystemID/OwnComponentID record this client's own bus identity.
	// New does not read them; inbound datagrams are filtered by the
	// transport against the ids it was built with.
	OwnSystemID    uint8
	OwnComponentID uint8

	// TargetSystemID/TargetComponentID address the remote file-transfer
	// server. TargetComponentID is overridable via SetTargetComponentID.
	TargetSystemID    uint8
	TargetComponentID uint8

	// RootDirectory, if set, is prepended to remote paths the user
	// supplies that are not already under it (see SetRootDirectory).
	RootDirectory string

	// Debugging enables wire-trace logging. Seeded from
	// MAVSDK_FTP_DEBUGGING=1 by DefaultConfig, overridable afterward.
	Debugging bool
}

// DefaultConfig returns the stock configuration. The debug flag is seeded
// from the environment here, once, and never read again afterward.
func DefaultConfig() Config {
	return Config{
		Timeout:           500 * time.Millisecond,
		Retries:           ftp.Retries,
		NetworkID:         0,
		TargetSystemID:    1,
		TargetComponentID: 1, // the autopilot's usual component id
		Debugging:         os.Getenv("MAVSDK_FTP_DEBUGGING") == "1",
	}
}
