package client

import "github.com/wonderivan/logger"

// wireLogger backs the dispatcher's ftp.Logger with wonderivan/logger.
// Debug-level wire tracing is gated behind Config.Debugging (seeded from
// MAVSDK_FTP_DEBUGGING); warnings and errors (malformed payloads, local
// I/O and send failures) always print.
type wireLogger struct {
	debug bool
}

func (l wireLogger) Debugf(format string, args ...interface{}) {
	if l.debug {
		logger.Debug(format, args...)
	}
}

func (l wireLogger) Warnf(format string, args ...interface{}) {
	logger.Warn(format, args...)
}

func (l wireLogger) Errorf(format string, args ...interface{}) {
	logger.Error(format, args...)
}
