package ftp

import "io"

// FileSystem is the local filesystem surface the Dispatcher needs to open,
// probe and name files while starting/running downloads and uploads. A
// concrete implementation lives in package localfs.
type FileSystem interface {
	Exists(path string) bool
	FileSize(path string) (uint32, error)
	OpenForWrite(path string) (io.WriteCloser, error)
	OpenForRead(path string) (io.ReadCloser, error)
	Basename(path string) string
	Join(dir, name string) string
}

// CallbackExecutor runs a user callback on a goroutine distinct from the
// transport receive/timer goroutines, so application code never runs while
// the RequestQueue guard is held.
type CallbackExecutor interface {
	Run(fn func())
}

// Logger is the minimal leveled-logging surface the Dispatcher uses for
// wire tracing and warnings. The client package backs it with
// github.com/wonderivan/logger; tests can pass a no-op implementation.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NopLogger discards everything. Useful in tests that don't care about
// trace output.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...interface{}) {}
func (NopLogger) Warnf(string, ...interface{})  {}
func (NopLogger) Errorf(string, ...interface{}) {}
