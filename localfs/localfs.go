// Package localfs is the concrete local-filesystem collaborator the
// client binds to ftp.FileSystem, plus higher-level path/checksum
// operations (Rename, CreateDirectory, CRC32, SameCRC32).
// It is a thin, direct layer over os and path/filepath:
// open with os, stat for size, surface io.ReadCloser/io.WriteCloser to the
// caller.
package localfs

import (
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/prokas-nikos/mftp/ftp"
	"github.com/prokas-nikos/mftp/myioutil"
)

// FS is the concrete ftp.FileSystem implementation, plus the extra
// operations the CLI and client façade need for directory/rename/checksum
// commands that never touch the wire.
type FS struct{}

var _ ftp.FileSystem = FS{}

// New returns a ready-to-use local filesystem collaborator.
func New() FS { return FS{} }

func (FS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (FS) FileSize(path string) (uint32, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return uint32(info.Size()), nil
}

func (FS) OpenForWrite(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

func (FS) OpenForRead(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (FS) Basename(path string) string {
	return filepath.Base(path)
}

func (FS) Join(dir, name string) string {
	return filepath.Join(dir, name)
}

// Remove deletes a single local file.
func (FS) Remove(path string) error {
	return os.Remove(path)
}

// Rename renames or moves a local file or directory.
func (FS) Rename(from, to string) error {
	return os.Rename(from, to)
}

// CreateDirectory makes a local directory, including any missing parents.
func (FS) CreateDirectory(path string) error {
	return os.MkdirAll(path, 0o755)
}

// RemoveDirectory removes an empty local directory.
func (FS) RemoveDirectory(path string) error {
	return os.Remove(path)
}

// Canonical resolves path to an absolute, cleaned form.
func (FS) Canonical(path string) (string, error) {
	return filepath.Abs(path)
}

// CreateTmpDirectory makes a fresh scratch directory under the OS temp
// root, named with the given prefix.
func (FS) CreateTmpDirectory(prefix string) (string, error) {
	return os.MkdirTemp("", prefix)
}

// CRC32 computes the IEEE CRC-32 of a local file, reading it in fixed-size
// chunks rather than loading it whole.
func CRC32(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := crc32.NewIEEE()
	if _, err := myioutil.CopyFixedSize(h, f, 32*1024); err != nil && err != io.EOF {
		return 0, err
	}
	return h.Sum32(), nil
}

// SameCRC32 reports whether the local file at path matches a CRC-32
// already known for its remote counterpart.
func SameCRC32(path string, remoteCrc uint32) (bool, error) {
	local, err := CRC32(path)
	if err != nil {
		return false, err
	}
	return local == remoteCrc, nil
}
