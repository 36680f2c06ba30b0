// Package client wires the ftp package's Request Queue, Dispatcher and
// Codec to a concrete Transport, local filesystem and callback executor,
// and exposes the public client surface: async calls that never block the
// caller, plus blocking wrappers where a caller usually wants the answer
// in line (listing, checksums, directory/file commands).
package client

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/prokas-nikos/mftp/ftp"
	"github.com/prokas-nikos/mftp/localfs"
	"github.com/prokas-nikos/mftp/transport"
)

// Client is the user-facing file-transfer client. One Client owns one
// RequestQueue/Dispatcher pair, so at most one remote session is ever in
// flight and it always belongs to the head job.
type Client struct {
	cfg Config

	mu      sync.RWMutex
	rootDir string
	target  uint8

	queue      *ftp.RequestQueue
	dispatcher *ftp.Dispatcher
	transport  transport.Transport
	fs         localfs.FS
	exec       *executor

	wg sync.WaitGroup
}

// New builds a Client bound to t and fs. fs is the local filesystem the
// dispatcher opens download targets and upload sources through, normally
// localfs.New().
func New(t transport.Transport, fs localfs.FS, cfg Config) *Client {
	queue := &ftp.RequestQueue{}
	// One worker: user callbacks run in the order the dispatcher scheduled
	// them, so jobs complete in submission order.
	exec := newExecutor(1)
	log := wireLogger{debug: cfg.Debugging}

	c := &Client{
		cfg:       cfg,
		rootDir:   cfg.RootDirectory,
		target:    cfg.TargetComponentID,
		queue:     queue,
		transport: t,
		fs:        fs,
		exec:      exec,
	}

	send := func(payload []byte) error {
		c.mu.RLock()
		target := c.target
		c.mu.RUnlock()
		return t.Send(context.Background(), transport.Message{
			TargetSystem:    cfg.TargetSystemID,
			TargetComponent: target,
			NetworkID:       cfg.NetworkID,
			Payload:         payload,
		})
	}

	d := ftp.NewDispatcher(queue, send, fs, exec, log, cfg.Timeout)
	d.SetRetries(cfg.Retries)
	c.dispatcher = d

	c.wg.Add(1)
	go c.recvLoop()

	return c
}

func (c *Client) recvLoop() {
	defer c.wg.Done()
	for msg := range c.transport.Recv() {
		c.dispatcher.OnIncoming(msg.Payload)
	}
}

// Close tears down the receive goroutine, the callback executor and the
// underlying transport. It does not wait for queued jobs to finish; callers
// should drain those first if a clean shutdown matters.
func (c *Client) Close() error {
	err := c.transport.Close()
	c.wg.Wait()
	c.exec.Close()
	return err
}

// SetRootDirectory sets the remote directory prefix prepended to remote
// paths the user supplies afterward; a path that is already the root or
// lies under it is used as given. Purely local bookkeeping; never touches
// the wire on its own.
func (c *Client) SetRootDirectory(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rootDir = path
}

// SetTargetComponentID overrides which remote component subsequent
// requests are addressed to.
func (c *Client) SetTargetComponentID(id uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = id
}

func (c *Client) remotePath(p string) string {
	c.mu.RLock()
	root := strings.TrimRight(c.rootDir, "/")
	c.mu.RUnlock()
	if root == "" || strings.HasPrefix(p, root+"/") || p == root {
		return p
	}
	if strings.HasPrefix(p, "/") {
		return root + p
	}
	return root + "/" + p
}

func newJobID() string {
	return uuid.NewString()
}

// Download asynchronously fetches remotePath into localFolder. cb receives
// repeated ResultNext progress and exactly one terminal result.
func (c *Client) Download(remotePath, localFolder string, cb ftp.DownloadCallback) {
	job := ftp.NewDownloadJob(newJobID(), c.remotePath(remotePath), localFolder, cb)
	c.dispatcher.Submit(job)
}

// Upload asynchronously pushes localPath into remoteFolder.
func (c *Client) Upload(localPath, remoteFolder string, cb ftp.UploadCallback) {
	job := ftp.NewUploadJob(newJobID(), localPath, c.remotePath(remoteFolder), cb)
	c.dispatcher.Submit(job)
}

// ListDirectory asynchronously lists remotePath's entries.
func (c *Client) ListDirectory(remotePath string, cb ftp.ListCallback) {
	job := ftp.NewListJob(newJobID(), c.remotePath(remotePath), cb)
	c.dispatcher.Submit(job)
}

// ListDirectorySync blocks the caller until the listing completes.
func (c *Client) ListDirectorySync(remotePath string) (ftp.Result, []string) {
	type outcome struct {
		result  ftp.Result
		entries []string
	}
	ch := make(chan outcome, 1)
	c.ListDirectory(remotePath, func(result ftp.Result, entries []string) {
		ch <- outcome{result, entries}
	})
	o := <-ch
	return o.result, o.entries
}

// Crc32 asynchronously computes remotePath's CRC-32.
func (c *Client) Crc32(remotePath string, cb ftp.Crc32Callback) {
	job := ftp.NewCrc32Job(newJobID(), c.remotePath(remotePath), cb)
	c.dispatcher.Submit(job)
}

// Crc32Sync blocks the caller until the checksum is computed.
func (c *Client) Crc32Sync(remotePath string) (ftp.Result, uint32) {
	type outcome struct {
		result   ftp.Result
		checksum uint32
	}
	ch := make(chan outcome, 1)
	c.Crc32(remotePath, func(result ftp.Result, checksum uint32) {
		ch <- outcome{result, checksum}
	})
	o := <-ch
	return o.result, o.checksum
}

// CreateDirectory asynchronously creates a remote directory.
func (c *Client) CreateDirectory(path string, cb ftp.ResultCallback) {
	job := ftp.NewMkdirJob(newJobID(), c.remotePath(path), cb)
	c.dispatcher.Submit(job)
}

// CreateDirectorySync blocks for the result.
func (c *Client) CreateDirectorySync(path string) ftp.Result {
	return c.waitResult(func(cb ftp.ResultCallback) { c.CreateDirectory(path, cb) })
}

// RemoveDirectory asynchronously removes a remote directory.
func (c *Client) RemoveDirectory(path string, cb ftp.ResultCallback) {
	job := ftp.NewRmdirJob(newJobID(), c.remotePath(path), cb)
	c.dispatcher.Submit(job)
}

// RemoveDirectorySync blocks for the result.
func (c *Client) RemoveDirectorySync(path string) ftp.Result {
	return c.waitResult(func(cb ftp.ResultCallback) { c.RemoveDirectory(path, cb) })
}

// RemoveFile asynchronously removes a remote file.
func (c *Client) RemoveFile(path string, cb ftp.ResultCallback) {
	job := ftp.NewRmJob(newJobID(), c.remotePath(path), cb)
	c.dispatcher.Submit(job)
}

// RemoveFileSync blocks for the result.
func (c *Client) RemoveFileSync(path string) ftp.Result {
	return c.waitResult(func(cb ftp.ResultCallback) { c.RemoveFile(path, cb) })
}

// Rename asynchronously renames fromPath to toPath, both resolved against
// the current root directory.
func (c *Client) Rename(fromPath, toPath string, cb ftp.ResultCallback) {
	job := ftp.NewRenameJob(newJobID(), c.remotePath(fromPath), c.remotePath(toPath), cb)
	c.dispatcher.Submit(job)
}

// RenameSync blocks for the result.
func (c *Client) RenameSync(fromPath, toPath string) ftp.Result {
	return c.waitResult(func(cb ftp.ResultCallback) { c.Rename(fromPath, toPath, cb) })
}

// Reset asynchronously asks the peer to release any orphaned session.
func (c *Client) Reset(cb ftp.ResultCallback) {
	job := ftp.NewResetJob(newJobID(), cb)
	c.dispatcher.Submit(job)
}

// ResetSync blocks for the result.
func (c *Client) ResetSync() ftp.Result {
	return c.waitResult(func(cb ftp.ResultCallback) { c.Reset(cb) })
}

// AreFilesIdentical composes a local CRC-32 with CALC_CRC32 on remotePath
// and compares the two, short-circuiting on either error.
func (c *Client) AreFilesIdentical(localPath, remotePath string) (ftp.Result, bool) {
	localCRC, err := localfs.CRC32(localPath)
	if err != nil {
		return ftp.ResultFileIoError, false
	}
	result, remoteCRC := c.Crc32Sync(remotePath)
	if result != ftp.ResultSuccess {
		return result, false
	}
	return ftp.ResultSuccess, localCRC == remoteCRC
}

// AreFilesIdenticalAsync is the non-blocking form: the local checksum is
// taken up front, the remote one through the queue, and cb receives the
// comparison on the callback executor.
func (c *Client) AreFilesIdenticalAsync(localPath, remotePath string, cb func(result ftp.Result, identical bool)) {
	localCRC, err := localfs.CRC32(localPath)
	if err != nil {
		c.exec.Run(func() { cb(ftp.ResultFileIoError, false) })
		return
	}
	c.Crc32(remotePath, func(result ftp.Result, remoteCRC uint32) {
		if result != ftp.ResultSuccess {
			cb(result, false)
			return
		}
		cb(ftp.ResultSuccess, localCRC == remoteCRC)
	})
}

func (c *Client) waitResult(submit func(cb ftp.ResultCallback)) ftp.Result {
	ch := make(chan ftp.Result, 1)
	submit(func(r ftp.Result) { ch <- r })
	return <-ch
}
