package ftp

import "io"

// item is the tagged-variant payload of a Job: exactly one concrete type
// is active for the job's lifetime, and the Dispatcher drives it with a
// type switch. All mutation happens under the RequestQueue's single mutex,
// never through per-field locks.
type item interface {
	isItem()
}

// DownloadCallback receives progress (ResultNext) and exactly one terminal
// result for a download job.
type DownloadCallback func(result Result, progress ProgressData)

type downloadItem struct {
	remotePath       string
	localFolder      string
	writer           io.WriteCloser
	fileSize         uint32
	bytesTransferred uint32
	lastPercent      int
	callback         DownloadCallback
}

func (*downloadItem) isItem() {}

// UploadCallback receives progress (ResultNext) and exactly one terminal
// result for an upload job.
type UploadCallback func(result Result, progress ProgressData)

type uploadItem struct {
	localPath        string
	remoteFolder     string
	remotePath       string // remoteFolder/basename(localPath), computed at kickoff
	reader           io.ReadCloser
	fileSize         uint32
	bytesTransferred uint32
	lastPercent      int
	callback         UploadCallback
}

func (*uploadItem) isItem() {}

// ListCallback receives the final directory listing.
type ListCallback func(result Result, entries []string)

type listItem struct {
	remotePath string
	entries    []string
	callback   ListCallback
}

func (*listItem) isItem() {}

// Crc32Callback receives the remote file's CRC-32.
type Crc32Callback func(result Result, checksum uint32)

type crc32Item struct {
	remotePath string
	callback   Crc32Callback
}

func (*crc32Item) isItem() {}

// ResultCallback receives a single terminal result.
type ResultCallback func(result Result)

type renameItem struct {
	fromPath string
	toPath   string
	callback ResultCallback
}

func (*renameItem) isItem() {}

type mkdirItem struct {
	path     string
	callback ResultCallback
}

func (*mkdirItem) isItem() {}

type rmdirItem struct {
	path     string
	callback ResultCallback
}

func (*rmdirItem) isItem() {}

type rmItem struct {
	path     string
	callback ResultCallback
}

func (*rmItem) isItem() {}

type resetItem struct {
	callback ResultCallback
}

func (*resetItem) isItem() {}

// Job is one user request: its current step, its wire bookkeeping for
// resend/duplicate-suppression, and the tagged item carrying its
// operation-specific state and callback. Mutated only by the Dispatcher,
// always under the RequestQueue's guard.
type Job struct {
	// ID correlates this job's log lines across retries/timeouts; it never
	// touches the wire.
	ID string

	item item

	session     uint8
	retriesLeft int
	started     bool

	lastOpcode      Opcode
	lastPayload     []byte
	lastSeenSeq     uint16
	haveLastSeenSeq bool
}

func newJob(id string, it item) *Job {
	return &Job{
		ID:          id,
		item:        it,
		retriesLeft: Retries,
	}
}

// NewDownloadJob builds a Job that downloads remotePath into localFolder,
// invoking cb with progress and exactly one terminal result.
func NewDownloadJob(id, remotePath, localFolder string, cb DownloadCallback) *Job {
	return newJob(id, &downloadItem{remotePath: remotePath, localFolder: localFolder, callback: cb})
}

// NewUploadJob builds a Job that uploads localPath into remoteFolder.
func NewUploadJob(id, localPath, remoteFolder string, cb UploadCallback) *Job {
	return newJob(id, &uploadItem{localPath: localPath, remoteFolder: remoteFolder, callback: cb})
}

// NewListJob builds a Job that lists remotePath's directory entries.
func NewListJob(id, remotePath string, cb ListCallback) *Job {
	return newJob(id, &listItem{remotePath: remotePath, callback: cb})
}

// NewCrc32Job builds a Job that computes remotePath's CRC-32.
func NewCrc32Job(id, remotePath string, cb Crc32Callback) *Job {
	return newJob(id, &crc32Item{remotePath: remotePath, callback: cb})
}

// NewRenameJob builds a Job that renames fromPath to toPath.
func NewRenameJob(id, fromPath, toPath string, cb ResultCallback) *Job {
	return newJob(id, &renameItem{fromPath: fromPath, toPath: toPath, callback: cb})
}

// NewMkdirJob builds a Job that creates a remote directory.
func NewMkdirJob(id, path string, cb ResultCallback) *Job {
	return newJob(id, &mkdirItem{path: path, callback: cb})
}

// NewRmdirJob builds a Job that removes a remote directory.
func NewRmdirJob(id, path string, cb ResultCallback) *Job {
	return newJob(id, &rmdirItem{path: path, callback: cb})
}

// NewRmJob builds a Job that removes a remote file.
func NewRmJob(id, path string, cb ResultCallback) *Job {
	return newJob(id, &rmItem{path: path, callback: cb})
}

// NewResetJob builds a Job that resets any orphaned remote session.
func NewResetJob(id string, cb ResultCallback) *Job {
	return newJob(id, &resetItem{callback: cb})
}
