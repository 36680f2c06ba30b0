package ftp

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/prokas-nikos/mftp/myioutil"
)

// Sender transmits one already-encoded payload to the peer. Addressing
// (system/component ids, network id) is the concern of whatever sits
// between the Dispatcher and the transport; the Dispatcher only ever hands
// it bytes.
type Sender func(payload []byte) error

// Dispatcher is the core protocol engine: it consumes incoming decoded
// payloads and timer events, advances the head job's step, emits the next
// outbound payload, and resolves the user callback on completion or fatal
// error. Every exported entry point first acquires the RequestQueue guard.
type Dispatcher struct {
	queue *RequestQueue
	send  Sender
	fs    FileSystem
	exec  CallbackExecutor
	log   Logger

	timeout time.Duration
	retries int
	timer   *timer

	// outSeq is this Dispatcher's outbound sequence counter. It is only
	// ever touched while the queue guard is held, so it needs no lock of
	// its own.
	outSeq uint16
}

// NewDispatcher builds a Dispatcher bound to queue. The per-step timer it
// creates re-enters the dispatcher through onTimerFire whenever a response
// is overdue.
func NewDispatcher(queue *RequestQueue, send Sender, fs FileSystem, exec CallbackExecutor, log Logger, timeout time.Duration) *Dispatcher {
	d := &Dispatcher{
		queue:   queue,
		send:    send,
		fs:      fs,
		exec:    exec,
		log:     log,
		timeout: timeout,
		retries: Retries,
	}
	d.timer = newTimer(timeout, d.onTimerFire)
	return d
}

// SetRetries overrides the per-step retry budget new jobs are given and
// that a successful ACK resets a job to. n <= 0 restores the package
// default (Retries).
func (d *Dispatcher) SetRetries(n int) {
	g := d.queue.Lock()
	defer g.Unlock()
	if n <= 0 {
		n = Retries
	}
	d.retries = n
}

// SetStartSeq seeds the outbound sequence counter. Exposed so tests can
// place the counter right before the 16-bit wrap-around boundary.
func (d *Dispatcher) SetStartSeq(seq uint16) {
	g := d.queue.Lock()
	defer g.Unlock()
	d.outSeq = seq
}

// Submit appends a job to the queue and starts it immediately if the queue
// was idle.
func (d *Dispatcher) Submit(j *Job) {
	g := d.queue.Lock()
	defer g.Unlock()
	j.retriesLeft = d.retries
	g.PushBack(j)
	d.startHeadIfIdle(g)
}

// nextSeq returns the next outbound sequence number. Must be called with
// the guard held.
func (d *Dispatcher) nextSeq() uint16 {
	seq := d.outSeq
	d.outSeq++
	return seq
}

func nulTerminate(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// sendHeader encodes h+data, transmits it, starts the timer, and records it
// as the job's last-sent payload for verbatim resend on timeout.
func (d *Dispatcher) sendHeader(job *Job, h Header, data []byte) error {
	h.ReqOpcode = OpNone
	h.BurstComplete = 0
	encoded, err := Encode(h, data)
	if err != nil {
		return err
	}
	job.lastOpcode = h.Opcode
	job.lastPayload = encoded
	if err := d.send(encoded); err != nil {
		return err
	}
	d.timer.start()
	return nil
}

// resend transmits job.lastPayload byte-for-byte (same seq_number) and
// restarts the timer.
func (d *Dispatcher) resend(job *Job) error {
	if err := d.send(job.lastPayload); err != nil {
		return err
	}
	d.timer.start()
	return nil
}

// startHeadIfIdle starts the head job if it exists and hasn't started yet.
// Kicking off a job may finish it synchronously (a local precondition
// failure), in which case this loops to start whatever is now at the head.
func (d *Dispatcher) startHeadIfIdle(g *Guard) {
	for {
		job := g.Front()
		if job == nil || job.started {
			return
		}
		job.started = true
		if d.kickoff(g, job) {
			return
		}
		// kickoff already finished and popped the job; loop to try the
		// new head.
	}
}

// kickoff performs the operation's start-up step (§4.4.1). It returns true
// if the job is now awaiting a response, false if it already ran to a
// terminal result (and was popped).
func (d *Dispatcher) kickoff(g *Guard, job *Job) bool {
	switch it := job.item.(type) {
	case *downloadItem:
		if len(it.remotePath)+1 > MaxData {
			d.finishDownload(g, job, it, ResultInvalidParameter)
			return false
		}
		localPath := d.fs.Join(it.localFolder, d.fs.Basename(it.remotePath))
		w, err := d.fs.OpenForWrite(localPath)
		if err != nil {
			d.log.Warnf("ftp: job %s could not open %q for write: %v", job.ID, localPath, err)
			d.finishDownload(g, job, it, ResultFileIoError)
			return false
		}
		it.writer = w
		it.lastPercent = -1
		h := Header{SeqNumber: d.nextSeq(), Session: 0, Opcode: OpOpenRO, Offset: 0}
		if err := d.sendHeader(job, h, nulTerminate(it.remotePath)); err != nil {
			d.log.Errorf("ftp: job %s send OPEN_RO failed: %v", job.ID, err)
			d.finishDownload(g, job, it, ResultProtocolError)
			return false
		}
		return true

	case *uploadItem:
		if !d.fs.Exists(it.localPath) {
			d.finishUpload(g, job, it, ResultFileDoesNotExist)
			return false
		}
		r, err := d.fs.OpenForRead(it.localPath)
		if err != nil {
			d.finishUpload(g, job, it, ResultFileIoError)
			return false
		}
		size, err := d.fs.FileSize(it.localPath)
		if err != nil {
			_ = r.Close()
			d.finishUpload(g, job, it, ResultFileIoError)
			return false
		}
		remotePath := it.remoteFolder + "/" + d.fs.Basename(it.localPath)
		if len(remotePath) >= MaxData {
			_ = r.Close()
			d.finishUpload(g, job, it, ResultInvalidParameter)
			return false
		}
		it.reader = r
		it.fileSize = size
		it.remotePath = remotePath
		it.lastPercent = -1
		h := Header{SeqNumber: d.nextSeq(), Session: 0, Opcode: OpOpenWO, Offset: 0}
		if err := d.sendHeader(job, h, nulTerminate(remotePath)); err != nil {
			d.log.Errorf("ftp: job %s send OPEN_WO failed: %v", job.ID, err)
			d.finishUpload(g, job, it, ResultProtocolError)
			return false
		}
		return true

	case *listItem:
		if len(it.remotePath)+1 > MaxData {
			d.finishList(g, job, it, ResultInvalidParameter, nil)
			return false
		}
		it.entries = nil
		h := Header{SeqNumber: d.nextSeq(), Session: 0, Opcode: OpList, Offset: 0}
		if err := d.sendHeader(job, h, nulTerminate(it.remotePath)); err != nil {
			d.log.Errorf("ftp: job %s send LIST failed: %v", job.ID, err)
			d.finishList(g, job, it, ResultProtocolError, nil)
			return false
		}
		return true

	case *crc32Item:
		if len(it.remotePath)+1 > MaxData {
			d.finishCrc32(g, job, it, ResultInvalidParameter, 0)
			return false
		}
		h := Header{SeqNumber: d.nextSeq(), Session: 0, Opcode: OpCalcCRC32, Offset: 0}
		if err := d.sendHeader(job, h, nulTerminate(it.remotePath)); err != nil {
			d.log.Errorf("ftp: job %s send CALC_CRC32 failed: %v", job.ID, err)
			d.finishCrc32(g, job, it, ResultProtocolError, 0)
			return false
		}
		return true

	case *renameItem:
		if len(it.fromPath)+1+len(it.toPath)+1 > MaxData {
			d.finishSimple(g, job, it.callback, ResultInvalidParameter)
			return false
		}
		data := append(nulTerminate(it.fromPath), nulTerminate(it.toPath)...)
		h := Header{SeqNumber: d.nextSeq(), Session: 0, Opcode: OpRename, Offset: 0}
		if err := d.sendHeader(job, h, data); err != nil {
			d.log.Errorf("ftp: job %s send RENAME failed: %v", job.ID, err)
			d.finishSimple(g, job, it.callback, ResultProtocolError)
			return false
		}
		return true

	case *mkdirItem:
		return d.kickoffSingleShot(g, job, OpCreateDir, it.path, it.callback)

	case *rmdirItem:
		return d.kickoffSingleShot(g, job, OpRemoveDir, it.path, it.callback)

	case *rmItem:
		return d.kickoffSingleShot(g, job, OpRemove, it.path, it.callback)

	case *resetItem:
		h := Header{SeqNumber: d.nextSeq(), Session: job.session, Opcode: OpReset, Offset: 0}
		if err := d.sendHeader(job, h, nil); err != nil {
			d.log.Errorf("ftp: job %s send RESET failed: %v", job.ID, err)
			d.finishSimple(g, job, it.callback, ResultProtocolError)
			return false
		}
		return true

	default:
		panic(fmt.Sprintf("ftp: unknown job item type %T", job.item))
	}
}

// kickoffSingleShot starts a one-request command (mkdir, rmdir, rm): path
// precheck, one payload, done on the ack. Returns false if the job already
// ran to a terminal result locally.
func (d *Dispatcher) kickoffSingleShot(g *Guard, job *Job, opcode Opcode, path string, cb ResultCallback) bool {
	if len(path)+1 > MaxData {
		d.finishSimple(g, job, cb, ResultInvalidParameter)
		return false
	}
	h := Header{SeqNumber: d.nextSeq(), Session: 0, Opcode: opcode, Offset: 0}
	if err := d.sendHeader(job, h, nulTerminate(path)); err != nil {
		d.log.Errorf("ftp: job %s send opcode %d failed: %v", job.ID, opcode, err)
		d.finishSimple(g, job, cb, ResultProtocolError)
		return false
	}
	return true
}

// OnIncoming decodes and processes one received message body. Stale
// payloads (wrong req_opcode or a sequence number older than the last one
// seen) and duplicate acks (matching last-seen sequence number) are
// silently dropped.
func (d *Dispatcher) OnIncoming(raw []byte) {
	g := d.queue.Lock()
	defer g.Unlock()

	job := g.Front()
	if job == nil {
		return
	}

	p, err := Decode(raw)
	if err != nil {
		d.log.Warnf("ftp: dropping malformed payload: %v", err)
		return
	}

	if p.ReqOpcode != job.lastOpcode {
		// Stale or crossed response for a step we've moved past.
		return
	}
	if job.haveLastSeenSeq && job.lastSeenSeq == p.SeqNumber {
		// Duplicate ack/nak; the peer may resend if its own ack was lost.
		return
	}
	if job.haveLastSeenSeq && seqLT(p.SeqNumber, job.lastSeenSeq) {
		// Ack from several steps ago, long since acted on.
		return
	}
	job.lastSeenSeq = p.SeqNumber
	job.haveLastSeenSeq = true

	switch p.Opcode {
	case OpAck:
		job.retriesLeft = d.retries
		d.handleAck(g, job, p)
	case OpNak:
		d.timer.stop()
		result := resultFromNak(p.Data)
		d.finishAny(g, job, result)
	default:
		d.log.Warnf("ftp: job %s unexpected response opcode %d", job.ID, p.Opcode)
	}
}

func (d *Dispatcher) handleAck(g *Guard, job *Job, p Payload) {
	switch it := job.item.(type) {
	case *downloadItem:
		d.continueDownload(g, job, it, p)
	case *uploadItem:
		d.continueUpload(g, job, it, p)
	case *listItem:
		d.continueList(g, job, it, p)
	case *crc32Item:
		if job.lastOpcode == OpCalcCRC32 {
			if len(p.Data) < 4 {
				d.finishCrc32(g, job, it, ResultProtocolError, 0)
				return
			}
			checksum := binary.LittleEndian.Uint32(p.Data[0:4])
			d.finishCrc32(g, job, it, ResultSuccess, checksum)
		}
	case *renameItem:
		d.finishSimple(g, job, it.callback, ResultSuccess)
	case *mkdirItem:
		d.finishSimple(g, job, it.callback, ResultSuccess)
	case *rmdirItem:
		d.finishSimple(g, job, it.callback, ResultSuccess)
	case *rmItem:
		d.finishSimple(g, job, it.callback, ResultSuccess)
	case *resetItem:
		d.finishSimple(g, job, it.callback, ResultSuccess)
	}
}

func (d *Dispatcher) continueDownload(g *Guard, job *Job, it *downloadItem, p Payload) {
	switch job.lastOpcode {
	case OpOpenRO:
		if len(p.Data) < 4 {
			d.finishDownload(g, job, it, ResultProtocolError)
			return
		}
		it.fileSize = binary.LittleEndian.Uint32(p.Data[0:4])
		job.session = p.Session
		if it.fileSize == 0 {
			if err := d.sendTerminate(job, job.session); err != nil {
				d.finishDownload(g, job, it, ResultProtocolError)
			}
			return
		}
		if err := d.sendReadRequest(job, job.session, 0, it.fileSize); err != nil {
			d.log.Errorf("ftp: job %s send READ failed: %v", job.ID, err)
			d.finishDownload(g, job, it, ResultProtocolError)
		}

	case OpRead:
		if _, err := it.writer.Write(p.Data); err != nil {
			d.log.Errorf("ftp: job %s local write failed: %v", job.ID, err)
			d.finishDownload(g, job, it, ResultFileIoError)
			return
		}
		it.bytesTransferred += uint32(len(p.Data))
		d.reportDownloadProgress(job, it)

		if it.bytesTransferred < it.fileSize {
			remaining := it.fileSize - it.bytesTransferred
			if err := d.sendReadRequest(job, job.session, it.bytesTransferred, remaining); err != nil {
				d.log.Errorf("ftp: job %s send READ failed: %v", job.ID, err)
				d.finishDownload(g, job, it, ResultProtocolError)
			}
		} else if err := d.sendTerminate(job, job.session); err != nil {
			d.finishDownload(g, job, it, ResultProtocolError)
		}

	case OpTerminate:
		job.session = 0
		d.finishDownload(g, job, it, ResultSuccess)
	}
}

func (d *Dispatcher) continueUpload(g *Guard, job *Job, it *uploadItem, p Payload) {
	switch job.lastOpcode {
	case OpOpenWO:
		job.session = p.Session
		d.sendNextWriteChunk(g, job, it)

	case OpWrite:
		it.bytesTransferred += uint32(job.lastPayload[4])
		d.reportUploadProgress(job, it)
		if it.bytesTransferred < it.fileSize {
			d.sendNextWriteChunk(g, job, it)
		} else if err := d.sendTerminate(job, job.session); err != nil {
			d.finishUpload(g, job, it, ResultProtocolError)
		}

	case OpTerminate:
		job.session = 0
		d.finishUpload(g, job, it, ResultSuccess)
	}
}

func (d *Dispatcher) sendNextWriteChunk(g *Guard, job *Job, it *uploadItem) {
	remaining := it.fileSize - it.bytesTransferred
	size := remaining
	if size > MaxData {
		size = MaxData
	}
	buf := make([]byte, size)
	n, err := myioutil.ReadUpTo(it.reader, buf)
	if err != nil {
		d.log.Errorf("ftp: job %s local read failed: %v", job.ID, err)
		d.finishUpload(g, job, it, ResultFileIoError)
		return
	}
	h := Header{SeqNumber: d.nextSeq(), Session: job.session, Opcode: OpWrite, Offset: it.bytesTransferred}
	if err := d.sendHeader(job, h, buf[:n]); err != nil {
		d.log.Errorf("ftp: job %s send WRITE failed: %v", job.ID, err)
		d.finishUpload(g, job, it, ResultProtocolError)
	}
}

func (d *Dispatcher) continueList(g *Guard, job *Job, it *listItem, p Payload) {
	if job.lastOpcode != OpList {
		return
	}
	entries := splitEntries(p.Data)
	if len(entries) > 0 {
		it.entries = append(it.entries, entries...)
		h := Header{SeqNumber: d.nextSeq(), Session: 0, Opcode: OpList, Offset: uint32(len(it.entries))}
		if err := d.sendHeader(job, h, nulTerminate(it.remotePath)); err != nil {
			d.log.Errorf("ftp: job %s send LIST failed: %v", job.ID, err)
			d.finishList(g, job, it, ResultProtocolError, it.entries)
		}
		return
	}
	d.finishList(g, job, it, ResultSuccess, it.entries)
}

func splitEntries(data []byte) []string {
	var entries []string
	start := 0
	for i, b := range data {
		if b == 0 {
			if i > start {
				entries = append(entries, string(data[start:i]))
			}
			start = i + 1
		}
	}
	return entries
}

// sendReadRequest issues a READ for up to want bytes at offset. A READ
// request carries no body; the Size field itself is the request, telling
// the peer how much to read back, so it is built directly through Encode
// rather than patched after the fact.
func (d *Dispatcher) sendReadRequest(job *Job, session uint8, offset, want uint32) error {
	if want > MaxData {
		want = MaxData
	}
	h := Header{SeqNumber: d.nextSeq(), Session: session, Opcode: OpRead, Offset: offset}
	return d.sendHeader(job, h, make([]byte, want))
}

func (d *Dispatcher) sendTerminate(job *Job, session uint8) error {
	h := Header{SeqNumber: d.nextSeq(), Session: session, Opcode: OpTerminate, Offset: 0}
	if err := d.sendHeader(job, h, nil); err != nil {
		d.log.Errorf("ftp: job %s send TERMINATE failed: %v", job.ID, err)
		return err
	}
	return nil
}

// onTimerFire is the timer's callback. It runs on the timer goroutine, so
// an incoming ack may win the race for the queue guard, finish the job and
// arm a new registration before this fire gets the lock; such a stale fire
// carries an old generation and is dropped.
func (d *Dispatcher) onTimerFire(gen uint64) {
	g := d.queue.Lock()
	defer g.Unlock()
	if !d.timer.live(gen) {
		return
	}
	d.timeoutLocked(g)
}

// OnTimeout forces a timeout step for the head job, as if the retry timer
// had just fired.
func (d *Dispatcher) OnTimeout() {
	g := d.queue.Lock()
	defer g.Unlock()
	d.timeoutLocked(g)
}

func (d *Dispatcher) timeoutLocked(g *Guard) {
	job := g.Front()
	if job == nil {
		return
	}

	job.retriesLeft--
	if job.retriesLeft <= 0 {
		d.finishAny(g, job, ResultTimeout)
		return
	}
	d.log.Debugf("ftp: job %s timeout, %d retries left, resending opcode %d", job.ID, job.retriesLeft, job.lastOpcode)
	if err := d.resend(job); err != nil {
		d.log.Errorf("ftp: job %s resend failed: %v", job.ID, err)
		d.finishAny(g, job, ResultProtocolError)
	}
}

// reportDownloadProgress invokes a Next callback, throttled to at most one
// delivery per whole-percent change of bytes_transferred/total_bytes.
func (d *Dispatcher) reportDownloadProgress(job *Job, it *downloadItem) {
	percent := percentOf(it.bytesTransferred, it.fileSize)
	if percent == it.lastPercent {
		return
	}
	it.lastPercent = percent
	cb := it.callback
	progress := ProgressData{BytesTransferred: it.bytesTransferred, TotalBytes: it.fileSize}
	d.exec.Run(func() { cb(ResultNext, progress) })
}

func (d *Dispatcher) reportUploadProgress(job *Job, it *uploadItem) {
	percent := percentOf(it.bytesTransferred, it.fileSize)
	if percent == it.lastPercent {
		return
	}
	it.lastPercent = percent
	cb := it.callback
	progress := ProgressData{BytesTransferred: it.bytesTransferred, TotalBytes: it.fileSize}
	d.exec.Run(func() { cb(ResultNext, progress) })
}

func percentOf(transferred, total uint32) int {
	if total == 0 {
		return 100
	}
	return int(100 * uint64(transferred) / uint64(total))
}

// finishAny finishes whatever kind of job is at the head with a terminal
// result carrying no extra payload (used for NAK and Timeout paths, which
// apply uniformly across job kinds).
func (d *Dispatcher) finishAny(g *Guard, job *Job, result Result) {
	switch it := job.item.(type) {
	case *downloadItem:
		d.finishDownload(g, job, it, result)
	case *uploadItem:
		d.finishUpload(g, job, it, result)
	case *listItem:
		d.finishList(g, job, it, result, it.entries)
	case *crc32Item:
		d.finishCrc32(g, job, it, result, 0)
	case *renameItem:
		d.finishSimple(g, job, it.callback, result)
	case *mkdirItem:
		d.finishSimple(g, job, it.callback, result)
	case *rmdirItem:
		d.finishSimple(g, job, it.callback, result)
	case *rmItem:
		d.finishSimple(g, job, it.callback, result)
	case *resetItem:
		d.finishSimple(g, job, it.callback, result)
	}
}

// releaseSession sends a best-effort TERMINATE for a session that is still
// open when its job dies on a local error, NAK or timeout. No ack is
// awaited; the peer's own session reaping covers the case where this one
// message is lost too.
func (d *Dispatcher) releaseSession(job *Job, result Result) {
	if result == ResultSuccess || job.session == 0 || job.lastOpcode == OpTerminate {
		return
	}
	h := Header{SeqNumber: d.nextSeq(), Session: job.session, Opcode: OpTerminate}
	if encoded, err := Encode(h, nil); err == nil {
		_ = d.send(encoded)
	}
	job.session = 0
}

func (d *Dispatcher) finishDownload(g *Guard, job *Job, it *downloadItem, result Result) {
	d.timer.stop()
	d.releaseSession(job, result)
	if it.writer != nil {
		_ = it.writer.Close()
	}
	cb := it.callback
	d.exec.Run(func() { cb(result, ProgressData{BytesTransferred: it.bytesTransferred, TotalBytes: it.fileSize}) })
	d.popAndAdvance(g)
}

func (d *Dispatcher) finishUpload(g *Guard, job *Job, it *uploadItem, result Result) {
	d.timer.stop()
	d.releaseSession(job, result)
	if it.reader != nil {
		_ = it.reader.Close()
	}
	cb := it.callback
	d.exec.Run(func() { cb(result, ProgressData{BytesTransferred: it.bytesTransferred, TotalBytes: it.fileSize}) })
	d.popAndAdvance(g)
}

func (d *Dispatcher) finishList(g *Guard, job *Job, it *listItem, result Result, entries []string) {
	d.timer.stop()
	cb := it.callback
	d.exec.Run(func() { cb(result, entries) })
	d.popAndAdvance(g)
}

func (d *Dispatcher) finishCrc32(g *Guard, job *Job, it *crc32Item, result Result, checksum uint32) {
	d.timer.stop()
	cb := it.callback
	d.exec.Run(func() { cb(result, checksum) })
	d.popAndAdvance(g)
}

func (d *Dispatcher) finishSimple(g *Guard, job *Job, cb ResultCallback, result Result) {
	d.timer.stop()
	d.exec.Run(func() { cb(result) })
	d.popAndAdvance(g)
}

func (d *Dispatcher) popAndAdvance(g *Guard) {
	g.PopFront()
	d.startHeadIfIdle(g)
}
