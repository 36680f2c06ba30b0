package client

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prokas-nikos/mftp/ftp"
	"github.com/prokas-nikos/mftp/localfs"
	"github.com/prokas-nikos/mftp/transport"
)

// memServer is a minimal in-process file-transfer server speaking the
// payload protocol over a channel-backed Transport: enough of open/read/
// write/terminate/list/crc32 to run whole client operations end to end
// without a socket.
type memServer struct {
	mu      sync.Mutex
	files   map[string][]byte
	listing map[string][]string

	session     uint8
	openPath    string
	seq         uint16
	maxListData int
}

func newMemServer() *memServer {
	return &memServer{
		files:       map[string][]byte{},
		listing:     map[string][]string{},
		maxListData: ftp.MaxData,
	}
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

func (s *memServer) ack(req ftp.Payload, session uint8, data []byte) []byte {
	s.seq++
	h := ftp.Header{SeqNumber: s.seq, Session: session, Opcode: ftp.OpAck, ReqOpcode: req.Opcode, Offset: req.Offset}
	out, _ := ftp.Encode(h, data)
	return out
}

func (s *memServer) nak(req ftp.Payload, code ftp.NakCode, extra ...byte) []byte {
	s.seq++
	h := ftp.Header{SeqNumber: s.seq, Session: 0, Opcode: ftp.OpNak, ReqOpcode: req.Opcode}
	out, _ := ftp.Encode(h, append([]byte{byte(code)}, extra...))
	return out
}

func (s *memServer) handle(req ftp.Payload) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Opcode {
	case ftp.OpOpenRO:
		path := cstring(req.Data)
		data, ok := s.files[path]
		if !ok {
			return s.nak(req, ftp.NakFailErrno, 2)
		}
		s.session++
		s.openPath = path
		size := make([]byte, 4)
		binary.LittleEndian.PutUint32(size, uint32(len(data)))
		return s.ack(req, s.session, size)

	case ftp.OpRead:
		data := s.files[s.openPath]
		off := req.Offset
		if off >= uint32(len(data)) {
			return s.nak(req, ftp.NakEOF)
		}
		end := off + uint32(req.Size)
		if end > uint32(len(data)) {
			end = uint32(len(data))
		}
		return s.ack(req, req.Session, data[off:end])

	case ftp.OpOpenWO:
		path := cstring(req.Data)
		s.session++
		s.openPath = path
		s.files[path] = nil
		return s.ack(req, s.session, nil)

	case ftp.OpWrite:
		data := s.files[s.openPath]
		if int(req.Offset) != len(data) {
			return s.nak(req, ftp.NakInvalidDataSize)
		}
		s.files[s.openPath] = append(data, req.Data...)
		return s.ack(req, req.Session, nil)

	case ftp.OpTerminate, ftp.OpReset:
		s.openPath = ""
		return s.ack(req, 0, nil)

	case ftp.OpList:
		path := cstring(req.Data)
		entries, ok := s.listing[path]
		if !ok {
			return s.nak(req, ftp.NakFileDoesNotExist)
		}
		var data []byte
		for i := int(req.Offset); i < len(entries); i++ {
			entry := append([]byte(entries[i]), 0)
			if len(data)+len(entry) > s.maxListData {
				break
			}
			data = append(data, entry...)
		}
		return s.ack(req, 0, data)

	case ftp.OpCalcCRC32:
		path := cstring(req.Data)
		data, ok := s.files[path]
		if !ok {
			return s.nak(req, ftp.NakFileDoesNotExist)
		}
		sum := make([]byte, 4)
		binary.LittleEndian.PutUint32(sum, crc32IEEE(data))
		return s.ack(req, 0, sum)

	case ftp.OpCreateDir, ftp.OpRemoveDir, ftp.OpRemove, ftp.OpRename:
		return s.ack(req, 0, nil)
	}
	return s.nak(req, ftp.NakUnknownCommand)
}

func crc32IEEE(data []byte) uint32 {
	crc := ^uint32(0)
	for _, b := range data {
		crc ^= uint32(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xEDB88320
			} else {
				crc >>= 1
			}
		}
	}
	return ^crc
}

// memTransport hands every sent payload to the server and queues its reply
// on the receive channel, standing in for the UDP loop.
type memTransport struct {
	server *memServer
	recv   chan transport.Message
	once   sync.Once
}

func newMemTransport(server *memServer) *memTransport {
	return &memTransport{server: server, recv: make(chan transport.Message, 32)}
}

func (t *memTransport) Send(ctx context.Context, msg transport.Message) error {
	req, err := ftp.Decode(msg.Payload)
	if err != nil {
		return err
	}
	reply := t.server.handle(req)
	go func() {
		select {
		case t.recv <- transport.Message{Payload: reply}:
		case <-time.After(time.Second):
		}
	}()
	return nil
}

func (t *memTransport) Recv() <-chan transport.Message { return t.recv }
func (t *memTransport) OwnIDs() (uint8, uint8)         { return 245, 190 }
func (t *memTransport) Close() error                   { t.once.Do(func() { close(t.recv) }); return nil }

func newTestClient(t *testing.T, server *memServer) *Client {
	t.Helper()
	cfg := DefaultConfig()
	// Replies are synchronous in-process; a generous timeout keeps the
	// retry path out of these tests entirely.
	cfg.Timeout = 2 * time.Second
	c := New(newMemTransport(server), localfs.New(), cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestUploadThenDownloadRoundTrip(t *testing.T) {
	server := newMemServer()
	c := newTestClient(t, server)

	dir := t.TempDir()
	src := filepath.Join(dir, "payload.bin")
	content := make([]byte, 2048)
	for i := range content {
		content[i] = byte(i * 7)
	}
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	done := make(chan ftp.Result, 1)
	c.Upload(src, "/remote", func(r ftp.Result, _ ftp.ProgressData) {
		if r != ftp.ResultNext {
			done <- r
		}
	})
	if r := <-done; r != ftp.ResultSuccess {
		t.Fatalf("upload result = %v", r)
	}
	if got := server.files["/remote/payload.bin"]; !bytes.Equal(got, content) {
		t.Fatalf("server holds %d bytes, want %d matching bytes", len(got), len(content))
	}

	outDir := filepath.Join(dir, "out")
	c.Download("/remote/payload.bin", outDir, func(r ftp.Result, _ ftp.ProgressData) {
		if r != ftp.ResultNext {
			done <- r
		}
	})
	if r := <-done; r != ftp.ResultSuccess {
		t.Fatalf("download result = %v", r)
	}
	got, err := os.ReadFile(filepath.Join(outDir, "payload.bin"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatal("downloaded bytes differ from the uploaded original")
	}
}

func TestDownloadMissingFile(t *testing.T) {
	server := newMemServer()
	c := newTestClient(t, server)

	done := make(chan ftp.Result, 1)
	c.Download("/absent.bin", t.TempDir(), func(r ftp.Result, _ ftp.ProgressData) {
		if r != ftp.ResultNext {
			done <- r
		}
	})
	if r := <-done; r != ftp.ResultFileDoesNotExist {
		t.Fatalf("result = %v, want FileDoesNotExist", r)
	}
}

func TestListDirectoryPagination(t *testing.T) {
	server := newMemServer()
	server.maxListData = 60 // force several batches
	var want []string
	for i := 0; i < 50; i++ {
		want = append(want, string(rune('a'+i%26))+"-file.bin")
	}
	server.listing["/dir"] = want
	c := newTestClient(t, server)

	result, entries := c.ListDirectorySync("/dir")
	if result != ftp.ResultSuccess {
		t.Fatalf("list result = %v", result)
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entry %d = %q, want %q", i, entries[i], want[i])
		}
	}
}

func TestAreFilesIdentical(t *testing.T) {
	server := newMemServer()
	content := []byte("compare me byte for byte")
	server.files["/remote/a.bin"] = content
	c := newTestClient(t, server)

	local := filepath.Join(t.TempDir(), "a.bin")
	if err := os.WriteFile(local, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	result, identical := c.AreFilesIdentical(local, "/remote/a.bin")
	if result != ftp.ResultSuccess || !identical {
		t.Fatalf("AreFilesIdentical = (%v, %v), want (Success, true)", result, identical)
	}

	if err := os.WriteFile(local, append(content, '!'), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	result, identical = c.AreFilesIdentical(local, "/remote/a.bin")
	if result != ftp.ResultSuccess || identical {
		t.Fatalf("AreFilesIdentical = (%v, %v), want (Success, false)", result, identical)
	}
}

func TestRequestsCompleteInSubmissionOrder(t *testing.T) {
	server := newMemServer()
	server.files["/one.bin"] = bytes.Repeat([]byte{1}, 500)
	server.files["/two.bin"] = bytes.Repeat([]byte{2}, 500)
	c := newTestClient(t, server)

	dir := t.TempDir()
	var mu sync.Mutex
	var order []string
	done := make(chan struct{}, 2)
	submit := func(name string) {
		c.Download(name, dir, func(r ftp.Result, _ ftp.ProgressData) {
			if r == ftp.ResultNext {
				return
			}
			if r != ftp.ResultSuccess {
				t.Errorf("%s result = %v", name, r)
			}
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			done <- struct{}{}
		})
	}
	submit("/one.bin")
	submit("/two.bin")

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("downloads never completed")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if order[0] != "/one.bin" || order[1] != "/two.bin" {
		t.Fatalf("completed out of submission order: %v", order)
	}
}

func TestRootDirectoryPrefix(t *testing.T) {
	server := newMemServer()
	server.listing["/fs/logs"] = []string{"boot.log"}
	c := newTestClient(t, server)
	c.SetRootDirectory("/fs")

	result, entries := c.ListDirectorySync("logs")
	if result != ftp.ResultSuccess || len(entries) != 1 || entries[0] != "boot.log" {
		t.Fatalf("list under root = (%v, %v)", result, entries)
	}
}
