package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"github.com/sigurn/crc16"

	"github.com/prokas-nikos/mftp/ftp"
)

var crcTable = crc16.MakeTable(crc16.CRC16_X_25)

// envelopeSize is the tiny addressing prefix this transport prepends to
// every ftp payload body: network id, target system, target component.
// It stands in for the outer bus message when there is no real system bus
// underneath, keeping the same fields the receive filter needs.
const envelopeSize = 3

// crcSize is the x25 CRC-16 trailer appended after the payload body, the
// same integrity check the outer bus frame carries on a real link.
const crcSize = 2

// maxDatagram is large enough for the envelope plus one full ftp payload
// (HeaderSize + MaxData) and the CRC trailer, with slack for transports
// that pad.
const maxDatagram = envelopeSize + ftp.HeaderSize + ftp.MaxData + crcSize + 64

// UDP is a point-to-point Transport backed by a single net.UDPConn, bound
// locally and talking to one remote address. Multiplexing to several
// remote systems at once is deliberately not supported.
type UDP struct {
	conn   *net.UDPConn
	remote *net.UDPAddr

	ownSystem    uint8
	ownComponent uint8

	log Logger

	recvCh chan Message

	closeOnce sync.Once
	closed    chan struct{}
}

// NewUDP binds localAddr and targets remoteAddr (both "host:port" or
// ":port" for localAddr). ownSystem/ownComponent are this client's own bus
// identity, used to filter inbound datagrams addressed to someone else.
func NewUDP(localAddr, remoteAddr string, ownSystem, ownComponent uint8, log Logger) (*UDP, error) {
	if log == nil {
		log = NopLogger{}
	}
	laddr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve local addr: %w", err)
	}
	raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve remote addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen: %w", err)
	}

	u := &UDP{
		conn:         conn,
		remote:       raddr,
		ownSystem:    ownSystem,
		ownComponent: ownComponent,
		log:          log,
		recvCh:       make(chan Message, 32),
		closed:       make(chan struct{}),
	}
	go u.readLoop()
	return u, nil
}

func (u *UDP) OwnIDs() (systemID, componentID uint8) {
	return u.ownSystem, u.ownComponent
}

// LocalAddr reports the bound local address, useful when listening on an
// ephemeral port (":0").
func (u *UDP) LocalAddr() string {
	return u.conn.LocalAddr().String()
}

// Send prepends the addressing envelope, appends the CRC trailer and
// writes one UDP datagram. ctx is honored only for cancellation before the
// write is attempted; the underlying socket write itself does not block on
// the network.
func (u *UDP) Send(ctx context.Context, msg Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	out := make([]byte, envelopeSize+len(msg.Payload)+crcSize)
	out[0] = msg.NetworkID
	out[1] = msg.TargetSystem
	out[2] = msg.TargetComponent
	copy(out[envelopeSize:], msg.Payload)
	sum := crc16.Checksum(out[:envelopeSize+len(msg.Payload)], crcTable)
	binary.LittleEndian.PutUint16(out[envelopeSize+len(msg.Payload):], sum)
	_, err := u.conn.WriteToUDP(out, u.remote)
	return err
}

func (u *UDP) Recv() <-chan Message {
	return u.recvCh
}

func (u *UDP) Close() error {
	var err error
	u.closeOnce.Do(func() {
		close(u.closed)
		err = u.conn.Close()
	})
	return err
}

// readLoop owns the socket read side, decodes the envelope, applies the
// target-id filter, and hands surviving messages to the buffered channel
// the client's receive goroutine drains.
func (u *UDP) readLoop() {
	buf := make([]byte, maxDatagram)
	defer close(u.recvCh)
	for {
		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-u.closed:
			default:
				u.log.Warnf("transport: udp read failed: %v", err)
			}
			return
		}
		if n < envelopeSize+crcSize {
			u.log.Warnf("transport: dropping short datagram (%d bytes)", n)
			continue
		}
		body := buf[:n-crcSize]
		want := binary.LittleEndian.Uint16(buf[n-crcSize : n])
		if got := crc16.Checksum(body, crcTable); got != want {
			u.log.Warnf("transport: dropping corrupt datagram (crc %#04x, want %#04x)", got, want)
			continue
		}
		n -= crcSize
		networkID, targetSystem, targetComponent := buf[0], buf[1], buf[2]
		if targetSystem != 0 && targetSystem != u.ownSystem {
			continue
		}
		if targetComponent != 0 && targetComponent != u.ownComponent {
			continue
		}
		payload := make([]byte, n-envelopeSize)
		copy(payload, buf[envelopeSize:n])

		msg := Message{
			TargetSystem:    targetSystem,
			TargetComponent: targetComponent,
			NetworkID:       networkID,
			Payload:         payload,
		}
		select {
		case u.recvCh <- msg:
		case <-u.closed:
			return
		}
	}
}
