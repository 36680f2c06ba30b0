package ftp

import (
	"encoding/binary"
	"fmt"
)

// Header is the fixed 12-byte prefix of every payload, wire-bit-exact.
// All multi-byte fields are little-endian.
type Header struct {
	SeqNumber     uint16
	Session       uint8
	Opcode        Opcode
	Size          uint8
	ReqOpcode     Opcode
	BurstComplete uint8
	_             uint8 // padding, always 0 on the wire
	Offset        uint32
}

// Payload is a decoded Header plus its data region, truncated to Size.
type Payload struct {
	Header
	Data []byte
}

// Encode renders a header and data into the wire-bit-exact byte slice:
// a 12-byte prefix followed by exactly MaxData data bytes, zero-filled
// beyond h.Size.
func Encode(h Header, data []byte) ([]byte, error) {
	if len(data) > MaxData {
		return nil, fmt.Errorf("ftp: data length %d exceeds MaxData %d", len(data), MaxData)
	}
	h.Size = uint8(len(data))

	out := make([]byte, HeaderSize+MaxData)
	binary.LittleEndian.PutUint16(out[0:2], h.SeqNumber)
	out[2] = h.Session
	out[3] = byte(h.Opcode)
	out[4] = h.Size
	out[5] = byte(h.ReqOpcode)
	out[6] = h.BurstComplete
	out[7] = 0
	binary.LittleEndian.PutUint32(out[8:12], h.Offset)
	copy(out[HeaderSize:], data)
	return out, nil
}

// Decode parses a received message body into a Payload. The data region is
// truncated to the declared Size; a Size beyond MaxData is rejected.
func Decode(raw []byte) (Payload, error) {
	if len(raw) < HeaderSize {
		return Payload{}, fmt.Errorf("ftp: short payload, got %d bytes", len(raw))
	}
	var h Header
	h.SeqNumber = binary.LittleEndian.Uint16(raw[0:2])
	h.Session = raw[2]
	h.Opcode = Opcode(raw[3])
	h.Size = raw[4]
	h.ReqOpcode = Opcode(raw[5])
	h.BurstComplete = raw[6]
	h.Offset = binary.LittleEndian.Uint32(raw[8:12])

	if h.Size > MaxData {
		return Payload{}, fmt.Errorf("ftp: declared size %d exceeds MaxData %d", h.Size, MaxData)
	}
	avail := len(raw) - HeaderSize
	if int(h.Size) > avail {
		return Payload{}, fmt.Errorf("ftp: declared size %d exceeds available data %d", h.Size, avail)
	}

	data := make([]byte, h.Size)
	copy(data, raw[HeaderSize:HeaderSize+int(h.Size)])
	return Payload{Header: h, Data: data}, nil
}

// seqLT is serial-number-arithmetic "less than" with wrap-around, used only
// to discard very old acks; duplicate detection itself uses equality.
// See https://en.wikipedia.org/wiki/Serial_number_arithmetic
func seqLT(a, b uint16) bool {
	return (a < b && b-a < 1<<15) || (a > b && a-b > 1<<15)
}
