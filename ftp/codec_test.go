package ftp

import (
	"bytes"
	"testing"
)

func TestEncodeLayoutIsLittleEndianAndZeroFilled(t *testing.T) {
	h := Header{
		SeqNumber: 0x1234,
		Session:   7,
		Opcode:    OpRead,
		Offset:    0xAABBCCDD,
	}
	out, err := Encode(h, []byte{0xDE, 0xAD})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(out) != HeaderSize+MaxData {
		t.Fatalf("encoded length = %d, want %d", len(out), HeaderSize+MaxData)
	}
	want := []byte{
		0x34, 0x12, // seq, LE
		7,                      // session
		byte(OpRead),           // opcode
		2,                      // size
		byte(OpNone),           // req_opcode
		0,                      // burst_complete
		0,                      // padding
		0xDD, 0xCC, 0xBB, 0xAA, // offset, LE
		0xDE, 0xAD,
	}
	if !bytes.Equal(out[:len(want)], want) {
		t.Fatalf("encoded prefix = % x, want % x", out[:len(want)], want)
	}
	for i := HeaderSize + 2; i < len(out); i++ {
		if out[i] != 0 {
			t.Fatalf("byte %d past data not zero-filled: %#x", i, out[i])
		}
	}
}

func TestEncodeRejectsOversizedData(t *testing.T) {
	if _, err := Encode(Header{}, make([]byte, MaxData+1)); err == nil {
		t.Fatal("expected error for data beyond MaxData")
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	h := Header{
		SeqNumber: 0xFFFE,
		Session:   3,
		Opcode:    OpAck,
		ReqOpcode: OpOpenRO,
		Offset:    1024,
	}
	data := []byte{1, 2, 3, 4, 5}
	raw, err := Encode(h, data)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	p, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.SeqNumber != h.SeqNumber || p.Session != h.Session || p.Opcode != h.Opcode ||
		p.ReqOpcode != h.ReqOpcode || p.Offset != h.Offset {
		t.Fatalf("decoded header %+v does not match input %+v", p.Header, h)
	}
	if !bytes.Equal(p.Data, data) {
		t.Fatalf("decoded data = % x, want % x", p.Data, data)
	}
}

func TestDecodeRejectsShortAndLyingPayloads(t *testing.T) {
	if _, err := Decode(make([]byte, HeaderSize-1)); err == nil {
		t.Fatal("expected error for truncated header")
	}
	raw := make([]byte, HeaderSize+3)
	raw[4] = 10 // declares more data than the message carries
	if _, err := Decode(raw); err == nil {
		t.Fatal("expected error for size exceeding available data")
	}
}

func TestSeqLT(t *testing.T) {
	cases := []struct {
		a, b uint16
		want bool
	}{
		{0, 1, true},
		{1, 0, false},
		{5, 5, false},
		{0xFFFF, 0, true}, // wrap: 0 is one ahead of 0xFFFF
		{0, 0xFFFF, false},
		{0x7FFF, 0xFFFE, true},
		{0, 0x7FFF, true},
		{0, 0x8000, false}, // half the space or more ahead does not read as ahead
	}
	for _, c := range cases {
		if got := seqLT(c.a, c.b); got != c.want {
			t.Errorf("seqLT(%#x, %#x) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
