package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// Shared builders for synthetic chunk streams. A section is built
// bottom-up: payload first, then wrapped with its 12-byte header.

const testStamp = 0x0003FFFF

func sec(id SectionID, payload []byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(id))
	binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
	binary.Write(&buf, binary.LittleEndian, uint32(testStamp))
	buf.Write(payload)
	return buf.Bytes()
}

func u16b(values ...uint16) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func u32b(values ...uint32) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func f32b(values ...float32) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
	}
	return buf.Bytes()
}

func cat(parts ...[]byte) []byte {
	var buf bytes.Buffer
	for _, p := range parts {
		buf.Write(p)
	}
	return buf.Bytes()
}

// nulString pads a string to n bytes with zeros.
func nulString(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

func TestChunkReader_Section(t *testing.T) {
	data := sec(SecStruct, u32b(42))
	r := newChunkReader(data)

	hdr, child, err := r.section()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hdr.ID != SecStruct || hdr.Size != 4 {
		t.Errorf("wrong header: %+v", hdr)
	}
	v, err := child.u32()
	if err != nil || v != 42 {
		t.Errorf("payload read: %d, %v", v, err)
	}
	if child.remaining() != 0 {
		t.Errorf("expected exhausted child, %d bytes remain", child.remaining())
	}
}

func TestChunkReader_ChildCannotReadPastDeclaredSize(t *testing.T) {
	// Two sibling sections; the child reader of the first must not see
	// the second's bytes.
	data := cat(sec(SecStruct, u32b(1)), sec(SecString, []byte("x\x00")))
	r := newChunkReader(data)

	_, child, err := r.section()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := child.u32(); err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	if _, err := child.u32(); !errors.Is(err, ErrTruncatedChunk) {
		t.Errorf("expected ErrTruncatedChunk past declared size, got %v", err)
	}
}

func TestChunkReader_DeclaredSizeLargerThanBuffer(t *testing.T) {
	data := sec(SecStruct, u32b(1))
	data[4] = 0xFF // inflate the declared size

	r := newChunkReader(data)
	if _, _, err := r.section(); !errors.Is(err, ErrTruncatedChunk) {
		t.Errorf("expected ErrTruncatedChunk, got %v", err)
	}
}

func TestChunkReader_Expect(t *testing.T) {
	r := newChunkReader(sec(SecString, []byte("ok\x00")))
	if _, err := r.expect(SecStruct); !errors.Is(err, ErrMalformedChunk) {
		t.Errorf("expected ErrMalformedChunk for wrong id, got %v", err)
	}
}

func TestChunkReader_FindChildSkipsUnknown(t *testing.T) {
	data := cat(
		sec(SecExtension, []byte{1, 2, 3}),
		sec(SecGeometryList, u32b(7)),
	)
	r := newChunkReader(data)

	child, err := r.findChild(SecGeometryList)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if child == nil {
		t.Fatal("expected to find geometry list")
	}
	if v, _ := child.u32(); v != 7 {
		t.Errorf("wrong payload: %d", v)
	}
}

func TestChunkReader_FindChildAbsent(t *testing.T) {
	r := newChunkReader(sec(SecExtension, nil))
	child, err := r.findChild(SecGeometryList)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if child != nil {
		t.Error("expected nil for absent section")
	}
}

func TestChunkReader_FixedString(t *testing.T) {
	r := newChunkReader([]byte("abc\x00\x00\x00def"))
	s, err := r.fixedString(6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "abc" {
		t.Errorf("expected %q, got %q", "abc", s)
	}
	if r.remaining() != 3 {
		t.Errorf("cursor should sit past the padding, %d remain", r.remaining())
	}
}
