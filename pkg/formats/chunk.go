// Package formats provides parsers for the legacy game resource formats.
// Section stream reader shared by the chunk-based binary archives
// (DFF, TXD). Every section is a 12-byte header {id, size, stamp}
// followed by size payload bytes; unknown ids are skipped using their
// declared size.
package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Binary chunk errors.
var (
	ErrTruncatedChunk = errors.New("truncated chunk data")
	ErrMalformedChunk = errors.New("malformed chunk")
)

// SectionID identifies the type of a binary section.
type SectionID uint32

// Recognized section ids.
const (
	SecStruct       SectionID = 0x01 // Raw payload of the parent section
	SecString       SectionID = 0x02 // Null-terminated string
	SecExtension    SectionID = 0x03 // Plugin container, skipped
	SecTexture      SectionID = 0x06 // Texture reference inside a material
	SecMaterial     SectionID = 0x07 // Material slot
	SecMaterialList SectionID = 0x08 // Material list of a geometry
	SecFrameList    SectionID = 0x0E // Node hierarchy, skipped
	SecGeometry     SectionID = 0x0F // Mesh geometry
	SecClump        SectionID = 0x10 // Model root
	SecAtomic       SectionID = 0x14 // Frame/geometry binding, skipped
	SecRaster       SectionID = 0x15 // Native texture raster
	SecTexDict      SectionID = 0x16 // Texture dictionary root
	SecGeometryList SectionID = 0x1A // Geometry container
)

// String returns a human-readable section name.
func (id SectionID) String() string {
	switch id {
	case SecStruct:
		return "Struct"
	case SecString:
		return "String"
	case SecExtension:
		return "Extension"
	case SecTexture:
		return "Texture"
	case SecMaterial:
		return "Material"
	case SecMaterialList:
		return "MaterialList"
	case SecFrameList:
		return "FrameList"
	case SecGeometry:
		return "Geometry"
	case SecClump:
		return "Clump"
	case SecAtomic:
		return "Atomic"
	case SecRaster:
		return "Raster"
	case SecTexDict:
		return "TexDictionary"
	case SecGeometryList:
		return "GeometryList"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", uint32(id))
	}
}

// sectionHeader is the 12-byte header preceding every section payload.
type sectionHeader struct {
	ID    SectionID
	Size  uint32
	Stamp uint32 // Library/version stamp, not interpreted
}

const sectionHeaderSize = 12

// chunkReader is a bounds-checked cursor over one section payload.
// Child readers returned by section/expect are limited to the declared
// size of the child, so a corrupt size can never read past the parent.
type chunkReader struct {
	data []byte
	off  int
}

func newChunkReader(data []byte) *chunkReader {
	return &chunkReader{data: data}
}

// remaining returns the number of unread payload bytes.
func (r *chunkReader) remaining() int {
	return len(r.data) - r.off
}

// bytes consumes and returns n raw bytes.
func (r *chunkReader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedChunk, n, r.remaining())
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// skip advances past n bytes.
func (r *chunkReader) skip(n int) error {
	_, err := r.bytes(n)
	return err
}

func (r *chunkReader) u8() (uint8, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *chunkReader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *chunkReader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *chunkReader) f32() (float32, error) {
	v, err := r.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// vec3 reads three consecutive floats.
func (r *chunkReader) vec3() ([3]float32, error) {
	var v [3]float32
	for i := 0; i < 3; i++ {
		f, err := r.f32()
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

// fixedString reads an n-byte null-padded string.
func (r *chunkReader) fixedString(n int) (string, error) {
	b, err := r.bytes(n)
	if err != nil {
		return "", err
	}
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), nil
		}
	}
	return string(b), nil
}

// section reads the next section header and returns a child reader
// limited to the declared payload. The declared size is validated
// against the remaining bytes before the child is created.
func (r *chunkReader) section() (sectionHeader, *chunkReader, error) {
	if r.remaining() < sectionHeaderSize {
		return sectionHeader{}, nil, fmt.Errorf("%w: incomplete section header", ErrTruncatedChunk)
	}
	hdr := sectionHeader{
		ID:    SectionID(binary.LittleEndian.Uint32(r.data[r.off:])),
		Size:  binary.LittleEndian.Uint32(r.data[r.off+4:]),
		Stamp: binary.LittleEndian.Uint32(r.data[r.off+8:]),
	}
	r.off += sectionHeaderSize

	payload, err := r.bytes(int(hdr.Size))
	if err != nil {
		return sectionHeader{}, nil, fmt.Errorf("section %s declares %d bytes: %w", hdr.ID, hdr.Size, err)
	}
	return hdr, newChunkReader(payload), nil
}

// expect reads the next section and fails unless it has the given id.
func (r *chunkReader) expect(id SectionID) (*chunkReader, error) {
	hdr, child, err := r.section()
	if err != nil {
		return nil, err
	}
	if hdr.ID != id {
		return nil, fmt.Errorf("%w: expected %s section, found %s", ErrMalformedChunk, id, hdr.ID)
	}
	return child, nil
}

// findChild scans the remaining sections for the first with the given
// id, skipping others by their declared size. Returns nil if absent.
func (r *chunkReader) findChild(id SectionID) (*chunkReader, error) {
	for r.remaining() >= sectionHeaderSize {
		hdr, child, err := r.section()
		if err != nil {
			return nil, err
		}
		if hdr.ID == id {
			return child, nil
		}
	}
	return nil, nil
}

// sectionString reads a String section payload.
func (r *chunkReader) sectionString() (string, error) {
	child, err := r.expect(SecString)
	if err != nil {
		return "", err
	}
	return child.fixedString(child.remaining())
}
