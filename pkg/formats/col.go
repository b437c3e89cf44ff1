// Package formats provides parsers for the legacy game resource formats.
// COL (collision archive) parser. One archive concatenates any number
// of named collision records; a truncated record rejects the whole
// buffer so no partial archive is ever registered.
package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// COL format errors.
var (
	ErrInvalidCOLMagic = errors.New("invalid COL magic: expected 'COLL'")
	ErrTruncatedCOL    = errors.New("truncated COL data")
	ErrInvalidCOLData  = errors.New("invalid COL data")
)

const colMagic = "COLL"

// Sanity caps for count fields.
const (
	maxCollShapes   = 1 << 16
	maxCollVertices = 1 << 20
)

// Surface carries the per-shape physics material flags.
type Surface struct {
	Material   uint8
	Flag       uint8
	Brightness uint8
	Light      uint8
}

// CollSphere is a sphere collision shape.
type CollSphere struct {
	Radius  float32
	Center  [3]float32
	Surface Surface
}

// CollBox is an axis-aligned box collision shape.
type CollBox struct {
	Min     [3]float32
	Max     [3]float32
	Surface Surface
}

// CollFace is one triangle of a collision mesh, indexing the record's
// vertex array.
type CollFace struct {
	A, B, C uint32
	Surface Surface
}

// CollisionRecord is one named collision model: primitive shapes plus
// an optional triangle mesh.
type CollisionRecord struct {
	Name         string
	ModelID      uint16
	BoundsRadius float32
	BoundsCenter [3]float32
	BoundsMin    [3]float32
	BoundsMax    [3]float32
	Spheres      []CollSphere
	Boxes        []CollBox
	Vertices     [][3]float32
	Faces        []CollFace
}

// ShapeCount returns the total number of collision shapes, counting
// the triangle mesh as one shape.
func (c *CollisionRecord) ShapeCount() int {
	count := len(c.Spheres) + len(c.Boxes)
	if len(c.Faces) > 0 {
		count++
	}
	return count
}

// IsEmpty returns true if the record carries no collision shapes.
func (c *CollisionRecord) IsEmpty() bool {
	return c.ShapeCount() == 0
}

// ParseCOL parses a collision archive. Decoding is all-or-nothing:
// any malformed record fails the entire buffer.
func ParseCOL(data []byte) ([]CollisionRecord, error) {
	var records []CollisionRecord

	offset := 0
	for offset < len(data) {
		// Archives read out of sector-aligned containers end in zero
		// padding; that is not a record.
		if isZeroPadding(data[offset:]) {
			break
		}
		if len(data)-offset < 8 {
			return nil, fmt.Errorf("%w: record %d header", ErrTruncatedCOL, len(records))
		}
		if string(data[offset:offset+4]) != colMagic {
			return nil, fmt.Errorf("%w: record %d", ErrInvalidCOLMagic, len(records))
		}
		size := binary.LittleEndian.Uint32(data[offset+4:])
		body := offset + 8
		// Smallest legal record: name, model id, bounds and the five
		// zero count fields.
		const minRecordSize = 22 + 2 + 40 + 20
		if size < minRecordSize || int(size) > len(data)-body {
			return nil, fmt.Errorf("%w: record %d declares %d bytes, %d remain",
				ErrTruncatedCOL, len(records), size, len(data)-body)
		}

		record, err := parseCollisionRecord(data[body : body+int(size)])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records), err)
		}
		records = append(records, *record)
		offset = body + int(size)
	}

	return records, nil
}

// parseCollisionRecord decodes one record body (everything after the
// fourcc and size field).
func parseCollisionRecord(data []byte) (*CollisionRecord, error) {
	r := newChunkReader(data)
	record := &CollisionRecord{}

	var err error
	if record.Name, err = r.fixedString(22); err != nil {
		return nil, truncated(err)
	}
	if record.ModelID, err = r.u16(); err != nil {
		return nil, truncated(err)
	}

	if record.BoundsRadius, err = r.f32(); err != nil {
		return nil, truncated(err)
	}
	if record.BoundsCenter, err = r.vec3(); err != nil {
		return nil, truncated(err)
	}
	if record.BoundsMin, err = r.vec3(); err != nil {
		return nil, truncated(err)
	}
	if record.BoundsMax, err = r.vec3(); err != nil {
		return nil, truncated(err)
	}

	// Spheres.
	sphereCount, err := r.u32()
	if err != nil {
		return nil, truncated(err)
	}
	if sphereCount > maxCollShapes {
		return nil, fmt.Errorf("%w: sphere count %d", ErrInvalidCOLData, sphereCount)
	}
	record.Spheres = make([]CollSphere, sphereCount)
	for i := range record.Spheres {
		s := &record.Spheres[i]
		if s.Radius, err = r.f32(); err != nil {
			return nil, truncated(err)
		}
		if s.Center, err = r.vec3(); err != nil {
			return nil, truncated(err)
		}
		if s.Surface, err = readSurface(r); err != nil {
			return nil, truncated(err)
		}
	}

	// A legacy unused count sits between spheres and boxes.
	unused, err := r.u32()
	if err != nil {
		return nil, truncated(err)
	}
	if unused != 0 {
		return nil, fmt.Errorf("%w: reserved shape count %d", ErrInvalidCOLData, unused)
	}

	// Boxes.
	boxCount, err := r.u32()
	if err != nil {
		return nil, truncated(err)
	}
	if boxCount > maxCollShapes {
		return nil, fmt.Errorf("%w: box count %d", ErrInvalidCOLData, boxCount)
	}
	record.Boxes = make([]CollBox, boxCount)
	for i := range record.Boxes {
		b := &record.Boxes[i]
		if b.Min, err = r.vec3(); err != nil {
			return nil, truncated(err)
		}
		if b.Max, err = r.vec3(); err != nil {
			return nil, truncated(err)
		}
		if b.Surface, err = readSurface(r); err != nil {
			return nil, truncated(err)
		}
	}

	// Mesh vertices.
	vertexCount, err := r.u32()
	if err != nil {
		return nil, truncated(err)
	}
	if vertexCount > maxCollVertices {
		return nil, fmt.Errorf("%w: vertex count %d", ErrInvalidCOLData, vertexCount)
	}
	record.Vertices = make([][3]float32, vertexCount)
	for i := range record.Vertices {
		if record.Vertices[i], err = r.vec3(); err != nil {
			return nil, truncated(err)
		}
	}

	// Mesh faces.
	faceCount, err := r.u32()
	if err != nil {
		return nil, truncated(err)
	}
	if faceCount > maxCollVertices {
		return nil, fmt.Errorf("%w: face count %d", ErrInvalidCOLData, faceCount)
	}
	record.Faces = make([]CollFace, faceCount)
	for i := range record.Faces {
		f := &record.Faces[i]
		if f.A, err = r.u32(); err != nil {
			return nil, truncated(err)
		}
		if f.B, err = r.u32(); err != nil {
			return nil, truncated(err)
		}
		if f.C, err = r.u32(); err != nil {
			return nil, truncated(err)
		}
		if f.Surface, err = readSurface(r); err != nil {
			return nil, truncated(err)
		}
		if f.A >= vertexCount || f.B >= vertexCount || f.C >= vertexCount {
			return nil, fmt.Errorf("%w: face %d indexes outside %d vertices", ErrInvalidCOLData, i, vertexCount)
		}
	}

	return record, nil
}

func readSurface(r *chunkReader) (Surface, error) {
	var s Surface
	b, err := r.bytes(4)
	if err != nil {
		return s, err
	}
	s.Material = b[0]
	s.Flag = b[1]
	s.Brightness = b[2]
	s.Light = b[3]
	return s, nil
}

// isZeroPadding returns true if every remaining byte is zero.
func isZeroPadding(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// truncated maps the shared chunk-reader error onto the COL sentinel.
func truncated(err error) error {
	if errors.Is(err, ErrTruncatedChunk) {
		return fmt.Errorf("%w: %v", ErrTruncatedCOL, err)
	}
	return err
}

// ParseCOLFile parses a collision archive from disk.
func ParseCOLFile(path string) ([]CollisionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading COL file: %w", err)
	}
	return ParseCOL(data)
}
