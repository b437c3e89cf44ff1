package formats

import (
	"errors"
	"testing"
)

func TestParseCOL_SingleRecord(t *testing.T) {
	records, err := ParseCOL(buildCollArchive(buildCollRecord("landstal", true, true, true)))
	if err != nil {
		t.Fatalf("failed to parse synthetic archive: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Name != "landstal" {
		t.Errorf("wrong name: %q", rec.Name)
	}
	if rec.ModelID != 90 {
		t.Errorf("wrong model id: %d", rec.ModelID)
	}
	if rec.BoundsRadius != 5.0 {
		t.Errorf("wrong bounds radius: %v", rec.BoundsRadius)
	}

	if len(rec.Spheres) != 1 {
		t.Fatalf("expected 1 sphere, got %d", len(rec.Spheres))
	}
	sphere := rec.Spheres[0]
	if sphere.Radius != 1.5 || sphere.Center != [3]float32{0, 0, 1} {
		t.Errorf("wrong sphere: %+v", sphere)
	}
	if sphere.Surface.Material != 4 {
		t.Errorf("wrong sphere surface: %+v", sphere.Surface)
	}

	if len(rec.Boxes) != 1 {
		t.Fatalf("expected 1 box, got %d", len(rec.Boxes))
	}
	if rec.Boxes[0].Min != [3]float32{-1, -1, 0} || rec.Boxes[0].Max != [3]float32{1, 1, 2} {
		t.Errorf("wrong box: %+v", rec.Boxes[0])
	}

	if len(rec.Vertices) != 3 || len(rec.Faces) != 1 {
		t.Fatalf("expected 3 vertices / 1 face, got %d / %d", len(rec.Vertices), len(rec.Faces))
	}
	face := rec.Faces[0]
	if face.A != 0 || face.B != 1 || face.C != 2 {
		t.Errorf("wrong face indices: %+v", face)
	}

	if rec.ShapeCount() != 3 {
		t.Errorf("expected 3 shapes (sphere, box, mesh), got %d", rec.ShapeCount())
	}
	if rec.IsEmpty() {
		t.Error("record with shapes must not be empty")
	}
}

func TestParseCOL_MultipleRecords(t *testing.T) {
	archive := buildCollArchive(
		buildCollRecord("first", true, false, false),
		buildCollRecord("second", false, true, false),
	)

	records, err := ParseCOL(archive)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Name != "first" || records[1].Name != "second" {
		t.Errorf("wrong order: %q, %q", records[0].Name, records[1].Name)
	}
}

func TestParseCOL_EmptyRecord(t *testing.T) {
	records, err := ParseCOL(buildCollArchive(buildCollRecord("empty", false, false, false)))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if !records[0].IsEmpty() {
		t.Error("record without shapes should be empty")
	}
}

func TestParseCOL_TrailingSectorPadding(t *testing.T) {
	// Archives read out of sector-aligned containers carry zero padding.
	data := buildCollArchive(buildCollRecord("padded", true, false, false))
	data = append(data, make([]byte, 512)...)

	records, err := ParseCOL(data)
	if err != nil {
		t.Fatalf("padding should be tolerated: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

func TestParseCOL_BadMagic(t *testing.T) {
	data := buildCollArchive(buildCollRecord("ok", false, false, false))
	copy(data, "XXXX")

	if _, err := ParseCOL(data); !errors.Is(err, ErrInvalidCOLMagic) {
		t.Errorf("expected ErrInvalidCOLMagic, got %v", err)
	}
}

func TestParseCOL_SecondRecordFailsWholeBuffer(t *testing.T) {
	good := buildCollArchive(buildCollRecord("good", true, true, true))
	bad := append(good, []byte("COLL")...)
	bad = append(bad, u32b(10)...) // declares 10 bytes, below the minimum record size

	if _, err := ParseCOL(append(bad, make([]byte, 10)...)); !errors.Is(err, ErrTruncatedCOL) {
		t.Errorf("expected ErrTruncatedCOL, got %v", err)
	}
}

func TestParseCOL_TruncatedBody(t *testing.T) {
	data := buildCollArchive(buildCollRecord("cut", true, true, true))

	// Shrink the payload but keep the declared size intact.
	if _, err := ParseCOL(data[:len(data)-4]); !errors.Is(err, ErrTruncatedCOL) {
		t.Errorf("expected ErrTruncatedCOL, got %v", err)
	}
}

func TestParseCOL_FaceIndexOutOfRange(t *testing.T) {
	body := cat(
		nulString("badmesh", 22),
		u16b(1),
		f32b(1, 0, 0, 0), // radius, center
		f32b(-1, -1, -1), // min
		f32b(1, 1, 1),    // max
		u32b(0),          // spheres
		u32b(0),          // reserved
		u32b(0),          // boxes
		u32b(2),          // only 2 vertices
		f32b(0, 0, 0, 1, 0, 0),
		u32b(1),          // 1 face
		u32b(0, 1, 5),    // C indexes vertex 5
		[]byte{0, 0, 0, 0},
	)

	if _, err := ParseCOL(wrapCollRecord(body)); !errors.Is(err, ErrInvalidCOLData) {
		t.Errorf("expected ErrInvalidCOLData, got %v", err)
	}
}

func TestParseCOL_NonzeroReservedCount(t *testing.T) {
	body := cat(
		nulString("legacy", 22),
		u16b(1),
		f32b(1, 0, 0, 0),
		f32b(-1, -1, -1),
		f32b(1, 1, 1),
		u32b(0), // spheres
		u32b(3), // reserved count must be zero
		u32b(0), // boxes
		u32b(0), // vertices
		u32b(0), // faces
	)

	if _, err := ParseCOL(wrapCollRecord(body)); !errors.Is(err, ErrInvalidCOLData) {
		t.Errorf("expected ErrInvalidCOLData, got %v", err)
	}
}

// wrapCollRecord prefixes a record body with the fourcc and size field.
func wrapCollRecord(body []byte) []byte {
	return cat([]byte(colMagic), u32b(uint32(len(body))), body)
}

func buildCollArchive(records ...[]byte) []byte {
	return cat(records...)
}

// buildCollRecord builds one record with optional shape groups: a
// sphere at (0,0,1), a unit box and a single-triangle mesh.
func buildCollRecord(name string, sphere, box, mesh bool) []byte {
	body := cat(
		nulString(name, 22),
		u16b(90),            // model id
		f32b(5, 0, 0, 0.5),  // bounds radius, center
		f32b(-2, -2, 0),     // bounds min
		f32b(2, 2, 2),       // bounds max
	)

	if sphere {
		body = cat(body,
			u32b(1),
			f32b(1.5, 0, 0, 1),  // radius, center
			[]byte{4, 0, 255, 0}, // surface
		)
	} else {
		body = cat(body, u32b(0))
	}

	body = cat(body, u32b(0)) // reserved count

	if box {
		body = cat(body,
			u32b(1),
			f32b(-1, -1, 0), // min
			f32b(1, 1, 2),   // max
			[]byte{1, 0, 128, 0},
		)
	} else {
		body = cat(body, u32b(0))
	}

	if mesh {
		body = cat(body,
			u32b(3),
			f32b(
				0, 0, 0,
				1, 0, 0,
				0, 1, 0,
			),
			u32b(1),
			u32b(0, 1, 2),
			[]byte{2, 0, 64, 0},
		)
	} else {
		body = cat(body, u32b(0), u32b(0))
	}

	return wrapCollRecord(body)
}
