package img

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenV2(t *testing.T) {
	path := writeV2Archive(t, []testEntry{
		{name: "kb_tree.dff", data: []byte("model bytes")},
		{name: "gta_trees.txd", data: []byte("texture bytes")},
	})

	archive, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer archive.Close()

	names := archive.List()
	if len(names) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(names))
	}
	if names[0] != "kb_tree.dff" || names[1] != "gta_trees.txd" {
		t.Errorf("wrong entry order: %v", names)
	}
}

func TestOpenV1(t *testing.T) {
	path := writeV1Archive(t, []testEntry{
		{name: "landstal.col", data: []byte("collision")},
	})

	archive, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer archive.Close()

	if !archive.Contains("landstal.col") {
		t.Error("expected entry present")
	}
}

func TestOpenV2_ImplausibleEntryCount(t *testing.T) {
	// A corrupt count far beyond what the file can hold must be
	// rejected before the index allocation.
	var raw bytes.Buffer
	raw.WriteString("VER2")
	binary.Write(&raw, binary.LittleEndian, uint32(0xFFFFFF))
	raw.Write(make([]byte, 64))

	path := filepath.Join(t.TempDir(), "corrupt.img")
	if err := os.WriteFile(path, raw.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path); !errors.Is(err, ErrInvalidArchive) {
		t.Errorf("expected ErrInvalidArchive, got %v", err)
	}
}

func TestOpenV1_MissingDirFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orphan.img")
	if err := os.WriteFile(path, make([]byte, SectorSize), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path); err == nil {
		t.Error("expected error for missing .dir index")
	}
}

func TestRead_IncludesSectorPadding(t *testing.T) {
	payload := []byte("short payload")
	path := writeV2Archive(t, []testEntry{{name: "a.dff", data: payload}})

	archive, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	data, err := archive.Read("a.dff")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(data) != SectorSize {
		t.Errorf("expected one full sector, got %d bytes", len(data))
	}
	if !bytes.HasPrefix(data, payload) {
		t.Error("payload should lead the sector")
	}
	for _, b := range data[len(payload):] {
		if b != 0 {
			t.Error("expected zero padding after payload")
			break
		}
	}
}

func TestLookup_CaseAndPathInsensitive(t *testing.T) {
	path := writeV2Archive(t, []testEntry{{name: "KB_Tree.dff", data: []byte("x")}})

	archive, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	if !archive.Contains("kb_tree.dff") {
		t.Error("lookup should be case-insensitive")
	}
	if !archive.Contains(`models\generic\KB_TREE.DFF`) {
		t.Error("lookup should ignore directory prefixes")
	}

	if _, err := archive.Stat("missing.dff"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestDuplicateEntries_LastWins(t *testing.T) {
	path := writeV2Archive(t, []testEntry{
		{name: "patch.dff", data: []byte("old")},
		{name: "PATCH.dff", data: []byte("new")},
	})

	archive, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	names := archive.List()
	if len(names) != 1 {
		t.Fatalf("duplicates should collapse, got %v", names)
	}

	data, err := archive.Read("patch.dff")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("new")) {
		t.Error("later entry should shadow the earlier one")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"KB_Tree.dff", "kb_tree.dff"},
		{`models\generic\tree.dff`, "tree.dff"},
		{"models/generic/tree.dff", "tree.dff"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.expected {
			t.Errorf("Normalize(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

type testEntry struct {
	name string
	data []byte
}

// writeV2Archive writes a VER2 archive: header, index table, then
// sector-aligned payloads.
func writeV2Archive(t *testing.T, entries []testEntry) string {
	t.Helper()

	var index bytes.Buffer
	index.WriteString("VER2")
	binary.Write(&index, binary.LittleEndian, uint32(len(entries)))

	// Payload space begins after the index, rounded up to a sector.
	headerSize := 8 + len(entries)*32
	firstSector := (headerSize + SectorSize - 1) / SectorSize

	var payload bytes.Buffer
	sector := firstSector
	for _, e := range entries {
		sectors := (len(e.data) + SectorSize - 1) / SectorSize
		if sectors == 0 {
			sectors = 1
		}

		binary.Write(&index, binary.LittleEndian, uint32(sector))
		binary.Write(&index, binary.LittleEndian, uint16(sectors))
		binary.Write(&index, binary.LittleEndian, uint16(0))
		index.Write(paddedName(e.name))

		padded := make([]byte, sectors*SectorSize)
		copy(padded, e.data)
		payload.Write(padded)
		sector += sectors
	}

	full := make([]byte, firstSector*SectorSize)
	copy(full, index.Bytes())
	full = append(full, payload.Bytes()...)

	path := filepath.Join(t.TempDir(), "test.img")
	if err := os.WriteFile(path, full, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeV1Archive writes a data file plus its sibling .dir index.
func writeV1Archive(t *testing.T, entries []testEntry) string {
	t.Helper()

	var index bytes.Buffer
	var payload bytes.Buffer
	sector := 0
	for _, e := range entries {
		sectors := (len(e.data) + SectorSize - 1) / SectorSize
		if sectors == 0 {
			sectors = 1
		}

		binary.Write(&index, binary.LittleEndian, uint32(sector))
		binary.Write(&index, binary.LittleEndian, uint32(sectors))
		index.Write(paddedName(e.name))

		padded := make([]byte, sectors*SectorSize)
		copy(padded, e.data)
		payload.Write(padded)
		sector += sectors
	}

	dir := t.TempDir()
	imgPath := filepath.Join(dir, "test.img")
	if err := os.WriteFile(imgPath, payload.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "test.dir"), index.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return imgPath
}

func paddedName(name string) []byte {
	b := make([]byte, entryNameSize)
	copy(b, name)
	return b
}
