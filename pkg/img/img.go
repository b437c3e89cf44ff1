// Package img provides reading functionality for legacy IMG resource
// container archives. Both layouts are supported: version 1 (a paired
// .dir index file next to the .img data file) and version 2 (a single
// .img file with a VER2 header). Entries are addressed in 2048-byte
// sectors.
package img

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// SectorSize is the addressing unit of the archive.
	SectorSize = 2048

	v2Magic       = "VER2"
	dirEntrySize  = 32
	v2EntrySize   = 32
	entryNameSize = 24
)

// Archive errors.
var (
	ErrInvalidArchive = errors.New("invalid IMG archive")
	ErrEntryNotFound  = errors.New("entry not found in archive")
)

// Entry describes one file inside the archive.
type Entry struct {
	Name    string
	Offset  uint32 // In sectors
	Sectors uint32 // Length in sectors
}

// Size returns the entry payload length in bytes, including sector
// padding.
func (e *Entry) Size() int {
	return int(e.Sectors) * SectorSize
}

// Archive represents an opened IMG archive.
type Archive struct {
	file    *os.File
	path    string
	entries map[string]*Entry
	order   []string
}

// Open opens an IMG archive, detecting the layout. A VER2 header means
// the index is embedded; otherwise a sibling .dir file is required.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	magic := make([]byte, 4)
	if _, err := io.ReadFull(file, magic); err == nil && string(magic) == v2Magic {
		archive := &Archive{file: file, path: path, entries: make(map[string]*Entry)}
		if err := archive.readEmbeddedIndex(); err != nil {
			file.Close()
			return nil, fmt.Errorf("reading archive index: %w", err)
		}
		return archive, nil
	}

	// Version 1: index lives in the paired .dir file.
	dirPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".dir"
	archive := &Archive{file: file, path: path, entries: make(map[string]*Entry)}
	if err := archive.readIndexFile(dirPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading index %s: %w", dirPath, err)
	}
	return archive, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

// Path returns the path the archive was opened from.
func (a *Archive) Path() string {
	return a.path
}

func (a *Archive) readEmbeddedIndex() error {
	if _, err := a.file.Seek(4, io.SeekStart); err != nil {
		return err
	}

	var count uint32
	if err := binary.Read(a.file, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%w: missing entry count", ErrInvalidArchive)
	}

	// The index table cannot hold more entries than the file has bytes
	// for; a corrupt count must fail here, not at allocation.
	info, err := a.file.Stat()
	if err != nil {
		return err
	}
	if int64(count) > info.Size()/v2EntrySize {
		return fmt.Errorf("%w: entry count %d exceeds file size %d", ErrInvalidArchive, count, info.Size())
	}

	raw := make([]byte, int(count)*v2EntrySize)
	if _, err := io.ReadFull(a.file, raw); err != nil {
		return fmt.Errorf("%w: index table truncated", ErrInvalidArchive)
	}

	for i := uint32(0); i < count; i++ {
		rec := raw[i*v2EntrySize:]
		entry := &Entry{
			Offset:  binary.LittleEndian.Uint32(rec),
			Sectors: uint32(binary.LittleEndian.Uint16(rec[4:])),
			Name:    readEntryName(rec[8 : 8+entryNameSize]),
		}
		a.insert(entry)
	}
	return nil
}

func (a *Archive) readIndexFile(dirPath string) error {
	raw, err := os.ReadFile(dirPath)
	if err != nil {
		return err
	}
	if len(raw)%dirEntrySize != 0 {
		return fmt.Errorf("%w: index size %d is not a whole number of entries", ErrInvalidArchive, len(raw))
	}

	for off := 0; off < len(raw); off += dirEntrySize {
		rec := raw[off:]
		entry := &Entry{
			Offset:  binary.LittleEndian.Uint32(rec),
			Sectors: binary.LittleEndian.Uint32(rec[4:]),
			Name:    readEntryName(rec[8 : 8+entryNameSize]),
		}
		a.insert(entry)
	}
	return nil
}

// insert registers an entry. Later entries with the same name win,
// matching how the engine layers patch archives over base archives.
func (a *Archive) insert(entry *Entry) {
	key := Normalize(entry.Name)
	if _, exists := a.entries[key]; !exists {
		a.order = append(a.order, key)
	}
	a.entries[key] = entry
}

// List returns all entry names in archive order.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.order))
	for _, key := range a.order {
		result = append(result, a.entries[key].Name)
	}
	return result
}

// Contains checks if an entry exists.
func (a *Archive) Contains(name string) bool {
	_, ok := a.entries[Normalize(name)]
	return ok
}

// Stat returns the entry metadata for a name.
func (a *Archive) Stat(name string) (*Entry, error) {
	entry, ok := a.entries[Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	return entry, nil
}

// Read reads an entry's payload. The returned buffer includes the
// trailing sector padding; the format parsers tolerate it.
func (a *Archive) Read(name string) ([]byte, error) {
	entry, err := a.Stat(name)
	if err != nil {
		return nil, err
	}

	if _, err := a.file.Seek(int64(entry.Offset)*SectorSize, io.SeekStart); err != nil {
		return nil, err
	}

	data := make([]byte, entry.Size())
	if _, err := io.ReadFull(a.file, data); err != nil {
		return nil, fmt.Errorf("reading entry %s: %w", name, err)
	}
	return data, nil
}

// Normalize lowercases a name and strips directory separators, the
// form entries are keyed under.
func Normalize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.ToLower(name)
}

func readEntryName(raw []byte) string {
	if idx := strings.IndexByte(string(raw), 0); idx >= 0 {
		return string(raw[:idx])
	}
	return string(raw)
}
