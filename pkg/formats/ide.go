// Package formats provides parsers for the legacy game resource formats.
// IDE (item definition) parser for object-type description files.
package formats

import (
	"fmt"
	"os"
	"strings"
)

// ObjectFlags are per-definition rendering/physics hints.
type ObjectFlags uint32

// Known object flag bits.
const (
	FlagWetEffect      ObjectFlags = 0x01 // Render with wet road reflection
	FlagDrawLast       ObjectFlags = 0x02 // Draw after opaque geometry (transparency)
	FlagAdditive       ObjectFlags = 0x04 // Additive blending
	FlagIgnoreLighting ObjectFlags = 0x20 // Full ambient, no dynamic lights
	FlagNoCollision    ObjectFlags = 0x40 // Object has no collision geometry
	FlagNoShadow       ObjectFlags = 0x80 // Casts no shadow
)

// Has returns true if all bits in mask are set.
func (f ObjectFlags) Has(mask ObjectFlags) bool {
	return f&mask == mask
}

// String returns a human-readable flag list.
func (f ObjectFlags) String() string {
	var names []string
	bits := []struct {
		mask ObjectFlags
		name string
	}{
		{FlagWetEffect, "WetEffect"},
		{FlagDrawLast, "DrawLast"},
		{FlagAdditive, "Additive"},
		{FlagIgnoreLighting, "IgnoreLighting"},
		{FlagNoCollision, "NoCollision"},
		{FlagNoShadow, "NoShadow"},
	}
	for _, b := range bits {
		if f&b.mask != 0 {
			names = append(names, b.name)
		}
	}
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, "|")
}

// ObjectDef describes one placeable object type: which model it uses,
// which texture dictionary the model's textures live in, and how far
// away each LOD mesh stays visible.
type ObjectDef struct {
	ID           uint32
	ModelName    string
	TextureName  string // Texture dictionary name
	MeshCount    uint32 // Number of LOD meshes (1-3)
	DrawDistance [3]float32
	Flags        ObjectFlags

	// Timed objects only appear between TimeOn and TimeOff (hours).
	Timed   bool
	TimeOn  uint32
	TimeOff uint32
}

// IDE represents a parsed item definition file.
type IDE struct {
	Objects []ObjectDef
	// Skipped counts data lines consumed from recognized-but-unmodeled
	// or unknown sections, for diagnostics.
	Skipped int
}

// GetByID returns the definition with the given numeric ID, or nil.
func (ide *IDE) GetByID(id uint32) *ObjectDef {
	for i := range ide.Objects {
		if ide.Objects[i].ID == id {
			return &ide.Objects[i]
		}
	}
	return nil
}

// GetByModel returns the definition using the given model name, or nil.
// Matching is case-insensitive.
func (ide *IDE) GetByModel(name string) *ObjectDef {
	for i := range ide.Objects {
		if strings.EqualFold(ide.Objects[i].ModelName, name) {
			return &ide.Objects[i]
		}
	}
	return nil
}

// ParseIDE parses an item definition file. Unknown sections are
// consumed without being interpreted; malformed lines in a recognized
// section abort the parse with a syntax error.
func ParseIDE(data string) (*IDE, error) {
	records, err := scanSections(data)
	if err != nil {
		return nil, err
	}

	ide := &IDE{}
	for _, rec := range records {
		switch rec.Section {
		case "objs":
			obj, err := parseObjectDef(rec, false)
			if err != nil {
				return nil, err
			}
			ide.Objects = append(ide.Objects, *obj)

		case "tobj":
			obj, err := parseObjectDef(rec, true)
			if err != nil {
				return nil, err
			}
			ide.Objects = append(ide.Objects, *obj)

		default:
			// cars, peds, weap, hier, anim, txdp, path, 2dfx and
			// anything newer: skipped wholesale.
			ide.Skipped++
		}
	}

	return ide, nil
}

// parseObjectDef decodes one objs/tobj line. The layout is positional:
//
//	objs: id, model, txd, dist, flags
//	objs: id, model, txd, meshcount, dist1[, dist2, dist3], flags
//	tobj: same plus trailing timeOn, timeOff
//
// Extra trailing fields are ignored.
func parseObjectDef(rec textRecord, timed bool) (*ObjectDef, error) {
	section := "objs"
	minFields := 5
	if timed {
		section = "tobj"
		minFields = 7
	}
	if len(rec.Fields) < minFields {
		return nil, fmt.Errorf("%w: line %d: %s record needs at least %d fields, got %d",
			ErrSyntax, rec.Line, section, minFields, len(rec.Fields))
	}

	obj := &ObjectDef{Timed: timed}

	var err error
	if obj.ID, err = parseUint(rec.Fields[0], "object id", rec.Line); err != nil {
		return nil, err
	}
	obj.ModelName = rec.Fields[1]
	obj.TextureName = rec.Fields[2]

	// Field count decides whether the fourth column is a mesh count or
	// the single draw distance.
	n := len(rec.Fields)
	if timed {
		n -= 2 // trailing timeOn/timeOff
	}

	switch {
	case n == 5:
		obj.MeshCount = 1
		if obj.DrawDistance[0], err = parseFloat(rec.Fields[3], "draw distance", rec.Line); err != nil {
			return nil, err
		}
		if err = parseFlags(obj, rec.Fields[4], rec.Line); err != nil {
			return nil, err
		}

	case n >= 6 && n <= 8:
		count := n - 5
		obj.MeshCount = uint32(count)
		for i := 0; i < count; i++ {
			if obj.DrawDistance[i], err = parseFloat(rec.Fields[4+i], "draw distance", rec.Line); err != nil {
				return nil, err
			}
		}
		if err = parseFlags(obj, rec.Fields[4+count], rec.Line); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: line %d: %s record has invalid field count %d",
			ErrSyntax, rec.Line, section, len(rec.Fields))
	}

	if timed {
		if obj.TimeOn, err = parseUint(rec.Fields[len(rec.Fields)-2], "time on", rec.Line); err != nil {
			return nil, err
		}
		if obj.TimeOff, err = parseUint(rec.Fields[len(rec.Fields)-1], "time off", rec.Line); err != nil {
			return nil, err
		}
	}

	return obj, nil
}

func parseFlags(obj *ObjectDef, field string, line int) error {
	raw, err := parseUint(field, "flags", line)
	if err != nil {
		return err
	}
	obj.Flags = ObjectFlags(raw)
	return nil
}

// ParseIDEFile parses an item definition file from disk.
func ParseIDEFile(path string) (*IDE, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading IDE file: %w", err)
	}
	return ParseIDE(string(data))
}
