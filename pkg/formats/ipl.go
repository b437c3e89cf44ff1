// Package formats provides parsers for the legacy game resource formats.
// IPL (item placement) parser for world placement description files.
package formats

import (
	"fmt"
	"os"
	"strings"
)

// Placement is one positioned instance of an item definition.
type Placement struct {
	ID        uint32
	ModelName string // Definition/model name this instance refers to
	Interior  int32  // Area identifier, 0 = outside world
	Position  [3]float32
	Scale     [3]float32
	Rotation  [4]float32 // Quaternion, file order X Y Z W
}

// IPL represents a parsed item placement file.
type IPL struct {
	Placements []Placement
	// Skipped counts data lines consumed from unmodeled sections
	// (zone, cull, pick, occl, path).
	Skipped int
	// LODSkipped counts inst lines dropped because they reference a
	// far-LOD stand-in model (name prefixed "LOD").
	LODSkipped int
}

// CountByInterior returns the number of placements per interior id.
func (ipl *IPL) CountByInterior() map[int32]int {
	counts := make(map[int32]int)
	for _, p := range ipl.Placements {
		counts[p.Interior]++
	}
	return counts
}

// GetByModel returns all placements referencing the given model name.
// Matching is case-insensitive.
func (ipl *IPL) GetByModel(name string) []*Placement {
	var result []*Placement
	for i := range ipl.Placements {
		if strings.EqualFold(ipl.Placements[i].ModelName, name) {
			result = append(result, &ipl.Placements[i])
		}
	}
	return result
}

// ParseIPL parses an item placement file. Unknown sections are consumed
// without being interpreted.
func ParseIPL(data string) (*IPL, error) {
	records, err := scanSections(data)
	if err != nil {
		return nil, err
	}

	ipl := &IPL{}
	for _, rec := range records {
		switch rec.Section {
		case "inst":
			// Far-LOD stand-in instances are dropped up front. The
			// prefix check is case-sensitive: the files name them
			// LODxxx, and lowercase names are real geometry.
			if len(rec.Fields) >= 2 && strings.HasPrefix(rec.Fields[1], "LOD") {
				ipl.LODSkipped++
				continue
			}
			p, err := parsePlacement(rec)
			if err != nil {
				return nil, err
			}
			ipl.Placements = append(ipl.Placements, *p)

		default:
			ipl.Skipped++
		}
	}

	return ipl, nil
}

// parsePlacement decodes one inst line. Two positional layouts exist:
//
//	12 fields: id, model, x, y, z, sx, sy, sz, rx, ry, rz, rw
//	13 fields: id, model, interior, x, y, z, sx, sy, sz, rx, ry, rz, rw
//
// Extra trailing fields are ignored.
func parsePlacement(rec textRecord) (*Placement, error) {
	if len(rec.Fields) < 12 {
		return nil, fmt.Errorf("%w: line %d: inst record needs at least 12 fields, got %d",
			ErrSyntax, rec.Line, len(rec.Fields))
	}

	p := &Placement{}

	var err error
	if p.ID, err = parseUint(rec.Fields[0], "instance id", rec.Line); err != nil {
		return nil, err
	}
	p.ModelName = rec.Fields[1]

	// The 13-field layout inserts the interior id after the model name.
	base := 2
	if len(rec.Fields) >= 13 {
		if p.Interior, err = parseInt(rec.Fields[2], "interior id", rec.Line); err != nil {
			return nil, err
		}
		base = 3
	}

	names := [10]string{
		"position x", "position y", "position z",
		"scale x", "scale y", "scale z",
		"rotation x", "rotation y", "rotation z", "rotation w",
	}
	var values [10]float32
	for i := 0; i < 10; i++ {
		if values[i], err = parseFloat(rec.Fields[base+i], names[i], rec.Line); err != nil {
			return nil, err
		}
	}

	copy(p.Position[:], values[0:3])
	copy(p.Scale[:], values[3:6])
	copy(p.Rotation[:], values[6:10])

	return p, nil
}

// ParseIPLFile parses an item placement file from disk.
func ParseIPLFile(path string) (*IPL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading IPL file: %w", err)
	}
	return ParseIPL(string(data))
}
