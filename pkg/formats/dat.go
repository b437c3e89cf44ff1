// Package formats provides parsers for the legacy game resource formats.
// DAT manifest parser for the top-level data file listing every
// resource file the engine should load.
package formats

import (
	"fmt"
	"os"
	"strings"
)

// ManifestKind identifies what a manifest entry points at.
type ManifestKind int

// Manifest entry kinds.
const (
	ManifestIDE     ManifestKind = iota // Item definition file
	ManifestIPL                         // Item placement file
	ManifestCol                         // Collision archive
	ManifestImg                         // Resource container archive
	ManifestSplash                      // Loading screen image (ignored by the pipeline)
	ManifestMapZone                     // Zone placement file, parsed as IPL
)

// String returns a human-readable kind name.
func (k ManifestKind) String() string {
	switch k {
	case ManifestIDE:
		return "IDE"
	case ManifestIPL:
		return "IPL"
	case ManifestCol:
		return "Col"
	case ManifestImg:
		return "Img"
	case ManifestSplash:
		return "Splash"
	case ManifestMapZone:
		return "MapZone"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// ManifestEntry is one directive line from the manifest.
type ManifestEntry struct {
	Kind ManifestKind
	Path string
	Line int
}

// Manifest is the parsed top-level data file. Entry order is
// preserved: it is the declaration order the engine loads files in.
type Manifest struct {
	Entries []ManifestEntry
	// Unknown holds directive words the parser did not recognize,
	// preserved for diagnostics.
	Unknown []string
}

// ByKind returns all entries of one kind, in declaration order.
func (m *Manifest) ByKind(kind ManifestKind) []ManifestEntry {
	var result []ManifestEntry
	for _, e := range m.Entries {
		if e.Kind == kind {
			result = append(result, e)
		}
	}
	return result
}

// ParseManifest parses the top-level data file. Each non-comment line
// is "directive path"; unknown directives are collected rather than
// failing, so newer manifests still load.
func ParseManifest(data string) (*Manifest, error) {
	m := &Manifest{}

	for i, raw := range strings.Split(data, "\n") {
		lineNo := i + 1
		fields := splitFields(strings.TrimSpace(raw))
		if len(fields) == 0 {
			continue
		}

		directive := strings.ToLower(fields[0])

		var kind ManifestKind
		pathField := 1
		switch directive {
		case "ide":
			kind = ManifestIDE
		case "ipl":
			kind = ManifestIPL
		case "mapzone":
			kind = ManifestMapZone
		case "colfile":
			// colfile lines carry a numeric zone column: "colfile 0 path".
			kind = ManifestCol
			pathField = 2
		case "img", "cdimage":
			kind = ManifestImg
		case "splash":
			kind = ManifestSplash
		default:
			m.Unknown = append(m.Unknown, directive)
			continue
		}

		if len(fields) <= pathField {
			return nil, fmt.Errorf("%w: line %d: %s directive is missing its path", ErrSyntax, lineNo, directive)
		}

		m.Entries = append(m.Entries, ManifestEntry{
			Kind: kind,
			Path: fields[pathField],
			Line: lineNo,
		})
	}

	return m, nil
}

// ParseManifestFile parses a manifest file from disk.
func ParseManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest file: %w", err)
	}
	return ParseManifest(string(data))
}
