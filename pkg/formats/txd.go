// Package formats provides parsers for the legacy game resource formats.
// TXD (texture dictionary) parser for chunk-based texture archives.
package formats

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// TXD format errors.
var (
	ErrNotATexDict       = errors.New("not a texture dictionary: bad root section")
	ErrInvalidRaster     = errors.New("invalid raster data")
	ErrUnsupportedRaster = errors.New("unsupported raster format")
)

// RasterFormat is the pixel format tag of a raster.
type RasterFormat uint32

// Base raster formats (low 12 bits) and extension flags.
const (
	Raster1555 RasterFormat = 0x0100 // 16-bit, 1-bit alpha
	Raster565  RasterFormat = 0x0200 // 16-bit, no alpha
	Raster4444 RasterFormat = 0x0300 // 16-bit, 4-bit alpha
	RasterLum8 RasterFormat = 0x0400 // 8-bit luminance
	Raster8888 RasterFormat = 0x0500 // 32-bit BGRA
	Raster888  RasterFormat = 0x0600 // 32-bit BGRX

	RasterAutoMipmap RasterFormat = 0x1000
	RasterPal8       RasterFormat = 0x2000
	RasterPal4       RasterFormat = 0x4000
	RasterMipmapped  RasterFormat = 0x8000
)

// Base strips the extension flags, leaving the pixel layout tag.
func (f RasterFormat) Base() RasterFormat {
	return f &^ (RasterAutoMipmap | RasterPal8 | RasterPal4 | RasterMipmapped)
}

// Paletted returns true for PAL4/PAL8 indexed rasters.
func (f RasterFormat) Paletted() bool {
	return f&(RasterPal8|RasterPal4) != 0
}

// String returns a human-readable format name.
func (f RasterFormat) String() string {
	var name string
	switch f.Base() {
	case Raster1555:
		name = "1555"
	case Raster565:
		name = "565"
	case Raster4444:
		name = "4444"
	case RasterLum8:
		name = "LUM8"
	case Raster8888:
		name = "8888"
	case Raster888:
		name = "888"
	default:
		name = fmt.Sprintf("Unknown(0x%04X)", uint32(f.Base()))
	}
	if f&RasterPal8 != 0 {
		name += "+PAL8"
	}
	if f&RasterPal4 != 0 {
		name += "+PAL4"
	}
	return name
}

// Raster is one named texture inside a dictionary. The payload stays
// in its on-disk layout; Decode expands it to RGBA.
type Raster struct {
	Name      string
	MaskName  string
	Format    RasterFormat
	Width     uint16
	Height    uint16
	Depth     uint8
	HasAlpha  bool
	Palette   []byte   // RGBA palette entries for PAL4/PAL8, nil otherwise
	MipLevels [][]byte // Raw pixel payload per mip level, largest first
}

// Image is a decoded RGBA texture level.
type Image struct {
	Width  int
	Height int
	Pixels []byte // RGBA, 4 bytes per pixel
}

// Decode expands the top mip level to RGBA. Paletted rasters are
// expanded through their palette; BGRA orders are swizzled.
func (r *Raster) Decode() (*Image, error) {
	if len(r.MipLevels) == 0 {
		return nil, fmt.Errorf("%w: raster %q has no mip levels", ErrInvalidRaster, r.Name)
	}

	w, h := int(r.Width), int(r.Height)
	data := r.MipLevels[0]
	out := make([]byte, w*h*4)

	switch {
	case r.Format&RasterPal8 != 0:
		return r.decodePaletted(data, out, w, h, 256)

	case r.Format&RasterPal4 != 0:
		return r.decodePaletted(data, out, w, h, 16)

	case r.Format.Base() == Raster8888 || r.Format.Base() == Raster888:
		if len(data) < w*h*4 {
			return nil, fmt.Errorf("%w: raster %q payload too small", ErrInvalidRaster, r.Name)
		}
		// BGRA to RGBA.
		for i := 0; i < w*h; i++ {
			out[i*4+0] = data[i*4+2]
			out[i*4+1] = data[i*4+1]
			out[i*4+2] = data[i*4+0]
			out[i*4+3] = data[i*4+3]
		}
		if r.Format.Base() == Raster888 {
			for i := 0; i < w*h; i++ {
				out[i*4+3] = 0xFF
			}
		}
		return &Image{Width: w, Height: h, Pixels: out}, nil

	case r.Format.Base() == RasterLum8:
		if len(data) < w*h {
			return nil, fmt.Errorf("%w: raster %q payload too small", ErrInvalidRaster, r.Name)
		}
		for i := 0; i < w*h; i++ {
			out[i*4+0] = data[i]
			out[i*4+1] = data[i]
			out[i*4+2] = data[i]
			out[i*4+3] = 0xFF
		}
		return &Image{Width: w, Height: h, Pixels: out}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRaster, r.Format)
	}
}

func (r *Raster) decodePaletted(data, out []byte, w, h, colors int) (*Image, error) {
	if len(r.Palette) < colors*4 {
		return nil, fmt.Errorf("%w: raster %q palette too small", ErrInvalidRaster, r.Name)
	}
	if len(data) < w*h {
		return nil, fmt.Errorf("%w: raster %q payload too small", ErrInvalidRaster, r.Name)
	}
	for i := 0; i < w*h; i++ {
		idx := int(data[i])
		if idx >= colors {
			return nil, fmt.Errorf("%w: raster %q index %d outside %d-color palette", ErrInvalidRaster, r.Name, idx, colors)
		}
		copy(out[i*4:i*4+4], r.Palette[idx*4:idx*4+4])
	}
	return &Image{Width: w, Height: h, Pixels: out}, nil
}

// TextureDictionary is a parsed texture archive.
type TextureDictionary struct {
	Rasters []Raster
}

// Find returns the raster with the given name, or nil. Matching is
// case-insensitive.
func (t *TextureDictionary) Find(name string) *Raster {
	for i := range t.Rasters {
		if strings.EqualFold(t.Rasters[i].Name, name) {
			return &t.Rasters[i]
		}
	}
	return nil
}

// Names returns all raster names in dictionary order.
func (t *TextureDictionary) Names() []string {
	names := make([]string, len(t.Rasters))
	for i := range t.Rasters {
		names[i] = t.Rasters[i].Name
	}
	return names
}

// ParseTXD parses a texture dictionary from raw bytes. Unknown child
// sections are skipped by declared size.
func ParseTXD(data []byte) (*TextureDictionary, error) {
	root := newChunkReader(data)

	hdr, tr, err := root.section()
	if err != nil {
		return nil, err
	}
	if hdr.ID != SecTexDict {
		return nil, fmt.Errorf("%w: found %s", ErrNotATexDict, hdr.ID)
	}

	s, err := tr.expect(SecStruct)
	if err != nil {
		return nil, err
	}
	count, err := s.u16()
	if err != nil {
		return nil, err
	}
	// Device id follows the count; not interpreted.

	dict := &TextureDictionary{Rasters: make([]Raster, 0, count)}
	for i := uint16(0); i < count; i++ {
		rr, err := tr.expect(SecRaster)
		if err != nil {
			return nil, fmt.Errorf("raster %d: %w", i, err)
		}
		raster, err := parseRaster(rr)
		if err != nil {
			return nil, fmt.Errorf("raster %d: %w", i, err)
		}
		dict.Rasters = append(dict.Rasters, *raster)
	}

	return dict, nil
}

// parseRaster decodes one Raster section struct payload.
func parseRaster(rr *chunkReader) (*Raster, error) {
	s, err := rr.expect(SecStruct)
	if err != nil {
		return nil, err
	}

	raster := &Raster{}

	if err := s.skip(8); err != nil { // platform id, filter/address flags
		return nil, err
	}
	if raster.Name, err = s.fixedString(32); err != nil {
		return nil, err
	}
	if raster.MaskName, err = s.fixedString(32); err != nil {
		return nil, err
	}

	format, err := s.u32()
	if err != nil {
		return nil, err
	}
	raster.Format = RasterFormat(format)

	hasAlpha, err := s.u32()
	if err != nil {
		return nil, err
	}
	raster.HasAlpha = hasAlpha != 0

	if raster.Width, err = s.u16(); err != nil {
		return nil, err
	}
	if raster.Height, err = s.u16(); err != nil {
		return nil, err
	}
	if raster.Depth, err = s.u8(); err != nil {
		return nil, err
	}
	levels, err := s.u8()
	if err != nil {
		return nil, err
	}
	if err := s.skip(2); err != nil { // raster type, compression
		return nil, err
	}

	if raster.Width == 0 || raster.Height == 0 || levels == 0 {
		return nil, fmt.Errorf("%w: raster %q is %dx%d with %d levels",
			ErrInvalidRaster, raster.Name, raster.Width, raster.Height, levels)
	}

	if raster.Format&RasterPal8 != 0 {
		if raster.Palette, err = s.bytes(256 * 4); err != nil {
			return nil, err
		}
	} else if raster.Format&RasterPal4 != 0 {
		if raster.Palette, err = s.bytes(16 * 4); err != nil {
			return nil, err
		}
	}

	raster.MipLevels = make([][]byte, 0, levels)
	for level := uint8(0); level < levels; level++ {
		size, err := s.u32()
		if err != nil {
			return nil, err
		}
		payload, err := s.bytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("mip level %d: %w", level, err)
		}
		raster.MipLevels = append(raster.MipLevels, payload)
	}

	return raster, nil
}

// ParseTXDFile parses a texture dictionary from disk.
func ParseTXDFile(path string) (*TextureDictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading TXD file: %w", err)
	}
	return ParseTXD(data)
}
