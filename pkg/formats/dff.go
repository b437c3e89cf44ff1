// Package formats provides parsers for the legacy game resource formats.
// DFF (model clump) parser for chunk-based mesh archives.
package formats

import (
	"errors"
	"fmt"
	"os"
)

// DFF format errors.
var (
	ErrNotAClump       = errors.New("not a model clump: bad root section")
	ErrInvalidGeomData = errors.New("invalid geometry data")
)

// Geometry format flags stored in the geometry struct header.
const (
	geomTristrip  = 0x01
	geomPositions = 0x02
	geomTextured  = 0x04
	geomPrelit    = 0x08
	geomNormals   = 0x10
)

// Sanity caps for count fields. Anything above these is treated as
// corruption rather than attempting the allocation.
const (
	maxGeometries = 4096
	maxVertices   = 1 << 20
	maxTriangles  = 1 << 20
	maxMaterials  = 1024
)

// FilterMode is a texture filtering mode.
type FilterMode uint8

// Texture filtering modes.
const (
	FilterNone            FilterMode = 0
	FilterNearest         FilterMode = 1
	FilterLinear          FilterMode = 2
	FilterMipNearest      FilterMode = 3
	FilterMipLinear       FilterMode = 4
	FilterLinearMipLinear FilterMode = 6
)

// AddressMode is a texture coordinate addressing mode.
type AddressMode uint8

// Texture addressing modes.
const (
	AddressNone   AddressMode = 0
	AddressWrap   AddressMode = 1
	AddressMirror AddressMode = 2
	AddressClamp  AddressMode = 3
	AddressBorder AddressMode = 4
)

// Sphere is a bounding sphere.
type Sphere struct {
	Center [3]float32
	Radius float32
}

// Triangle is one indexed face. MaterialID indexes the geometry's
// material list.
type Triangle struct {
	V1, V2, V3 uint16
	MaterialID uint16
}

// TextureRef names a texture inside the dictionary the owning model
// was paired with.
type TextureRef struct {
	Name      string
	MaskName  string
	Filtering FilterMode
	AddressU  AddressMode
	AddressV  AddressMode
}

// Material is one material slot of a geometry. Texture is nil for
// untextured (flat color) slots.
type Material struct {
	Color    [4]uint8 // RGBA tint
	Ambient  float32
	Specular float32
	Diffuse  float32
	Texture  *TextureRef
}

// Geometry is one renderable mesh part of a clump.
type Geometry struct {
	Tristrip  bool
	Positions [][3]float32
	Normals   [][3]float32 // Empty when the model carries none
	UVSets    [][][2]float32
	Prelit    [][4]uint8 // Per-vertex colors, empty when absent
	Triangles []Triangle
	Bounds    Sphere
	Materials []Material
}

// UV returns the first UV set, or nil if the geometry is untextured.
func (g *Geometry) UV() [][2]float32 {
	if len(g.UVSets) == 0 {
		return nil
	}
	return g.UVSets[0]
}

// Clump is a parsed model archive: an ordered sequence of geometries.
type Clump struct {
	AtomicCount uint32
	Geometries  []Geometry
}

// TotalVertexCount returns the vertex count summed over all geometries.
func (c *Clump) TotalVertexCount() int {
	total := 0
	for i := range c.Geometries {
		total += len(c.Geometries[i].Positions)
	}
	return total
}

// TotalTriangleCount returns the triangle count summed over all geometries.
func (c *Clump) TotalTriangleCount() int {
	total := 0
	for i := range c.Geometries {
		total += len(c.Geometries[i].Triangles)
	}
	return total
}

// TextureNames returns the distinct texture names referenced by any
// material slot, in first-use order.
func (c *Clump) TextureNames() []string {
	seen := make(map[string]bool)
	var names []string
	for i := range c.Geometries {
		for _, mat := range c.Geometries[i].Materials {
			if mat.Texture == nil || seen[mat.Texture.Name] {
				continue
			}
			seen[mat.Texture.Name] = true
			names = append(names, mat.Texture.Name)
		}
	}
	return names
}

// ParseDFF parses a model clump from raw bytes. Unknown child sections
// (frame lists, atomics, plugin extensions) are skipped using their
// declared sizes.
func ParseDFF(data []byte) (*Clump, error) {
	root := newChunkReader(data)

	hdr, cr, err := root.section()
	if err != nil {
		return nil, err
	}
	if hdr.ID != SecClump {
		return nil, fmt.Errorf("%w: found %s", ErrNotAClump, hdr.ID)
	}

	clump := &Clump{}

	// Clump struct: atomic count (light/camera counts follow in newer
	// stamps; whatever remains is ignored).
	cs, err := cr.expect(SecStruct)
	if err != nil {
		return nil, err
	}
	if clump.AtomicCount, err = cs.u32(); err != nil {
		return nil, err
	}

	glist, err := cr.findChild(SecGeometryList)
	if err != nil {
		return nil, err
	}
	if glist == nil {
		return nil, fmt.Errorf("%w: clump has no geometry list", ErrMalformedChunk)
	}

	gs, err := glist.expect(SecStruct)
	if err != nil {
		return nil, err
	}
	geomCount, err := gs.u32()
	if err != nil {
		return nil, err
	}
	if geomCount > maxGeometries {
		return nil, fmt.Errorf("%w: geometry count %d", ErrInvalidGeomData, geomCount)
	}

	clump.Geometries = make([]Geometry, 0, geomCount)
	for i := uint32(0); i < geomCount; i++ {
		gr, err := glist.expect(SecGeometry)
		if err != nil {
			return nil, fmt.Errorf("geometry %d: %w", i, err)
		}
		geom, err := parseGeometry(gr)
		if err != nil {
			return nil, fmt.Errorf("geometry %d: %w", i, err)
		}
		clump.Geometries = append(clump.Geometries, *geom)
	}

	return clump, nil
}

// parseGeometry decodes one Geometry section: the struct payload with
// vertex/triangle data followed by the material list child.
func parseGeometry(gr *chunkReader) (*Geometry, error) {
	s, err := gr.expect(SecStruct)
	if err != nil {
		return nil, err
	}

	format, err := s.u32()
	if err != nil {
		return nil, err
	}
	triCount, err := s.u32()
	if err != nil {
		return nil, err
	}
	vertCount, err := s.u32()
	if err != nil {
		return nil, err
	}
	morphCount, err := s.u32()
	if err != nil {
		return nil, err
	}

	if vertCount > maxVertices || triCount > maxTriangles || morphCount == 0 {
		return nil, fmt.Errorf("%w: %d vertices, %d triangles, %d morph targets",
			ErrInvalidGeomData, vertCount, triCount, morphCount)
	}

	geom := &Geometry{Tristrip: format&geomTristrip != 0}

	// Per-vertex colors.
	if format&geomPrelit != 0 {
		geom.Prelit = make([][4]uint8, vertCount)
		for i := uint32(0); i < vertCount; i++ {
			b, err := s.bytes(4)
			if err != nil {
				return nil, err
			}
			copy(geom.Prelit[i][:], b)
		}
	}

	// UV sets: count lives in the high byte of the format word, with
	// the textured bit implying one set when the count is zero.
	uvSets := int(format >> 16 & 0xFF)
	if uvSets == 0 && format&geomTextured != 0 {
		uvSets = 1
	}
	for set := 0; set < uvSets; set++ {
		uv := make([][2]float32, vertCount)
		for i := uint32(0); i < vertCount; i++ {
			if uv[i][0], err = s.f32(); err != nil {
				return nil, err
			}
			if uv[i][1], err = s.f32(); err != nil {
				return nil, err
			}
		}
		geom.UVSets = append(geom.UVSets, uv)
	}

	// Triangles are stored vertex2, vertex1, materialID, vertex3.
	geom.Triangles = make([]Triangle, triCount)
	for i := uint32(0); i < triCount; i++ {
		tri := &geom.Triangles[i]
		if tri.V2, err = s.u16(); err != nil {
			return nil, err
		}
		if tri.V1, err = s.u16(); err != nil {
			return nil, err
		}
		if tri.MaterialID, err = s.u16(); err != nil {
			return nil, err
		}
		if tri.V3, err = s.u16(); err != nil {
			return nil, err
		}
	}

	// Morph targets. Only the first carries the data the pipeline
	// keeps; the rest are consumed to stay aligned.
	for m := uint32(0); m < morphCount; m++ {
		var bounds Sphere
		if bounds.Center, err = s.vec3(); err != nil {
			return nil, err
		}
		if bounds.Radius, err = s.f32(); err != nil {
			return nil, err
		}
		hasPositions, err := s.u32()
		if err != nil {
			return nil, err
		}
		hasNormals, err := s.u32()
		if err != nil {
			return nil, err
		}

		positions, normals, err := readMorphData(s, vertCount, hasPositions != 0, hasNormals != 0)
		if err != nil {
			return nil, err
		}

		if m == 0 {
			geom.Bounds = bounds
			geom.Positions = positions
			geom.Normals = normals
		}
	}

	if format&geomPositions != 0 && len(geom.Positions) == 0 {
		return nil, fmt.Errorf("%w: format declares positions but morph target has none", ErrInvalidGeomData)
	}
	if format&geomNormals != 0 && len(geom.Normals) == 0 {
		return nil, fmt.Errorf("%w: format declares normals but morph target has none", ErrInvalidGeomData)
	}

	matList, err := gr.findChild(SecMaterialList)
	if err != nil {
		return nil, err
	}
	if matList == nil {
		return nil, fmt.Errorf("%w: geometry has no material list", ErrMalformedChunk)
	}
	if geom.Materials, err = parseMaterialList(matList); err != nil {
		return nil, err
	}

	return geom, nil
}

func readMorphData(s *chunkReader, vertCount uint32, hasPositions, hasNormals bool) ([][3]float32, [][3]float32, error) {
	var positions, normals [][3]float32
	var err error

	if hasPositions {
		positions = make([][3]float32, vertCount)
		for i := uint32(0); i < vertCount; i++ {
			if positions[i], err = s.vec3(); err != nil {
				return nil, nil, err
			}
		}
	}
	if hasNormals {
		normals = make([][3]float32, vertCount)
		for i := uint32(0); i < vertCount; i++ {
			if normals[i], err = s.vec3(); err != nil {
				return nil, nil, err
			}
		}
	}
	return positions, normals, nil
}

// parseMaterialList decodes a MaterialList section: an instance index
// array in the struct, then one Material section per new slot. An
// index >= 0 reuses an earlier slot instead of declaring a new one.
func parseMaterialList(mr *chunkReader) ([]Material, error) {
	ms, err := mr.expect(SecStruct)
	if err != nil {
		return nil, err
	}
	count, err := ms.u32()
	if err != nil {
		return nil, err
	}
	if count > maxMaterials {
		return nil, fmt.Errorf("%w: material count %d", ErrInvalidGeomData, count)
	}

	indices := make([]int32, count)
	for i := range indices {
		v, err := ms.u32()
		if err != nil {
			return nil, err
		}
		indices[i] = int32(v)
	}

	materials := make([]Material, count)
	for i, idx := range indices {
		if idx >= 0 {
			if int(idx) >= i {
				return nil, fmt.Errorf("%w: material %d reuses forward slot %d", ErrInvalidGeomData, i, idx)
			}
			materials[i] = materials[idx]
			continue
		}
		mat, err := mr.expect(SecMaterial)
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		if materials[i], err = parseMaterial(mat); err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
	}

	return materials, nil
}

func parseMaterial(mr *chunkReader) (Material, error) {
	var mat Material

	s, err := mr.expect(SecStruct)
	if err != nil {
		return mat, err
	}

	if err := s.skip(4); err != nil { // flags, unused
		return mat, err
	}
	color, err := s.bytes(4)
	if err != nil {
		return mat, err
	}
	copy(mat.Color[:], color)
	if err := s.skip(4); err != nil { // render flags, unused
		return mat, err
	}
	textured, err := s.u32()
	if err != nil {
		return mat, err
	}
	if mat.Ambient, err = s.f32(); err != nil {
		return mat, err
	}
	if mat.Specular, err = s.f32(); err != nil {
		return mat, err
	}
	if mat.Diffuse, err = s.f32(); err != nil {
		return mat, err
	}

	if textured != 0 {
		tr, err := mr.expect(SecTexture)
		if err != nil {
			return mat, err
		}
		ref, err := parseTextureRef(tr)
		if err != nil {
			return mat, err
		}
		mat.Texture = ref
	}

	return mat, nil
}

func parseTextureRef(tr *chunkReader) (*TextureRef, error) {
	ref := &TextureRef{}

	s, err := tr.expect(SecStruct)
	if err != nil {
		return nil, err
	}
	filtering, err := s.u8()
	if err != nil {
		return nil, err
	}
	addressing, err := s.u8()
	if err != nil {
		return nil, err
	}
	ref.Filtering = FilterMode(filtering)
	ref.AddressU = AddressMode(addressing >> 4)
	ref.AddressV = AddressMode(addressing & 0x0F)

	if ref.Name, err = tr.sectionString(); err != nil {
		return nil, err
	}
	if ref.MaskName, err = tr.sectionString(); err != nil {
		return nil, err
	}

	return ref, nil
}

// ParseDFFFile parses a model clump from disk.
func ParseDFFFile(path string) (*Clump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading DFF file: %w", err)
	}
	return ParseDFF(data)
}
