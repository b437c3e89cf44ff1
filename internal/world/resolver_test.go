package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/liberty3/pkg/formats"
	"github.com/Faultbox/liberty3/pkg/math"
)

// populateRegistry registers one fully linked object: definition d1
// referencing model m1 and dictionary t1, plus m1's collision record.
func populateRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.Put(KindDefinition, "m1", &formats.ObjectDef{
		ID:           100,
		ModelName:    "m1",
		TextureName:  "t1",
		MeshCount:    1,
		DrawDistance: [3]float32{120, 0, 0},
	})
	r.Put(KindModel, "m1", &formats.Clump{AtomicCount: 1})
	r.Put(KindTextureDict, "t1", &formats.TextureDictionary{})
	r.Put(KindCollision, "m1", &formats.CollisionRecord{
		Name:    "m1",
		Spheres: []formats.CollSphere{{Radius: 1}},
	})
	return r
}

func placementAt(x, y, z float32) *formats.Placement {
	return &formats.Placement{
		ID:        7,
		ModelName: "m1",
		Position:  [3]float32{x, y, z},
		Scale:     [3]float32{1, 1, 1},
		Rotation:  [4]float32{0, 0, 0, 1},
	}
}

func TestResolver_FullyLinkedEntity(t *testing.T) {
	r := NewResolver(populateRegistry(t), nil, 0)

	entity, diags := r.Resolve(placementAt(10, 0, 0))
	require.NotNil(t, entity)
	assert.Empty(t, diags)

	assert.Equal(t, uint32(7), entity.InstanceID)
	assert.Equal(t, "m1", entity.Name)
	require.NotNil(t, entity.Definition)
	require.NotNil(t, entity.Model)
	assert.True(t, entity.Textured())
	assert.True(t, entity.HasCollision())

	// The transform keeps the file-space coordinates unchanged.
	assert.Equal(t, math.Vec3{X: 10, Y: 0, Z: 0}, entity.Transform.Position)
	assert.Equal(t, math.QuatIdentity(), entity.Transform.Rotation)
	assert.Equal(t, math.Vec3{X: 1, Y: 1, Z: 1}, entity.Transform.Scale)
}

func TestResolver_UnknownDefinitionDropsPlacement(t *testing.T) {
	r := NewResolver(NewRegistry(), nil, 0)

	p := placementAt(0, 0, 0)
	p.ModelName = "ghost"
	entity, diags := r.Resolve(p)

	assert.Nil(t, entity)
	require.Len(t, diags, 1)
	assert.Equal(t, UnresolvedDefinition, diags[0].Kind)
	assert.Equal(t, "ghost", diags[0].Name)
	assert.True(t, diags[0].Kind.Fatal())
}

func TestResolver_FarLODSkippedSilently(t *testing.T) {
	reg := populateRegistry(t)
	reg.Put(KindDefinition, "m1", &formats.ObjectDef{
		ID:           100,
		ModelName:    "m1",
		DrawDistance: [3]float32{500, 0, 0},
	})
	r := NewResolver(reg, nil, 0)

	entity, diags := r.Resolve(placementAt(0, 0, 0))
	assert.Nil(t, entity)
	assert.Empty(t, diags, "LOD stand-ins are skipped without a diagnostic")
}

func TestResolver_CustomLODCutoff(t *testing.T) {
	r := NewResolver(populateRegistry(t), nil, 100)

	// The default definition carries draw distance 120, above the
	// custom cutoff.
	entity, diags := r.Resolve(placementAt(0, 0, 0))
	assert.Nil(t, entity)
	assert.Empty(t, diags)
}

func TestResolver_MissingModelDropsPlacement(t *testing.T) {
	reg := NewRegistry()
	reg.Put(KindDefinition, "m1", &formats.ObjectDef{ModelName: "m1", DrawDistance: [3]float32{50}})
	r := NewResolver(reg, nil, 0)

	entity, diags := r.Resolve(placementAt(0, 0, 0))
	assert.Nil(t, entity)
	require.Len(t, diags, 1)
	assert.Equal(t, UnresolvedModel, diags[0].Kind)
}

func TestResolver_MissingTextureDegrades(t *testing.T) {
	reg := populateRegistry(t)
	reg.Put(KindDefinition, "m1", &formats.ObjectDef{
		ModelName:    "m1",
		TextureName:  "missing_dict",
		DrawDistance: [3]float32{50},
	})
	r := NewResolver(reg, nil, 0)

	entity, diags := r.Resolve(placementAt(0, 0, 0))
	require.NotNil(t, entity, "a missing dictionary must not drop the entity")
	assert.False(t, entity.Textured())

	require.Len(t, diags, 1)
	assert.Equal(t, UnresolvedTexture, diags[0].Kind)
	assert.False(t, diags[0].Kind.Fatal())
}

func TestResolver_UnnamedTextureIsNotAFailure(t *testing.T) {
	reg := populateRegistry(t)
	reg.Put(KindDefinition, "m1", &formats.ObjectDef{
		ModelName:    "m1",
		TextureName:  "",
		DrawDistance: [3]float32{50},
	})
	r := NewResolver(reg, nil, 0)

	entity, diags := r.Resolve(placementAt(0, 0, 0))
	require.NotNil(t, entity)
	assert.Nil(t, entity.Textures)
	assert.Empty(t, diags)
}

func TestResolver_NoCollisionFlagSuppressesLookup(t *testing.T) {
	reg := populateRegistry(t)
	reg.Put(KindDefinition, "m1", &formats.ObjectDef{
		ModelName:    "m1",
		DrawDistance: [3]float32{50},
		Flags:        formats.FlagNoCollision,
	})
	r := NewResolver(reg, nil, 0)

	entity, diags := r.Resolve(placementAt(0, 0, 0))
	require.NotNil(t, entity)
	assert.Empty(t, diags)
	assert.Nil(t, entity.Collision, "collision stays nil even though a record is registered")
	assert.False(t, entity.HasCollision())
}

func TestResolver_AbsentCollisionIsNil(t *testing.T) {
	reg := NewRegistry()
	reg.Put(KindDefinition, "m1", &formats.ObjectDef{ModelName: "m1", DrawDistance: [3]float32{50}})
	reg.Put(KindModel, "m1", &formats.Clump{})
	r := NewResolver(reg, nil, 0)

	entity, diags := r.Resolve(placementAt(0, 0, 0))
	require.NotNil(t, entity)
	assert.Empty(t, diags, "no collision record is normal, not a failure")
	assert.Nil(t, entity.Collision)
}

func TestResolver_InteriorCarriedOntoEntity(t *testing.T) {
	r := NewResolver(populateRegistry(t), nil, 0)

	p := placementAt(0, 0, 0)
	p.Interior = 4
	entity, _ := r.Resolve(p)
	require.NotNil(t, entity)
	assert.Equal(t, int32(4), entity.Interior)
}

func TestResolver_DegenerateRotationNormalized(t *testing.T) {
	r := NewResolver(populateRegistry(t), nil, 0)

	p := placementAt(0, 0, 0)
	p.Rotation = [4]float32{0, 0, 0, 0}
	entity, _ := r.Resolve(p)
	require.NotNil(t, entity)
	assert.Equal(t, math.QuatIdentity(), entity.Transform.Rotation)
}
