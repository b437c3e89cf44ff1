package world

import (
	"github.com/Faultbox/liberty3/pkg/formats"
	"github.com/Faultbox/liberty3/pkg/math"
)

// Entity is one fully resolved object instance: the join of a
// placement with its definition, model, textures and collision. No
// field requires a further name lookup; rendering and physics
// consumers read it as-is.
type Entity struct {
	// InstanceID is the numeric id from the placement line.
	InstanceID uint32
	// Name is the definition/model name the placement referenced.
	Name string
	// Interior is the area the entity belongs to, 0 = outside world.
	Interior int32

	Definition *formats.ObjectDef
	Model      *formats.Clump

	// Textures is nil when the entity is untextured, either because
	// the definition names no dictionary or because the dictionary
	// failed to resolve (the latter is also reported as a diagnostic).
	Textures *formats.TextureDictionary

	// Collision is nil when the definition declares no collision or
	// no collision record exists for the model. Consumers must treat
	// nil as "no physics", never as an empty shape set.
	Collision *formats.CollisionRecord

	// Transform is the world-space placement in the resource files'
	// coordinate system. Consumers that want the engine's Y-up space
	// apply math.ToXZY to points and Quat.ToXZY to the rotation.
	Transform math.Transform
}

// HasCollision reports whether the entity carries collision shapes.
func (e *Entity) HasCollision() bool {
	return e.Collision != nil && !e.Collision.IsEmpty()
}

// Textured reports whether the entity resolved a texture dictionary.
func (e *Entity) Textured() bool {
	return e.Textures != nil
}

// DrawDistance returns the definition's nearest-LOD draw distance.
func (e *Entity) DrawDistance() float32 {
	return e.Definition.DrawDistance[0]
}

// DrawLast reports whether the entity should render after opaque
// geometry.
func (e *Entity) DrawLast() bool {
	return e.Definition.Flags.Has(formats.FlagDrawLast)
}
