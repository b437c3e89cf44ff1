package world

import (
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/liberty3/pkg/formats"
	"github.com/Faultbox/liberty3/pkg/math"
)

// DefaultLODCutoff is the draw distance above which a definition is
// treated as a far-LOD stand-in. The real meshes carry distances well
// under this; only the low-detail island models exceed it.
const DefaultLODCutoff float32 = 299.0

// Resolver joins placements against a registry that has finished its
// load phase. All methods are read-only with respect to the registry,
// so resolution can fan out across goroutines.
type Resolver struct {
	registry  *Registry
	log       *zap.Logger
	lodCutoff float32
}

// NewResolver creates a resolver over a settled registry. A zero
// lodCutoff selects DefaultLODCutoff.
func NewResolver(registry *Registry, log *zap.Logger, lodCutoff float32) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if lodCutoff == 0 {
		lodCutoff = DefaultLODCutoff
	}
	return &Resolver{registry: registry, log: log, lodCutoff: lodCutoff}
}

// Resolve resolves a single placement. Three outcomes exist:
// an entity (possibly with degrade diagnostics), nil with a fatal
// diagnostic, or nil with no diagnostics for skipped LOD stand-ins.
func (r *Resolver) Resolve(p *formats.Placement) (*Entity, []Diagnostic) {
	def, ok := r.registry.GetDefinition(p.ModelName)
	if !ok {
		return nil, []Diagnostic{{
			PlacementID: p.ID,
			Name:        p.ModelName,
			Kind:        UnresolvedDefinition,
		}}
	}

	// Far-LOD stand-ins duplicate real geometry at low detail; the
	// renderer collaborator regenerates them itself. A far-LOD draw
	// distance on a model without an LOD name is suspicious enough to
	// warn about.
	if def.DrawDistance[0] > r.lodCutoff {
		if strings.Contains(p.ModelName, "LOD") {
			r.log.Debug("skipping far-LOD placement",
				zap.String("name", p.ModelName),
				zap.Float32("draw_distance", def.DrawDistance[0]))
		} else {
			r.log.Warn("skipping far-LOD placement with non-LOD name",
				zap.String("name", p.ModelName),
				zap.Float32("draw_distance", def.DrawDistance[0]))
		}
		return nil, nil
	}

	model, ok := r.registry.GetModel(def.ModelName)
	if !ok {
		return nil, []Diagnostic{{
			PlacementID: p.ID,
			Name:        def.ModelName,
			Kind:        UnresolvedModel,
		}}
	}

	entity := &Entity{
		InstanceID: p.ID,
		Name:       p.ModelName,
		Interior:   p.Interior,
		Definition: def,
		Model:      model,
		Transform:  placementTransform(p),
	}

	var diags []Diagnostic

	// Texture absence degrades to untextured instead of dropping the
	// entity. A definition with no dictionary name is untextured by
	// design and produces no diagnostic.
	if def.TextureName != "" {
		if dict, ok := r.registry.GetTextureDict(def.TextureName); ok {
			entity.Textures = dict
		} else {
			diags = append(diags, Diagnostic{
				PlacementID: p.ID,
				Name:        def.TextureName,
				Kind:        UnresolvedTexture,
			})
		}
	}

	// Collision is optional: a NoCollision flag suppresses the lookup
	// and a missing record is normal for decorative objects.
	if !def.Flags.Has(formats.FlagNoCollision) {
		if col, ok := r.registry.GetCollision(def.ModelName); ok {
			entity.Collision = col
		}
	}

	return entity, diags
}

// placementTransform builds the entity transform from the placement
// fields. The transform stays in the resource files' coordinate
// system; consumers that want the engine's Y-up space apply
// math.ToXZY themselves.
func placementTransform(p *formats.Placement) math.Transform {
	return math.Transform{
		Position: math.Vec3FromArray(p.Position),
		Rotation: math.QuatFromArray(p.Rotation).Normalize(),
		Scale:    math.Vec3FromArray(p.Scale),
	}
}
