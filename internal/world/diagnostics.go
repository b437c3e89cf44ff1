package world

import "fmt"

// FailureKind classifies why a placement failed (or degraded) during
// resolution.
type FailureKind int

// Resolution failure kinds.
const (
	// UnresolvedDefinition: the placement names a definition that was
	// never registered. The placement is dropped.
	UnresolvedDefinition FailureKind = iota
	// UnresolvedModel: the definition's model name has no registered
	// clump. The placement is dropped.
	UnresolvedModel
	// UnresolvedTexture: the definition's texture dictionary is
	// missing. The entity is kept, untextured.
	UnresolvedTexture
)

// String returns a human-readable failure name.
func (k FailureKind) String() string {
	switch k {
	case UnresolvedDefinition:
		return "UnresolvedDefinition"
	case UnresolvedModel:
		return "UnresolvedModel"
	case UnresolvedTexture:
		return "UnresolvedTexture"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Fatal reports whether this failure drops the entity (as opposed to
// degrading it).
func (k FailureKind) Fatal() bool {
	return k == UnresolvedDefinition || k == UnresolvedModel
}

// Diagnostic records one resolution failure. Diagnostics are collected
// and returned to the caller; they never abort the pipeline.
type Diagnostic struct {
	// PlacementID is the instance id of the failing placement.
	PlacementID uint32
	// Name is the unresolved reference: the definition name for
	// UnresolvedDefinition, the model name for UnresolvedModel, the
	// dictionary name for UnresolvedTexture.
	Name string
	Kind FailureKind
}

// String formats the diagnostic for logs.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %q (placement %d)", d.Kind, d.Name, d.PlacementID)
}
