// Package world implements the resource-to-world resolution pipeline:
// a registry of parsed resource records, the reference resolver that
// joins placements to their resources, and the world builder.
package world

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/Faultbox/liberty3/pkg/formats"
)

// Kind identifies the resource table a record lives in.
type Kind int

// Resource kinds.
const (
	KindModel Kind = iota // *formats.Clump
	KindTextureDict       // *formats.TextureDictionary
	KindCollision         // *formats.CollisionRecord
	KindDefinition        // *formats.ObjectDef
	kindCount
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindModel:
		return "Model"
	case KindTextureDict:
		return "TextureDict"
	case KindCollision:
		return "Collision"
	case KindDefinition:
		return "Definition"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

const shardCount = 16

// shard is one lock-striped slice of a kind's table.
type shard struct {
	mu    sync.RWMutex
	items map[string]any
}

// Registry maps (kind, name) keys to parsed resource records. Writes
// are last-write-wins, which is what lets override archives replace
// base-game records; reads during the load phase observe either the
// previous or the new record, never a partial one. One Registry
// instance belongs to one pipeline run.
type Registry struct {
	shards [kindCount][shardCount]shard
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for k := 0; k < int(kindCount); k++ {
		for s := 0; s < shardCount; s++ {
			r.shards[k][s].items = make(map[string]any)
		}
	}
	return r
}

// normalizeName lowercases a resource name. All registry keys are
// case-insensitive because the source files disagree on casing.
func normalizeName(name string) string {
	return strings.ToLower(name)
}

func (r *Registry) shardFor(kind Kind, name string) *shard {
	return &r.shards[kind][xxhash.Sum64String(name)%shardCount]
}

// Put inserts or overwrites the record under (kind, name).
func (r *Registry) Put(kind Kind, name string, record any) {
	key := normalizeName(name)
	s := r.shardFor(kind, key)
	s.mu.Lock()
	s.items[key] = record
	s.mu.Unlock()
}

// Get returns the record under (kind, name), if registered.
func (r *Registry) Get(kind Kind, name string) (any, bool) {
	key := normalizeName(name)
	s := r.shardFor(kind, key)
	s.mu.RLock()
	record, ok := s.items[key]
	s.mu.RUnlock()
	return record, ok
}

// Len returns the number of records registered under a kind.
func (r *Registry) Len(kind Kind) int {
	total := 0
	for i := range r.shards[kind] {
		s := &r.shards[kind][i]
		s.mu.RLock()
		total += len(s.items)
		s.mu.RUnlock()
	}
	return total
}

// Names returns the sorted names registered under a kind.
func (r *Registry) Names(kind Kind) []string {
	var names []string
	for i := range r.shards[kind] {
		s := &r.shards[kind][i]
		s.mu.RLock()
		for name := range s.items {
			names = append(names, name)
		}
		s.mu.RUnlock()
	}
	sort.Strings(names)
	return names
}

// Typed accessors. A wrong-typed record under a key is treated as
// absent rather than panicking the resolver.

// GetModel returns the model clump registered under name.
func (r *Registry) GetModel(name string) (*formats.Clump, bool) {
	record, ok := r.Get(KindModel, name)
	if !ok {
		return nil, false
	}
	clump, ok := record.(*formats.Clump)
	return clump, ok
}

// GetTextureDict returns the texture dictionary registered under name.
func (r *Registry) GetTextureDict(name string) (*formats.TextureDictionary, bool) {
	record, ok := r.Get(KindTextureDict, name)
	if !ok {
		return nil, false
	}
	dict, ok := record.(*formats.TextureDictionary)
	return dict, ok
}

// GetCollision returns the collision record registered under name.
func (r *Registry) GetCollision(name string) (*formats.CollisionRecord, bool) {
	record, ok := r.Get(KindCollision, name)
	if !ok {
		return nil, false
	}
	col, ok := record.(*formats.CollisionRecord)
	return col, ok
}

// GetDefinition returns the object definition registered under name.
func (r *Registry) GetDefinition(name string) (*formats.ObjectDef, bool) {
	record, ok := r.Get(KindDefinition, name)
	if !ok {
		return nil, false
	}
	def, ok := record.(*formats.ObjectDef)
	return def, ok
}
