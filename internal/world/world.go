package world

import (
	"errors"
	"sort"
)

// ErrEmptyWorld is returned by Build when the caller required a
// non-empty world and got none.
var ErrEmptyWorld = errors.New("world is empty")

// World is the final resolved world: entities grouped by interior.
// It is append-only during Build and immutable afterwards, so it can
// be shared across renderer and physics goroutines without locking.
type World struct {
	interiors map[int32][]Entity
	total     int
}

// Build groups resolved entities by interior id. Entity order within
// an interior follows placement order. With requireNonEmpty set, an
// empty input is an error; by default an empty world is legal.
func Build(entities []Entity, requireNonEmpty bool) (*World, error) {
	if len(entities) == 0 && requireNonEmpty {
		return nil, ErrEmptyWorld
	}

	w := &World{interiors: make(map[int32][]Entity)}
	for _, e := range entities {
		w.interiors[e.Interior] = append(w.interiors[e.Interior], e)
		w.total++
	}
	return w, nil
}

// EntityCount returns the total number of entities.
func (w *World) EntityCount() int {
	return w.total
}

// Interiors returns the interior ids present, sorted.
func (w *World) Interiors() []int32 {
	ids := make([]int32, 0, len(w.interiors))
	for id := range w.interiors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CountIn returns the number of entities in one interior.
func (w *World) CountIn(interior int32) int {
	return len(w.interiors[interior])
}

// ForEachIn visits each entity of an interior in placement order.
// Return false from visit to stop early.
func (w *World) ForEachIn(interior int32, visit func(*Entity) bool) {
	entities := w.interiors[interior]
	for i := range entities {
		if !visit(&entities[i]) {
			return
		}
	}
}

// ForEach visits every entity, interiors in ascending order.
func (w *World) ForEach(visit func(*Entity) bool) {
	for _, id := range w.Interiors() {
		entities := w.interiors[id]
		for i := range entities {
			if !visit(&entities[i]) {
				return
			}
		}
	}
}
