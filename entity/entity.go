// Package entity assigns and tracks stable identifiers for the
// elements stored inside containers (spec.md §3.2).
package entity

import (
	"fmt"
	"sync"

	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// ID is an opaque identifier for one element inside one named
// container instance. IDs are assigned by a Registry and never reused.
type ID int64

// Kind is the closed tag of entity-bearing elements.
type Kind string

const (
	KindPoint    Kind = "point"
	KindLine     Kind = "line"
	KindMask     Kind = "mask"
	KindEvent    Kind = "event"
	KindInterval Kind = "interval"
)

type key struct {
	dataKey    string
	kind       Kind
	time       timeframe.Index
	localIndex int
}

// Registry assigns stable IDs keyed by (data_key, kind, time,
// local_index). Once assigned, the triple stays stable for the
// lifetime of a container instance. Registries are process-wide state
// owned by the embedding host (spec.md §5); this implementation
// synchronizes internally so a single Registry can be shared across
// containers built on different goroutines, though a given pipeline
// execution is expected to stay single-threaded.
type Registry struct {
	mu   sync.Mutex
	next ID
	ids  map[key]ID
}

// NewRegistry constructs an empty entity registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[key]ID)}
}

// Assign returns the stable ID for (dataKey, kind, t, localIndex),
// allocating a fresh one on first use.
func (r *Registry) Assign(dataKey string, kind Kind, t timeframe.Index, localIndex int) ID {
	k := key{dataKey: dataKey, kind: kind, time: t, localIndex: localIndex}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.ids[k]; ok {
		return id
	}
	r.next++
	id := r.next
	r.ids[k] = id
	return id
}

// String renders an ID for logging.
func (id ID) String() string { return fmt.Sprintf("entity#%d", int64(id)) }
