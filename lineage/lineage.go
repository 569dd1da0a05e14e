// Package lineage implements spec.md §3.6 and §4.7: the tagged-variant
// Lineage descriptor, a LineageRegistry tracking one entry per
// container key plus staleness propagation, and a Resolver answering
// "what source entities produced this derived element" queries.
//
// lineage satisfies pipeline.LineageRecorder structurally without
// importing pipeline; its only in-module import is entity. Nothing in
// pipeline, transform, container,
// storage, entity, or timeframe imports lineage, so the dependency only
// ever points this one direction (SPEC_FULL.md §2).
package lineage

import (
	"sync"

	"github.com/paulmthompson/WhiskerToolbox-sub000/entity"
)

// Variant names one of spec.md §3.6's eight Lineage descriptor shapes.
type Variant string

const (
	VariantSource            Variant = "Source"
	VariantOneToOneByTime    Variant = "OneToOneByTime"
	VariantAllToOneByTime    Variant = "AllToOneByTime"
	VariantSubset            Variant = "Subset"
	VariantMultiSource       Variant = "MultiSource"
	VariantExplicit          Variant = "Explicit"
	VariantEntityMapped      Variant = "EntityMapped"
	VariantImplicitEntityMap Variant = "ImplicitEntityMap"
)

// MultiSourceStrategy distinguishes how a MultiSource descriptor's N
// sources combine.
type MultiSourceStrategy string

const (
	StrategyZipByTime MultiSourceStrategy = "ZipByTime"
	StrategyCartesian MultiSourceStrategy = "Cartesian"
	StrategyCustom    MultiSourceStrategy = "Custom"
)

// Cardinality is ImplicitEntityMap's positional mapping rule.
type Cardinality string

const (
	CardinalityOneToOne  Cardinality = "1:1"
	CardinalityManyToOne Cardinality = "N:1"
	CardinalityOneToMany Cardinality = "1:N"
)

// Descriptor is one container's lineage record. Only the fields its
// Variant uses are populated; the others are left at their zero value.
type Descriptor struct {
	Variant Variant

	// SourceKeys holds the single source key for every variant except
	// MultiSource, which holds N.
	SourceKeys []string

	// Subset
	Included     map[entity.ID]struct{}
	FilteredFrom string

	// MultiSource
	Strategy MultiSourceStrategy

	// Explicit: contributors[local_idx] -> that element's source ids.
	Contributors [][]entity.ID

	// EntityMapped
	EntityMap map[entity.ID][]entity.ID

	// ImplicitEntityMap
	Cardinality Cardinality
}

// ChangeType categorises why mark_stale fired, per edge, for
// invalidation callbacks (spec.md §4.7).
type ChangeType string

const (
	ChangeAdded      ChangeType = "Added"
	ChangeRemoved    ChangeType = "Removed"
	ChangeModified   ChangeType = "Modified"
	ChangeIdsChanged ChangeType = "IdsChanged"
)

// Entry is a LineageRegistry row (spec.md §3.6).
type Entry struct {
	Descriptor    Descriptor
	IsStale       bool
	LastValidated int64 // caller-supplied logical timestamp; never touched by this package
}

// InvalidationCallback fires once per (derived, source) edge touched
// by MarkStale.
type InvalidationCallback func(derived, source string, change ChangeType)

// Registry stores one Entry per container key plus the reverse edges
// (source -> derived) staleness propagation needs. It implements
// pipeline.LineageRecorder.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	dependents map[string]map[string]struct{} // source key -> derived keys naming it
	callbacks  []InvalidationCallback
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:    make(map[string]*Entry),
		dependents: make(map[string]map[string]struct{}),
	}
}

func (r *Registry) record(key string, d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = &Entry{Descriptor: d}
	for _, src := range d.SourceKeys {
		if r.dependents[src] == nil {
			r.dependents[src] = make(map[string]struct{})
		}
		r.dependents[src][key] = struct{}{}
	}
}

// --- pipeline.LineageRecorder -----------------------------------------

// RecordSource records key as having no parent.
func (r *Registry) RecordSource(key string) {
	r.record(key, Descriptor{Variant: VariantSource})
}

// RecordOneToOneByTime records outputKey as a 1:1-by-time derivation of
// sourceKey.
func (r *Registry) RecordOneToOneByTime(outputKey, sourceKey string) {
	r.record(outputKey, Descriptor{Variant: VariantOneToOneByTime, SourceKeys: []string{sourceKey}})
}

// RecordAllToOneByTime records outputKey as the fold-over-time-bucket
// result of sourceKey.
func (r *Registry) RecordAllToOneByTime(outputKey, sourceKey string) {
	r.record(outputKey, Descriptor{Variant: VariantAllToOneByTime, SourceKeys: []string{sourceKey}})
}

// RecordMultiSource records outputKey as combining sourceKeys under the
// ZipByTime strategy — the only strategy the pipeline runtime's
// FlatZip-based multi-input execution produces (spec.md §4.4).
func (r *Registry) RecordMultiSource(outputKey string, sourceKeys []string) {
	r.record(outputKey, Descriptor{Variant: VariantMultiSource, SourceKeys: sourceKeys, Strategy: StrategyZipByTime})
}

// --- variants the runtime cannot infer automatically -------------------

// RecordSubset records outputKey as a filtered view of sourceKey.
func (r *Registry) RecordSubset(outputKey, sourceKey string, included map[entity.ID]struct{}, filteredFrom string) {
	r.record(outputKey, Descriptor{
		Variant:      VariantSubset,
		SourceKeys:   []string{sourceKey},
		Included:     included,
		FilteredFrom: filteredFrom,
	})
}

// RecordExplicit records outputKey's per-element contributor lists.
func (r *Registry) RecordExplicit(outputKey, sourceKey string, contributors [][]entity.ID) {
	r.record(outputKey, Descriptor{Variant: VariantExplicit, SourceKeys: []string{sourceKey}, Contributors: contributors})
}

// RecordEntityMapped records outputKey's derived-id -> parent-ids map.
func (r *Registry) RecordEntityMapped(outputKey, sourceKey string, mapping map[entity.ID][]entity.ID) {
	r.record(outputKey, Descriptor{Variant: VariantEntityMapped, SourceKeys: []string{sourceKey}, EntityMap: mapping})
}

// RecordImplicitEntityMap records outputKey's positional cardinality
// rule against sourceKey.
func (r *Registry) RecordImplicitEntityMap(outputKey, sourceKey string, card Cardinality) {
	r.record(outputKey, Descriptor{Variant: VariantImplicitEntityMap, SourceKeys: []string{sourceKey}, Cardinality: card})
}

// --- lookup and staleness -----------------------------------------------

// Get returns key's current entry.
func (r *Registry) Get(key string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// OnInvalidate registers a callback fired once per edge touched by
// MarkStale.
func (r *Registry) OnInvalidate(cb InvalidationCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

// MarkStale flips key's entry stale and recursively marks every key
// that names key among its sources, firing the registered
// InvalidationCallbacks once per (derived, source) edge (spec.md
// §4.7's staleness propagation).
func (r *Registry) MarkStale(key string, change ChangeType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	visited := make(map[string]bool)
	r.markStaleLocked(key, change, visited)
}

func (r *Registry) markStaleLocked(key string, change ChangeType, visited map[string]bool) {
	if visited[key] {
		return
	}
	visited[key] = true
	if e, ok := r.entries[key]; ok {
		e.IsStale = true
	}
	for derived := range r.dependents[key] {
		for _, cb := range r.callbacks {
			cb(derived, key, change)
		}
		r.markStaleLocked(derived, change, visited)
	}
}
