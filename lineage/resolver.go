package lineage

import (
	"github.com/paulmthompson/WhiskerToolbox-sub000/entity"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// EntityDataSource is the lineage resolver's only window into external
// container storage (spec.md §6.2).
type EntityDataSource interface {
	EntityIDs(key string, t timeframe.Index, localIdx int) []entity.ID
	AllEntityIDsAtTime(key string, t timeframe.Index) []entity.ID
	AllEntityIDs(key string) map[entity.ID]struct{}
	ElementCount(key string, t timeframe.Index) int
}

// Resolver answers lineage queries against a Registry and an
// EntityDataSource (spec.md §4.7).
type Resolver struct {
	registry *Registry
	data     EntityDataSource
}

// NewResolver builds a Resolver over registry and data.
func NewResolver(registry *Registry, data EntityDataSource) *Resolver {
	return &Resolver{registry: registry, data: data}
}

// ResolveToSource performs single-step resolution dispatched on key's
// lineage variant (spec.md §4.7).
func (r *Resolver) ResolveToSource(key string, t timeframe.Index, localIdx int) []entity.ID {
	entry, ok := r.registry.Get(key)
	if !ok {
		return r.data.EntityIDs(key, t, localIdx)
	}
	d := entry.Descriptor

	switch d.Variant {
	case VariantSource:
		return r.data.EntityIDs(key, t, localIdx)

	case VariantOneToOneByTime:
		return r.data.EntityIDs(d.SourceKeys[0], t, localIdx)

	case VariantAllToOneByTime:
		return r.data.AllEntityIDsAtTime(d.SourceKeys[0], t)

	case VariantSubset:
		src := r.data.EntityIDs(d.SourceKeys[0], t, localIdx)
		var out []entity.ID
		for _, id := range src {
			if _, in := d.Included[id]; in {
				out = append(out, id)
			}
		}
		return out

	case VariantMultiSource:
		seen := make(map[entity.ID]struct{})
		var out []entity.ID
		for _, sk := range d.SourceKeys {
			for _, id := range r.data.EntityIDs(sk, t, localIdx) {
				if _, dup := seen[id]; !dup {
					seen[id] = struct{}{}
					out = append(out, id)
				}
			}
		}
		return out

	case VariantExplicit:
		if localIdx < 0 || localIdx >= len(d.Contributors) {
			return nil
		}
		return d.Contributors[localIdx]

	case VariantEntityMapped:
		// Not resolvable positionally (spec.md §4.7).
		return nil

	case VariantImplicitEntityMap:
		return r.resolveCardinality(d, t, localIdx)

	default:
		return nil
	}
}

func (r *Resolver) resolveCardinality(d Descriptor, t timeframe.Index, localIdx int) []entity.ID {
	src := d.SourceKeys[0]
	switch d.Cardinality {
	case CardinalityManyToOne:
		return r.data.AllEntityIDsAtTime(src, t)
	case CardinalityOneToOne, CardinalityOneToMany:
		// 1:1 maps the derived element straight to its source
		// counterpart at the same local index; 1:N's "many" side
		// lives in the derived container, so each derived element
		// still traces back to exactly one source element this way.
		return r.data.EntityIDs(src, t, localIdx)
	default:
		return nil
	}
}

// ResolveToRoot walks the lineage graph depth-first, by recursion, from
// key toward Source nodes, collecting entity ids at each level
// (spec.md §4.7). Cycles are
// broken by a visited set: a cycle short-circuits to the current
// node's own ids.
func (r *Resolver) ResolveToRoot(key string, t timeframe.Index, localIdx int) []entity.ID {
	return r.resolveToRootRec(key, t, localIdx, make(map[string]bool))
}

func (r *Resolver) resolveToRootRec(key string, t timeframe.Index, localIdx int, visited map[string]bool) []entity.ID {
	if visited[key] {
		return r.data.EntityIDs(key, t, localIdx)
	}
	visited[key] = true

	entry, ok := r.registry.Get(key)
	if !ok || entry.Descriptor.Variant == VariantSource {
		return r.data.EntityIDs(key, t, localIdx)
	}

	seen := make(map[entity.ID]struct{})
	var out []entity.ID
	add := func(ids []entity.ID) {
		for _, id := range ids {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}

	add(r.ResolveToSource(key, t, localIdx))

	for _, sk := range entry.Descriptor.SourceKeys {
		if srcEntry, ok := r.registry.Get(sk); ok && srcEntry.Descriptor.Variant != VariantSource {
			add(r.resolveToRootRec(sk, t, localIdx, visited))
		}
	}
	return out
}

// ResolveByEntityID resolves a derived id back to its parent ids. Only
// EntityMapped descriptors carry this mapping; every other variant
// returns empty (spec.md §4.7).
func (r *Resolver) ResolveByEntityID(key string, derivedID entity.ID) []entity.ID {
	entry, ok := r.registry.Get(key)
	if !ok || entry.Descriptor.Variant != VariantEntityMapped {
		return nil
	}
	return entry.Descriptor.EntityMap[derivedID]
}

// GetLineageChain returns a BFS-ordered list of keys from key to its
// roots. A source name with no registry entry is included as an opaque
// leaf — the chain still reports it even though it can't be expanded
// further (spec.md §4.7).
func (r *Resolver) GetLineageChain(key string) []string {
	var order []string
	visited := make(map[string]bool)
	queue := []string{key}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		if visited[k] {
			continue
		}
		visited[k] = true
		order = append(order, k)

		entry, ok := r.registry.Get(k)
		if !ok {
			continue
		}
		for _, sk := range entry.Descriptor.SourceKeys {
			if !visited[sk] {
				queue = append(queue, sk)
			}
		}
	}
	return order
}

// GetAllSourceEntities unions the entity ids the data source reports
// for every key reachable from key (spec.md §4.7).
func (r *Resolver) GetAllSourceEntities(key string) map[entity.ID]struct{} {
	out := make(map[entity.ID]struct{})
	for _, k := range r.GetLineageChain(key) {
		for id := range r.data.AllEntityIDs(k) {
			out[id] = struct{}{}
		}
	}
	return out
}
