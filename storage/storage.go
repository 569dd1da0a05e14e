// Package storage implements the three interchangeable ragged-storage
// backends (Owning, View, Lazy) behind a single type-erased wrapper, per
// spec.md §3.5 and §4.1. Every ragged container type in package
// container embeds a RaggedStorage[P] of its own payload type.
package storage

import (
	"fmt"

	"github.com/paulmthompson/WhiskerToolbox-sub000/apperrors"
	"github.com/paulmthompson/WhiskerToolbox-sub000/entity"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// RaggedStorage is the uniform read (and, on the Owning backend,
// write) surface shared by all three backends. P is the payload type
// carried per element (e.g. float32 for scalars, Mask2D for masks, or
// struct{} for entity-only containers like events).
type RaggedStorage[P any] interface {
	Size() int
	GetTime(i int) timeframe.Index
	GetPayload(i int) P
	GetEntityID(i int) (entity.ID, bool)
	TimeRange(t timeframe.Index) (start, end int)
	IsView() bool
	IsLazy() bool

	// Cache returns the fast-path cache for this storage, valid only
	// when the wrapper points at Owning storage or a contiguous View.
	Cache() *Cache[P]
}

// MutableRaggedStorage is implemented only by the Owning backend; View
// and Lazy backends fail every mutation with ErrReadOnlyStorage.
type MutableRaggedStorage[P any] interface {
	RaggedStorage[P]
	Append(t timeframe.Index, p P, id entity.ID) error
	RemoveAtTime(t timeframe.Index) int
	RemoveByEntityID(id entity.ID) bool
	FindByEntityID(id entity.ID) (int, bool)
	Clear()
}

// Cache holds raw slices into Owning storage when it is safe to read
// without going through the wrapper's virtual dispatch. It is
// invalidated before every mutation and rebuilt afterward; Lazy
// backends never produce a valid cache.
type Cache[P any] struct {
	Times    []timeframe.Index
	Payloads []P
	IDs      []entity.ID
	Valid    bool
}

// Owning is the canonical ragged-storage backend: it owns parallel SoA
// arrays plus a time->[start,end) index and supports every mutation.
type Owning[P any] struct {
	frame       *timeframe.Frame
	times       []timeframe.Index
	payloads    []P
	ids         []entity.ID
	hasID       []bool
	timeRanges  map[timeframe.Index][2]int
	idIndex     map[entity.ID]int
	cache       Cache[P]
	cacheValid  bool
}

// NewOwning constructs an empty Owning backend bound to frame. Writes
// outside frame's bounds fail with apperrors.ErrTimeOutOfRange.
func NewOwning[P any](frame *timeframe.Frame) *Owning[P] {
	o := &Owning[P]{
		frame:      frame,
		timeRanges: make(map[timeframe.Index][2]int),
		idIndex:    make(map[entity.ID]int),
	}
	o.rebuildCache()
	return o
}

func (o *Owning[P]) Size() int { return len(o.times) }

func (o *Owning[P]) GetTime(i int) timeframe.Index { return o.times[i] }

func (o *Owning[P]) GetPayload(i int) P { return o.payloads[i] }

func (o *Owning[P]) GetEntityID(i int) (entity.ID, bool) {
	if i < 0 || i >= len(o.hasID) || !o.hasID[i] {
		return 0, false
	}
	return o.ids[i], true
}

func (o *Owning[P]) TimeRange(t timeframe.Index) (int, int) {
	if r, ok := o.timeRanges[t]; ok {
		return r[0], r[1]
	}
	return 0, 0
}

func (o *Owning[P]) IsView() bool { return false }
func (o *Owning[P]) IsLazy() bool { return false }

func (o *Owning[P]) Cache() *Cache[P] { return &o.cache }

// Append pushes a new element, maintaining non-decreasing time order
// among entries appended at the same or later time than the last.
// Appending out of order is permitted by the storage layer but callers
// (container types) are expected to append in non-decreasing time
// order to preserve invariant 1 (spec.md §8).
func (o *Owning[P]) Append(t timeframe.Index, p P, id entity.ID) error {
	if o.frame != nil && !o.frame.InBounds(t) {
		return fmt.Errorf("append at %d: %w", t, apperrors.ErrTimeOutOfRange)
	}
	if id != 0 {
		if _, exists := o.idIndex[id]; exists {
			return fmt.Errorf("append id %v: %w", id, apperrors.ErrDuplicateEntityID)
		}
	}

	o.invalidateCache()

	idx := len(o.times)
	o.times = append(o.times, t)
	o.payloads = append(o.payloads, p)
	if id != 0 {
		o.ids = append(o.ids, id)
		o.hasID = append(o.hasID, true)
		o.idIndex[id] = idx
	} else {
		o.ids = append(o.ids, 0)
		o.hasID = append(o.hasID, false)
	}

	r, ok := o.timeRanges[t]
	if !ok {
		o.timeRanges[t] = [2]int{idx, idx + 1}
	} else {
		r[1] = idx + 1
		o.timeRanges[t] = r
	}

	o.rebuildCache()
	return nil
}

// RemoveAtTime drops every entry whose time equals t and returns the
// count removed. Removing the last entry at t also removes t from the
// time index (spec.md §8 boundary behaviour).
func (o *Owning[P]) RemoveAtTime(t timeframe.Index) int {
	r, ok := o.timeRanges[t]
	if !ok {
		return 0
	}
	o.invalidateCache()

	start, end := r[0], r[1]
	removed := end - start

	o.times = append(o.times[:start], o.times[end:]...)
	o.payloads = append(o.payloads[:start], o.payloads[end:]...)
	o.ids = append(o.ids[:start], o.ids[end:]...)
	o.hasID = append(o.hasID[:start], o.hasID[end:]...)

	delete(o.timeRanges, t)
	for tm, rr := range o.timeRanges {
		if rr[0] >= end {
			o.timeRanges[tm] = [2]int{rr[0] - removed, rr[1] - removed}
		}
	}
	o.rebuildIDIndex()
	o.rebuildCache()
	return removed
}

// RemoveByEntityID removes the single entry carrying id, if present.
func (o *Owning[P]) RemoveByEntityID(id entity.ID) bool {
	idx, ok := o.idIndex[id]
	if !ok {
		return false
	}
	o.invalidateCache()

	t := o.times[idx]
	o.times = append(o.times[:idx], o.times[idx+1:]...)
	o.payloads = append(o.payloads[:idx], o.payloads[idx+1:]...)
	o.ids = append(o.ids[:idx], o.ids[idx+1:]...)
	o.hasID = append(o.hasID[:idx], o.hasID[idx+1:]...)

	if r, ok := o.timeRanges[t]; ok {
		if r[1]-r[0] <= 1 {
			delete(o.timeRanges, t)
		} else {
			o.timeRanges[t] = [2]int{r[0], r[1] - 1}
		}
	}
	for tm, rr := range o.timeRanges {
		if rr[0] > idx {
			o.timeRanges[tm] = [2]int{rr[0] - 1, rr[1] - 1}
		}
	}
	o.rebuildIDIndex()
	o.rebuildCache()
	return true
}

// FindByEntityID returns the storage index holding id, if any.
func (o *Owning[P]) FindByEntityID(id entity.ID) (int, bool) {
	idx, ok := o.idIndex[id]
	return idx, ok
}

// Clear empties the storage.
func (o *Owning[P]) Clear() {
	o.invalidateCache()
	o.times = nil
	o.payloads = nil
	o.ids = nil
	o.hasID = nil
	o.timeRanges = make(map[timeframe.Index][2]int)
	o.idIndex = make(map[entity.ID]int)
	o.rebuildCache()
}

func (o *Owning[P]) invalidateCache() {
	o.cache.Valid = false
}

func (o *Owning[P]) rebuildCache() {
	o.cache = Cache[P]{
		Times:    o.times,
		Payloads: o.payloads,
		IDs:      o.ids,
		Valid:    true,
	}
}

func (o *Owning[P]) rebuildIDIndex() {
	idx := make(map[entity.ID]int, len(o.idIndex))
	for i, has := range o.hasID {
		if has {
			idx[o.ids[i]] = i
		}
	}
	o.idIndex = idx
}

// View is a zero-copy filter over another RaggedStorage, represented
// as a sorted slice of indices into the source. Every mutation fails
// with ErrReadOnlyStorage.
type View[P any] struct {
	source  RaggedStorage[P]
	indices []int
	cache   Cache[P]
}

// NewView wraps source, initially exposing every element in source
// order (indices 0..source.Size()-1).
func NewView[P any](source RaggedStorage[P]) *View[P] {
	indices := make([]int, source.Size())
	for i := range indices {
		indices[i] = i
	}
	v := &View[P]{source: source, indices: indices}
	v.rebuildCache()
	return v
}

func (v *View[P]) Size() int { return len(v.indices) }

func (v *View[P]) GetTime(i int) timeframe.Index { return v.source.GetTime(v.indices[i]) }

func (v *View[P]) GetPayload(i int) P { return v.source.GetPayload(v.indices[i]) }

func (v *View[P]) GetEntityID(i int) (entity.ID, bool) { return v.source.GetEntityID(v.indices[i]) }

// TimeRange performs a linear scan over the view's (already sorted by
// construction) time sequence; views are expected to be short-lived
// and scoped to a single pipeline execution (spec.md §5).
func (v *View[P]) TimeRange(t timeframe.Index) (int, int) {
	start := -1
	end := -1
	for i, idx := range v.indices {
		if v.source.GetTime(idx) == t {
			if start == -1 {
				start = i
			}
			end = i + 1
		} else if start != -1 {
			break
		}
	}
	if start == -1 {
		return 0, 0
	}
	return start, end
}

func (v *View[P]) IsView() bool { return true }
func (v *View[P]) IsLazy() bool { return false }

func (v *View[P]) Cache() *Cache[P] { return &v.cache }

// FilterByTimeRange replaces the view's indices with those from
// source whose time falls within [start, end].
func (v *View[P]) FilterByTimeRange(start, end timeframe.Index) {
	var kept []int
	for i := 0; i < v.source.Size(); i++ {
		t := v.source.GetTime(i)
		if t >= start && t <= end {
			kept = append(kept, i)
		}
	}
	v.indices = kept
	v.rebuildCache()
}

// FilterByEntityIDs replaces the view's indices with those from source
// whose entity id is a member of ids.
func (v *View[P]) FilterByEntityIDs(ids map[entity.ID]struct{}) {
	var kept []int
	for i := 0; i < v.source.Size(); i++ {
		id, ok := v.source.GetEntityID(i)
		if !ok {
			continue
		}
		if _, in := ids[id]; in {
			kept = append(kept, i)
		}
	}
	v.indices = kept
	v.rebuildCache()
}

func (v *View[P]) contiguous() bool {
	for i := 1; i < len(v.indices); i++ {
		if v.indices[i] != v.indices[i-1]+1 {
			return false
		}
	}
	return true
}

func (v *View[P]) rebuildCache() {
	if !v.contiguous() {
		v.cache = Cache[P]{Valid: false}
		return
	}
	srcCache := v.source.Cache()
	if srcCache == nil || !srcCache.Valid || len(v.indices) == 0 {
		v.cache = Cache[P]{Valid: false}
		return
	}
	start := v.indices[0]
	end := v.indices[len(v.indices)-1] + 1
	v.cache = Cache[P]{
		Times:    srcCache.Times[start:end],
		Payloads: srcCache.Payloads[start:end],
		IDs:      srcCache.IDs[start:end],
		Valid:    true,
	}
}

func (v *View[P]) mutationError(op string) error {
	return fmt.Errorf("%s: %w", op, apperrors.ErrReadOnlyStorage)
}

func (v *View[P]) Append(timeframe.Index, P, entity.ID) error { return v.mutationError("append") }
func (v *View[P]) RemoveAtTime(timeframe.Index) int           { return 0 }
func (v *View[P]) RemoveByEntityID(entity.ID) bool            { return false }
func (v *View[P]) FindByEntityID(id entity.ID) (int, bool) {
	for i, idx := range v.indices {
		if srcID, ok := v.source.GetEntityID(idx); ok && srcID == id {
			return i, true
		}
	}
	return 0, false
}
func (v *View[P]) Clear() {}

// LazyElement is one on-demand produced element.
type LazyElement[P any] struct {
	Time     timeframe.Index
	Payload  P
	EntityID entity.ID
	HasID    bool
}

// LazyFunc is a pure, random-access closure producing the element at
// index i in [0, n).
type LazyFunc[P any] func(i int) LazyElement[P]

// Lazy is a compute closure presented as a RaggedStorage. Its cache is
// always invalid; consumers must go through the wrapper.
type Lazy[P any] struct {
	n    int
	f    LazyFunc[P]
	zero Cache[P]
}

// NewLazy builds a Lazy backend of n elements computed by f.
func NewLazy[P any](n int, f LazyFunc[P]) *Lazy[P] {
	return &Lazy[P]{n: n, f: f}
}

func (l *Lazy[P]) Size() int { return l.n }

func (l *Lazy[P]) GetTime(i int) timeframe.Index { return l.f(i).Time }

func (l *Lazy[P]) GetPayload(i int) P { return l.f(i).Payload }

func (l *Lazy[P]) GetEntityID(i int) (entity.ID, bool) {
	e := l.f(i)
	return e.EntityID, e.HasID
}

func (l *Lazy[P]) TimeRange(t timeframe.Index) (int, int) {
	start, end := -1, -1
	for i := 0; i < l.n; i++ {
		if l.f(i).Time == t {
			if start == -1 {
				start = i
			}
			end = i + 1
		} else if start != -1 {
			break
		}
	}
	if start == -1 {
		return 0, 0
	}
	return start, end
}

func (l *Lazy[P]) IsView() bool { return false }
func (l *Lazy[P]) IsLazy() bool { return true }

func (l *Lazy[P]) Cache() *Cache[P] { return &l.zero }

// Materialize copies every lazy element into a fresh Owning backend
// bound to frame.
func (l *Lazy[P]) Materialize(frame *timeframe.Frame) (*Owning[P], error) {
	o := NewOwning[P](frame)
	for i := 0; i < l.n; i++ {
		e := l.f(i)
		var id entity.ID
		if e.HasID {
			id = e.EntityID
		}
		if err := o.Append(e.Time, e.Payload, id); err != nil {
			return nil, err
		}
	}
	return o, nil
}
