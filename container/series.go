package container

import (
	"sort"

	"github.com/paulmthompson/WhiskerToolbox-sub000/entity"
	"github.com/paulmthompson/WhiskerToolbox-sub000/storage"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// Observer is notified whenever a mutating container operation commits
// (spec.md §3.4 lifecycle: "mutated only through well-defined
// operations that invalidate any cached fast-path pointers and notify
// observers").
type Observer interface {
	OnChanged()
}

// NotifyObservers controls whether a mutating call fires registered
// observers. Bulk loaders typically pass NotifySuppress and notify
// once at the end.
type NotifyObservers bool

const (
	NotifyFire     NotifyObservers = true
	NotifySuppress NotifyObservers = false
)

// base holds the state shared by every container category: the backing
// storage, the TimeFrame it is expressed in, and its observers. It is
// not exported; concrete container types embed it and add
// payload-specific accessors.
type base[P any] struct {
	frame     *timeframe.Frame
	dataKey   string
	storage   storage.RaggedStorage[P]
	observers []Observer
}

func newBase[P any](dataKey string, frame *timeframe.Frame) *base[P] {
	return &base[P]{
		dataKey: dataKey,
		frame:   frame,
		storage: storage.NewOwning[P](frame),
	}
}

// Frame returns the TimeFrame this container is expressed against.
func (b *base[P]) Frame() *timeframe.Frame { return b.frame }

// DataKey returns the container's lookup name.
func (b *base[P]) DataKey() string { return b.dataKey }

// Size is the total element count.
func (b *base[P]) Size() int { return b.storage.Size() }

// IsView reports whether this container is backed by a View storage.
func (b *base[P]) IsView() bool { return b.storage.IsView() }

// IsLazy reports whether this container is backed by a Lazy storage.
func (b *base[P]) IsLazy() bool { return b.storage.IsLazy() }

// Observe registers an observer to be notified on future mutations.
func (b *base[P]) Observe(o Observer) { b.observers = append(b.observers, o) }

func (b *base[P]) notify(n NotifyObservers) {
	if !n {
		return
	}
	for _, o := range b.observers {
		o.OnChanged()
	}
}

// TimesWithData returns every distinct time that has at least one
// element, in non-decreasing order.
func (b *base[P]) TimesWithData() []timeframe.Index {
	seen := make(map[timeframe.Index]struct{})
	var out []timeframe.Index
	for i := 0; i < b.storage.Size(); i++ {
		t := b.storage.GetTime(i)
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NumTimes is the count of distinct times holding data.
func (b *base[P]) NumTimes() int { return len(b.TimesWithData()) }

// AtTime returns every payload stored at time t, in storage order.
func (b *base[P]) AtTime(t timeframe.Index) []P {
	start, end := b.storage.TimeRange(t)
	out := make([]P, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, b.storage.GetPayload(i))
	}
	return out
}

// EntityIDsAtTime returns the entity ids of every element at time t
// that carries one.
func (b *base[P]) EntityIDsAtTime(t timeframe.Index) []entity.ID {
	start, end := b.storage.TimeRange(t)
	var out []entity.ID
	for i := start; i < end; i++ {
		if id, ok := b.storage.GetEntityID(i); ok {
			out = append(out, id)
		}
	}
	return out
}

// DataByEntityID returns the payload carrying id, if present.
func (b *base[P]) DataByEntityID(id entity.ID) (P, bool) {
	var zero P
	for i := 0; i < b.storage.Size(); i++ {
		if got, ok := b.storage.GetEntityID(i); ok && got == id {
			return b.storage.GetPayload(i), true
		}
	}
	return zero, false
}

// TimeByEntityID returns the time of the element carrying id, if
// present.
func (b *base[P]) TimeByEntityID(id entity.ID) (timeframe.Index, bool) {
	for i := 0; i < b.storage.Size(); i++ {
		if got, ok := b.storage.GetEntityID(i); ok && got == id {
			return b.storage.GetTime(i), true
		}
	}
	return 0, false
}

// Element is one (time, payload) pair produced by iteration.
type Element[P any] struct {
	Time    timeframe.Index
	Payload P
}

// Elements returns every (time, payload) pair in storage order.
func (b *base[P]) Elements() []Element[P] {
	out := make([]Element[P], b.storage.Size())
	for i := range out {
		out[i] = Element[P]{Time: b.storage.GetTime(i), Payload: b.storage.GetPayload(i)}
	}
	return out
}

// ElementWithID is one (time, payload) pair plus whatever entity id
// (if any) the storage slot carries.
type ElementWithID[P any] struct {
	Time    timeframe.Index
	Payload P
	ID      entity.ID
	HasID   bool
}

// ElementsWithIDs returns every element in storage order together with
// its entity id, for containers (like RaggedScalarSeries) whose
// payload type doesn't otherwise expose identity.
func (b *base[P]) ElementsWithIDs() []ElementWithID[P] {
	out := make([]ElementWithID[P], b.storage.Size())
	for i := range out {
		id, ok := b.storage.GetEntityID(i)
		out[i] = ElementWithID[P]{
			Time:    b.storage.GetTime(i),
			Payload: b.storage.GetPayload(i),
			ID:      id,
			HasID:   ok,
		}
	}
	return out
}

// FlatElement is one (time, id, payload) triple, produced for
// entity-bearing containers.
type FlatElement[P any] struct {
	Time    timeframe.Index
	ID      entity.ID
	Payload P
}

// FlattenedData returns every element that carries an entity id.
func (b *base[P]) FlattenedData() []FlatElement[P] {
	var out []FlatElement[P]
	for i := 0; i < b.storage.Size(); i++ {
		id, ok := b.storage.GetEntityID(i)
		if !ok {
			continue
		}
		out = append(out, FlatElement[P]{Time: b.storage.GetTime(i), ID: id, Payload: b.storage.GetPayload(i)})
	}
	return out
}

// ElementsInRange returns every element whose time falls within iv,
// expressed in this container's own frame.
func (b *base[P]) ElementsInRange(iv timeframe.Interval) []Element[P] {
	var out []Element[P]
	for i := 0; i < b.storage.Size(); i++ {
		t := b.storage.GetTime(i)
		if iv.Contains(t) {
			out = append(out, Element[P]{Time: t, Payload: b.storage.GetPayload(i)})
		}
	}
	return out
}

// ElementsInRangeCrossFrame first converts iv from srcFrame into this
// container's frame, then filters.
func (b *base[P]) ElementsInRangeCrossFrame(iv timeframe.Interval, srcFrame *timeframe.Frame) ([]Element[P], bool) {
	start, ok1 := timeframe.ConvertTo(iv.Start, srcFrame, b.frame)
	end, ok2 := timeframe.ConvertTo(iv.End, srcFrame, b.frame)
	if !ok1 || !ok2 {
		return nil, false
	}
	return b.ElementsInRange(timeframe.Interval{Start: start, End: end}), true
}

// ClearAll empties the container. Only valid on Owning storage.
func (b *base[P]) ClearAll(n NotifyObservers) error {
	mut, ok := b.storage.(storage.MutableRaggedStorage[P])
	if !ok {
		return readOnlyErr()
	}
	mut.Clear()
	b.notify(n)
	return nil
}

// ClearAtTime removes every element at time t. Only valid on Owning
// storage.
func (b *base[P]) ClearAtTime(t timeframe.Index, n NotifyObservers) (int, error) {
	mut, ok := b.storage.(storage.MutableRaggedStorage[P])
	if !ok {
		return 0, readOnlyErr()
	}
	removed := mut.RemoveAtTime(t)
	b.notify(n)
	return removed, nil
}

// ClearByEntityID removes the element carrying id. Only valid on
// Owning storage.
func (b *base[P]) ClearByEntityID(id entity.ID, n NotifyObservers) (bool, error) {
	mut, ok := b.storage.(storage.MutableRaggedStorage[P])
	if !ok {
		return false, readOnlyErr()
	}
	removed := mut.RemoveByEntityID(id)
	b.notify(n)
	return removed, nil
}

// AppendAtTime appends one element. Only valid on Owning storage.
func (b *base[P]) AppendAtTime(t timeframe.Index, p P, id entity.ID, n NotifyObservers) error {
	mut, ok := b.storage.(storage.MutableRaggedStorage[P])
	if !ok {
		return readOnlyErr()
	}
	if err := mut.Append(t, p, id); err != nil {
		return err
	}
	b.notify(n)
	return nil
}
