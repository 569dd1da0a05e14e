package container

import (
	"sort"

	"github.com/paulmthompson/WhiskerToolbox-sub000/entity"
	"github.com/paulmthompson/WhiskerToolbox-sub000/storage"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// EventSeries holds sorted, unique TimeFrameIndex events, each
// carrying an EntityId (spec.md §3.4.3). Its payload is the empty
// struct: only time and identity matter.
type EventSeries struct {
	*base[struct{}]
}

// NewEventSeries constructs an empty, Owning-backed EventSeries.
func NewEventSeries(dataKey string, frame *timeframe.Frame) *EventSeries {
	return &EventSeries{base: newBase[struct{}](dataKey, frame)}
}

func newEventSeriesFromStorage(dataKey string, frame *timeframe.Frame, s storage.RaggedStorage[struct{}]) *EventSeries {
	return &EventSeries{base: &base[struct{}]{dataKey: dataKey, frame: frame, storage: s}}
}

// Insert adds an event at time t carrying id. Inserting at a time that
// already has an event is a silent no-op (spec.md §3.4 invariant).
func (e *EventSeries) Insert(t timeframe.Index, id entity.ID, n NotifyObservers) error {
	start, end := e.storage.TimeRange(t)
	if end > start {
		return nil
	}
	return e.AppendAtTime(t, struct{}{}, id, n)
}

// Times returns every event time, in non-decreasing order.
func (e *EventSeries) Times() []timeframe.Index {
	out := make([]timeframe.Index, e.storage.Size())
	for i := range out {
		out[i] = e.storage.GetTime(i)
	}
	return out
}

// EventElement is one (time, id) pair.
type EventElement struct {
	Time timeframe.Index
	ID   entity.ID
}

// All returns every event as (time, id), in storage (time-sorted)
// order.
func (e *EventSeries) All() []EventElement {
	out := make([]EventElement, e.storage.Size())
	for i := range out {
		id, _ := e.storage.GetEntityID(i)
		out[i] = EventElement{Time: e.storage.GetTime(i), ID: id}
	}
	return out
}

// ViewInRange converts [start, stop] from srcFrame into this series's
// frame (if different), binary-searches the sorted time axis, and
// returns a lazy slice of the events inside it.
func (e *EventSeries) ViewInRange(start, stop timeframe.Index, srcFrame *timeframe.Frame) (*EventSeries, bool) {
	localStart, ok1 := timeframe.ConvertTo(start, srcFrame, e.frame)
	localStop, ok2 := timeframe.ConvertTo(stop, srcFrame, e.frame)
	if !ok1 || !ok2 {
		return nil, false
	}

	n := e.storage.Size()
	lo := sort.Search(n, func(i int) bool { return e.storage.GetTime(i) >= localStart })
	hi := sort.Search(n, func(i int) bool { return e.storage.GetTime(i) > localStop })

	src := e.storage
	lz := storage.NewLazy[struct{}](hi-lo, func(i int) storage.LazyElement[struct{}] {
		idx := lo + i
		id, has := src.GetEntityID(idx)
		return storage.LazyElement[struct{}]{Time: src.GetTime(idx), Payload: struct{}{}, EntityID: id, HasID: has}
	})
	return newEventSeriesFromStorage(e.dataKey, e.frame, lz), true
}
