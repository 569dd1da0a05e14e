package container

import (
	"fmt"

	"github.com/paulmthompson/WhiskerToolbox-sub000/apperrors"
	"github.com/paulmthompson/WhiskerToolbox-sub000/entity"
	"github.com/paulmthompson/WhiskerToolbox-sub000/storage"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// IntervalSeries maintains sorted, non-overlapping Intervals, each
// carrying an EntityId (spec.md §3.4.4). An interval is stored at its
// Start index; its payload is the full Span.
type IntervalSeries struct {
	*base[Span]
}

// NewIntervalSeries constructs an empty, Owning-backed IntervalSeries.
func NewIntervalSeries(dataKey string, frame *timeframe.Frame) *IntervalSeries {
	return &IntervalSeries{base: newBase[Span](dataKey, frame)}
}

func newIntervalSeriesFromStorage(dataKey string, frame *timeframe.Frame, s storage.RaggedStorage[Span]) *IntervalSeries {
	return &IntervalSeries{base: &base[Span]{dataKey: dataKey, frame: frame, storage: s}}
}

// Insert adds an interval [start, end] carrying id. Fails if
// start > end, or if the interval overlaps any interval already
// present.
func (iv *IntervalSeries) Insert(start, end timeframe.Index, id entity.ID, n NotifyObservers) error {
	if start > end {
		return fmt.Errorf("interval start %d > end %d: %w", start, end, apperrors.ErrInvariantViolation)
	}
	for i := 0; i < iv.storage.Size(); i++ {
		sp := iv.storage.GetPayload(i)
		existing := timeframe.Interval{Start: timeframe.Index(sp.Start), End: timeframe.Index(sp.End)}
		if existing.Overlaps(timeframe.Interval{Start: start, End: end}) {
			return fmt.Errorf("interval [%d,%d] overlaps existing [%d,%d]: %w", start, end, sp.Start, sp.End, apperrors.ErrInvariantViolation)
		}
	}
	return iv.AppendAtTime(start, Span{Start: int64(start), End: int64(end)}, id, n)
}

// Erase removes the interval carrying id.
func (iv *IntervalSeries) Erase(id entity.ID, n NotifyObservers) (bool, error) {
	return iv.ClearByEntityID(id, n)
}

// Intervals returns every stored interval as an Interval element.
func (iv *IntervalSeries) Intervals() []Interval {
	out := make([]Interval, iv.storage.Size())
	for i := range out {
		id, _ := iv.storage.GetEntityID(i)
		sp := iv.storage.GetPayload(i)
		out[i] = Interval{Anchor: iv.storage.GetTime(i), ID: id, Span: sp}
	}
	return out
}

// ViewOverlapping returns every interval whose [start,end] intersects
// the query range [start, stop].
func (iv *IntervalSeries) ViewOverlapping(start, stop timeframe.Index) []Interval {
	query := timeframe.Interval{Start: start, End: stop}
	var out []Interval
	for _, el := range iv.Intervals() {
		existing := timeframe.Interval{Start: timeframe.Index(el.Span.Start), End: timeframe.Index(el.Span.End)}
		if existing.Overlaps(query) {
			out = append(out, el)
		}
	}
	return out
}
