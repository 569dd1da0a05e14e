package container

import (
	"sort"

	"github.com/paulmthompson/WhiskerToolbox-sub000/storage"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// ScalarSeries is an ordered (TimeFrameIndex, f32) series, one value
// per time (spec.md §3.4.1).
type ScalarSeries struct {
	*base[float32]
}

// NewScalarSeries constructs an empty, Owning-backed ScalarSeries.
func NewScalarSeries(dataKey string, frame *timeframe.Frame) *ScalarSeries {
	return &ScalarSeries{base: newBase[float32](dataKey, frame)}
}

// newScalarSeriesFromStorage wraps an already-built storage backend
// (used by views and lazy materialisation results).
func newScalarSeriesFromStorage(dataKey string, frame *timeframe.Frame, s storage.RaggedStorage[float32]) *ScalarSeries {
	b := &base[float32]{dataKey: dataKey, frame: frame, storage: s}
	return &ScalarSeries{base: b}
}

// Set writes (or overwrites) the single value at time t.
func (s *ScalarSeries) Set(t timeframe.Index, value float32, n NotifyObservers) error {
	if _, err := s.ClearAtTime(t, NotifySuppress); err != nil {
		return err
	}
	return s.AppendAtTime(t, value, 0, n)
}

// TimeValueRangeInIndexRange returns the (time, value) pairs for
// storage indices [startIdx, endIdx), for efficient plotting slices
// (spec.md §4.2).
func (s *ScalarSeries) TimeValueRangeInIndexRange(startIdx, endIdx int) []ScalarSample {
	if startIdx < 0 {
		startIdx = 0
	}
	if endIdx > s.Size() {
		endIdx = s.Size()
	}
	out := make([]ScalarSample, 0, endIdx-startIdx)
	for i := startIdx; i < endIdx; i++ {
		out = append(out, ScalarSample{Time: s.storage.GetTime(i), Val: s.storage.GetPayload(i)})
	}
	return out
}

// View returns a new ScalarSeries backed by a read-only View over this
// series's storage, containing every element at a time within [start,
// end].
func (s *ScalarSeries) View(start, end timeframe.Index) *ScalarSeries {
	v := storage.NewView[float32](s.storage)
	v.FilterByTimeRange(start, end)
	return newScalarSeriesFromStorage(s.dataKey, s.frame, v)
}

// Samples returns every (time, value) in storage (time-sorted) order.
func (s *ScalarSeries) Samples() []ScalarSample {
	els := s.Elements()
	out := make([]ScalarSample, len(els))
	for i, e := range els {
		out[i] = ScalarSample{Time: e.Time, Val: e.Payload}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}
