package container

import (
	"github.com/paulmthompson/WhiskerToolbox-sub000/storage"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// RaggedScalarSeries maps TimeFrameIndex -> []f32, with variable
// length per time (spec.md §3.4.2).
type RaggedScalarSeries struct {
	*base[float32]
}

// NewRaggedScalarSeries constructs an empty, Owning-backed series.
func NewRaggedScalarSeries(dataKey string, frame *timeframe.Frame) *RaggedScalarSeries {
	return &RaggedScalarSeries{base: newBase[float32](dataKey, frame)}
}

func newRaggedScalarSeriesFromStorage(dataKey string, frame *timeframe.Frame, s storage.RaggedStorage[float32]) *RaggedScalarSeries {
	return &RaggedScalarSeries{base: &base[float32]{dataKey: dataKey, frame: frame, storage: s}}
}

// SetAtTime replaces every value at time t with values.
func (r *RaggedScalarSeries) SetAtTime(t timeframe.Index, values []float32, n NotifyObservers) error {
	if _, err := r.ClearAtTime(t, NotifySuppress); err != nil {
		return err
	}
	for _, v := range values {
		if err := r.AppendAtTime(t, v, 0, NotifySuppress); err != nil {
			return err
		}
	}
	r.notify(n)
	return nil
}

// View returns a read-only RaggedScalarSeries limited to [start, end].
func (r *RaggedScalarSeries) View(start, end timeframe.Index) *RaggedScalarSeries {
	v := storage.NewView[float32](r.storage)
	v.FilterByTimeRange(start, end)
	return newRaggedScalarSeriesFromStorage(r.dataKey, r.frame, v)
}
