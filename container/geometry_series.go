package container

import (
	"github.com/paulmthompson/WhiskerToolbox-sub000/entity"
	"github.com/paulmthompson/WhiskerToolbox-sub000/storage"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// GeometrySeries is ragged, TimeFrameIndex -> []GeometryEntry[T],
// entity-bearing (spec.md §3.4.5). T is one of Point2D, Line2D, Mask2D.
type GeometrySeries[T any] struct {
	*base[T]
}

// NewGeometrySeries constructs an empty, Owning-backed GeometrySeries.
func NewGeometrySeries[T any](dataKey string, frame *timeframe.Frame) *GeometrySeries[T] {
	return &GeometrySeries[T]{base: newBase[T](dataKey, frame)}
}

func newGeometrySeriesFromStorage[T any](dataKey string, frame *timeframe.Frame, s storage.RaggedStorage[T]) *GeometrySeries[T] {
	return &GeometrySeries[T]{base: &base[T]{dataKey: dataKey, frame: frame, storage: s}}
}

// AppendEntry appends a single entity-bearing geometry entry.
func (g *GeometrySeries[T]) AppendEntry(t timeframe.Index, geom T, id entity.ID, n NotifyObservers) error {
	return g.AppendAtTime(t, geom, id, n)
}

// Entries returns every stored geometry entry.
func (g *GeometrySeries[T]) Entries() []GeometryEntry[T] {
	out := make([]GeometryEntry[T], g.storage.Size())
	for i := range out {
		id, _ := g.storage.GetEntityID(i)
		out[i] = GeometryEntry[T]{Time: g.storage.GetTime(i), ID: id, Geom: g.storage.GetPayload(i)}
	}
	return out
}

// View returns a read-only GeometrySeries limited to a time range.
func (g *GeometrySeries[T]) View(start, end timeframe.Index) *GeometrySeries[T] {
	v := storage.NewView[T](g.storage)
	v.FilterByTimeRange(start, end)
	return newGeometrySeriesFromStorage[T](g.dataKey, g.frame, v)
}
