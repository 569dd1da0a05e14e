package pipeline

import (
	"fmt"

	"github.com/paulmthompson/WhiskerToolbox-sub000/apperrors"
	"github.com/paulmthompson/WhiskerToolbox-sub000/container"
	"github.com/paulmthompson/WhiskerToolbox-sub000/entity"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// Elem is the pipeline runtime's type-erased element: a time, an
// optional entity id, and a payload whose concrete Go type is whatever
// the current step in the chain produces. This is the "Any-like
// carrier... pattern-matched back to concrete types inside the
// registered closure" of spec.md §9.
type Elem struct {
	Time    timeframe.Index
	ID      entity.ID
	HasID   bool
	Payload any
}

// Shape records which of the five container categories a LazyView is
// shaped like, so Materialize knows which concrete container to build
// without needing compile-time knowledge of the payload type. It is
// derived from a transform's declared Metadata.OutputType (set on
// every built-in in transform/builtin.go), not guessed from the
// payload's runtime type, since a ragged container can carry single
// values at some times and the count alone cannot distinguish it from
// a scalar series.
type Shape int

const (
	ShapeScalar Shape = iota
	ShapeRagged
	ShapeEvent
	ShapeInterval
	ShapeGeometry
)

// ShapeForOutputType maps a transform.Metadata.OutputType string onto
// the Shape its materialised result should take.
func ShapeForOutputType(outputType string) Shape {
	switch outputType {
	case "ScalarSample":
		return ShapeScalar
	case "RaggedScalar":
		return ShapeRagged
	case "Event":
		return ShapeEvent
	case "IntervalSeries":
		return ShapeInterval
	default:
		return ShapeGeometry
	}
}

// LazyView is a chain of Elems plus the shape they materialise into.
// Pipeline steps compose new LazyViews without touching storage until
// Materialize is called (spec.md §9 "lazy views... compose without
// materialising").
type LazyView struct {
	Frame *timeframe.Frame
	Shape Shape
	Elems []Elem
}

// --- adapters: concrete container -> LazyView ---------------------------

// FromScalarSeries builds a LazyView over s's elements, preserving
// whatever entity ids individual elements carry.
func FromScalarSeries(s *container.ScalarSeries) LazyView {
	els := s.ElementsWithIDs()
	out := make([]Elem, len(els))
	for i, e := range els {
		out[i] = Elem{Time: e.Time, Payload: e.Payload, ID: e.ID, HasID: e.HasID}
	}
	return LazyView{Frame: s.Frame(), Shape: ShapeScalar, Elems: out}
}

// FromRaggedScalarSeries builds a LazyView over r's elements,
// preserving whatever entity ids individual elements carry.
func FromRaggedScalarSeries(r *container.RaggedScalarSeries) LazyView {
	els := r.ElementsWithIDs()
	out := make([]Elem, len(els))
	for i, e := range els {
		out[i] = Elem{Time: e.Time, Payload: e.Payload, ID: e.ID, HasID: e.HasID}
	}
	return LazyView{Frame: r.Frame(), Shape: ShapeRagged, Elems: out}
}

// FromEventSeries builds a LazyView over e's events. Payload is the
// event's own time (a timeframe.Index), which element transforms such
// as normalize_event_time read.
func FromEventSeries(e *container.EventSeries) LazyView {
	all := e.All()
	out := make([]Elem, len(all))
	for i, ev := range all {
		out[i] = Elem{Time: ev.Time, ID: ev.ID, HasID: true, Payload: ev.Time}
	}
	return LazyView{Frame: e.Frame(), Shape: ShapeEvent, Elems: out}
}

// FromIntervalSeries builds a LazyView over iv's intervals, one Elem
// per interval carrying its Span as payload.
func FromIntervalSeries(iv *container.IntervalSeries) LazyView {
	ivs := iv.Intervals()
	out := make([]Elem, len(ivs))
	for i, el := range ivs {
		out[i] = Elem{Time: el.Anchor, ID: el.ID, HasID: true, Payload: el.Span}
	}
	return LazyView{Frame: iv.Frame(), Shape: ShapeInterval, Elems: out}
}

// FromGeometrySeries builds a LazyView over g's geometry entries.
func FromGeometrySeries[T any](g *container.GeometrySeries[T]) LazyView {
	entries := g.Entries()
	out := make([]Elem, len(entries))
	for i, e := range entries {
		out[i] = Elem{Time: e.Time, ID: e.ID, HasID: true, Payload: e.Geom}
	}
	return LazyView{Frame: g.Frame(), Shape: ShapeGeometry, Elems: out}
}

// AdaptContainer type-switches on the concrete container type produced
// by a container-level transform (or supplied as pipeline input) and
// builds the matching LazyView. It is the inverse of Materialize,
// closing the loop spec.md §4.4's step 3c describes: materialise,
// run the container transform, then resume the lazy chain from its
// result.
func AdaptContainer(in any) (LazyView, error) {
	switch c := in.(type) {
	case *container.ScalarSeries:
		return FromScalarSeries(c), nil
	case *container.RaggedScalarSeries:
		return FromRaggedScalarSeries(c), nil
	case *container.EventSeries:
		return FromEventSeries(c), nil
	case *container.IntervalSeries:
		return FromIntervalSeries(c), nil
	case *container.GeometrySeries[container.Point2D]:
		return FromGeometrySeries(c), nil
	case *container.GeometrySeries[container.Line2D]:
		return FromGeometrySeries(c), nil
	case *container.GeometrySeries[container.Mask2D]:
		return FromGeometrySeries(c), nil
	default:
		return LazyView{}, fmt.Errorf("adapting container: %w", apperrors.ErrBackendTypeMismatch)
	}
}

// Materialize builds the concrete container v.Shape names, from
// v.Elems, in a single allocating pass (spec.md §9).
func Materialize(dataKey string, frame *timeframe.Frame, v LazyView) (any, error) {
	switch v.Shape {
	case ShapeScalar:
		out := container.NewScalarSeries(dataKey, frame)
		for _, e := range v.Elems {
			val, ok := e.Payload.(float32)
			if !ok {
				return nil, fmt.Errorf("materialising %q as ScalarSeries: %w", dataKey, apperrors.ErrBackendTypeMismatch)
			}
			if err := out.AppendAtTime(e.Time, val, e.ID, container.NotifySuppress); err != nil {
				return nil, err
			}
		}
		return out, nil

	case ShapeRagged:
		out := container.NewRaggedScalarSeries(dataKey, frame)
		for _, e := range v.Elems {
			val, ok := e.Payload.(float32)
			if !ok {
				return nil, fmt.Errorf("materialising %q as RaggedScalarSeries: %w", dataKey, apperrors.ErrBackendTypeMismatch)
			}
			if err := out.AppendAtTime(e.Time, val, e.ID, container.NotifySuppress); err != nil {
				return nil, err
			}
		}
		return out, nil

	case ShapeEvent:
		out := container.NewEventSeries(dataKey, frame)
		for _, e := range v.Elems {
			if err := out.Insert(e.Time, e.ID, container.NotifySuppress); err != nil {
				return nil, err
			}
		}
		return out, nil

	case ShapeInterval:
		out := container.NewIntervalSeries(dataKey, frame)
		for _, e := range v.Elems {
			sp, ok := e.Payload.(container.Span)
			if !ok {
				return nil, fmt.Errorf("materialising %q as IntervalSeries: %w", dataKey, apperrors.ErrBackendTypeMismatch)
			}
			if err := out.Insert(timeframe.Index(sp.Start), timeframe.Index(sp.End), e.ID, container.NotifySuppress); err != nil {
				return nil, err
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("materialising %q: geometry-shaped pipeline output is not supported: %w", dataKey, apperrors.ErrBackendTypeMismatch)
	}
}
