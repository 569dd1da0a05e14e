// Package container implements the five container categories of
// spec.md §3.4 on top of package storage's ragged backends.
package container

import (
	"github.com/paulmthompson/WhiskerToolbox-sub000/entity"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// ScalarSample is one (time, value) datum in a ScalarSeries.
type ScalarSample struct {
	Time  timeframe.Index
	Val   float32
}

func (s ScalarSample) Value() float32 { return s.Val }

// RaggedScalar is one (time, value) datum in a RaggedScalarSeries;
// several may share a time.
type RaggedScalar struct {
	Time timeframe.Index
	Val  float32
}

func (s RaggedScalar) Value() float32 { return s.Val }

// Event is a bare occurrence at a time, carrying only identity.
type Event struct {
	Time timeframe.Index
	ID   entity.ID
}

// Span is the payload of an Interval element: an end-inclusive range
// expressed as raw int64 indices (so it can be carried as a value
// independent of any particular TimeFrame binding).
type Span struct {
	Start int64
	End   int64
}

// Interval is a time-anchored, entity-bearing span. The Anchor field
// holds its Start, reinterpreted as a TimeFrameIndex; Value() returns
// the full span.
type Interval struct {
	Anchor timeframe.Index
	ID     entity.ID
	Span   Span
}

func (iv Interval) Value() Span { return iv.Span }

// GeometryEntry is one entity-bearing geometry datum of payload type T
// (Point2D, Line2D, or Mask2D).
type GeometryEntry[T any] struct {
	Time timeframe.Index
	ID   entity.ID
	Geom T
}

func (g GeometryEntry[T]) Value() T { return g.Geom }
