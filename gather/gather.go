// Package gather implements spec.md §4.8's gather / trial-alignment
// operator: slicing a container by a series of trial windows to produce
// per-trial views, projections, and reductions. It depends on pipeline's
// LazyView/Elem representation so a single GatherResult can slice any of
// the five container categories uniformly, without a type parameter of
// its own.
package gather

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmthompson/WhiskerToolbox-sub000/apperrors"
	"github.com/paulmthompson/WhiskerToolbox-sub000/container"
	"github.com/paulmthompson/WhiskerToolbox-sub000/pipeline"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// trial is one trial window: its span plus whatever entity id the
// source IntervalSeries attached to it.
type trial struct {
	span container.Span
	id   int64
}

// GatherResult is an ordered sequence of per-trial views into a source
// container (spec.md §4.8).
type GatherResult struct {
	frame  *timeframe.Frame
	source pipeline.LazyView
	trials []trial
}

// Gather slices x (any of the five container categories, accepted via
// pipeline.AdaptContainer) by the trial windows in trials.
func Gather(x any, trials *container.IntervalSeries) (*GatherResult, error) {
	view, err := pipeline.AdaptContainer(x)
	if err != nil {
		return nil, fmt.Errorf("gather: adapting source container: %w", err)
	}
	ivs := trials.Intervals()
	ts := make([]trial, len(ivs))
	for i, iv := range ivs {
		ts[i] = trial{span: iv.Span, id: int64(iv.ID)}
	}
	return &GatherResult{frame: view.Frame, source: view, trials: ts}, nil
}

// Size is the number of trials.
func (g *GatherResult) Size() int { return len(g.trials) }

// ViewAt returns the i'th trial's slice of the source view: every
// element whose time falls inside that trial's span (operator[](i) /
// view_at(i) in spec.md §4.8).
func (g *GatherResult) ViewAt(i int) (pipeline.LazyView, error) {
	if i < 0 || i >= len(g.trials) {
		return pipeline.LazyView{}, fmt.Errorf("gather: trial index %d out of range [0,%d): %w", i, len(g.trials), apperrors.ErrInvariantViolation)
	}
	t := g.trials[i]
	iv := timeframe.Interval{Start: timeframe.Index(t.span.Start), End: timeframe.Index(t.span.End)}
	var elems []pipeline.Elem
	for _, e := range g.source.Elems {
		if iv.Contains(e.Time) {
			elems = append(elems, e)
		}
	}
	return pipeline.LazyView{Frame: g.frame, Shape: g.source.Shape, Elems: elems}, nil
}

// BuildTrialStore populates a PipelineValueStore describing trial i:
// alignment_time (the trial's start), trial_start, trial_end, and
// trial_duration (spec.md §4.8).
func (g *GatherResult) BuildTrialStore(i int) (*pipeline.PipelineValueStore, error) {
	if i < 0 || i >= len(g.trials) {
		return nil, fmt.Errorf("gather: trial index %d out of range [0,%d): %w", i, len(g.trials), apperrors.ErrInvariantViolation)
	}
	t := g.trials[i]
	store := pipeline.NewPipelineValueStore()
	store.Set("alignment_time", pipeline.Float64Scalar(float64(t.span.Start)))
	store.Set("trial_start", pipeline.Float64Scalar(float64(t.span.Start)))
	store.Set("trial_end", pipeline.Float64Scalar(float64(t.span.End)))
	store.Set("trial_duration", pipeline.Float64Scalar(float64(t.span.End-t.span.Start)))
	return store, nil
}

// ProjectionFunc maps one element's payload to a new payload, bound to
// one trial's PipelineValueStore (spec.md §4.8 "project").
type ProjectionFunc func(payload any) (any, error)

// ProjectionFactory builds a ProjectionFunc from a trial's value store.
type ProjectionFactory func(store *pipeline.PipelineValueStore) (ProjectionFunc, error)

// Project applies factory's projection to every trial and returns a
// new GatherResult over the projected payloads. Every projected element
// is computed when Project is called, not on later access. Each
// element keeps its original Time (the transforms this binds are
// OneToOneByTime), so the returned result's trial spans still select
// the right elements, letting Project and Reduce chain directly:
// g.Project(p).Reduce(r).
func (g *GatherResult) Project(factory ProjectionFactory) (*GatherResult, error) {
	var elems []pipeline.Elem
	shape := g.source.Shape
	for i := range g.trials {
		store, err := g.BuildTrialStore(i)
		if err != nil {
			return nil, err
		}
		proj, err := factory(store)
		if err != nil {
			return nil, fmt.Errorf("gather: building projection for trial %d: %w", i, err)
		}
		view, err := g.ViewAt(i)
		if err != nil {
			return nil, err
		}
		shape = view.Shape
		for j, e := range view.Elems {
			val, err := proj(e.Payload)
			if err != nil {
				return nil, fmt.Errorf("gather: projecting trial %d element %d: %w", i, j, err)
			}
			elems = append(elems, pipeline.Elem{Time: e.Time, ID: e.ID, HasID: e.HasID, Payload: val})
		}
	}
	return &GatherResult{
		frame:  g.frame,
		source: pipeline.LazyView{Frame: g.frame, Shape: shape, Elems: elems},
		trials: g.trials,
	}, nil
}

// ReducerFunc collapses one trial's elements to a scalar, bound to that
// trial's PipelineValueStore (spec.md §4.8 "reduce").
type ReducerFunc func(elems []pipeline.Elem) (float64, error)

// ReducerFactory builds a ReducerFunc from a trial's value store.
type ReducerFactory func(store *pipeline.PipelineValueStore) (ReducerFunc, error)

// Reduce runs factory's reducer over every trial's view, returning one
// scalar per trial.
func (g *GatherResult) Reduce(factory ReducerFactory) ([]float64, error) {
	out := make([]float64, len(g.trials))
	for i := range g.trials {
		store, err := g.BuildTrialStore(i)
		if err != nil {
			return nil, err
		}
		reduce, err := factory(store)
		if err != nil {
			return nil, fmt.Errorf("gather: building reducer for trial %d: %w", i, err)
		}
		view, err := g.ViewAt(i)
		if err != nil {
			return nil, err
		}
		val, err := reduce(view.Elems)
		if err != nil {
			return nil, fmt.Errorf("gather: reducing trial %d: %w", i, err)
		}
		out[i] = val
	}
	return out, nil
}

// SortIndicesBy runs Reduce then returns trial indices sorted by the
// resulting scalar: stable (ties keep original order), NaN sorts last
// (spec.md §4.8).
func (g *GatherResult) SortIndicesBy(factory ReducerFactory) ([]int, error) {
	scores, err := g.Reduce(factory)
	if err != nil {
		return nil, err
	}
	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		sa, sb := scores[indices[a]], scores[indices[b]]
		if math.IsNaN(sa) {
			return false
		}
		if math.IsNaN(sb) {
			return true
		}
		return sa < sb
	})
	return indices, nil
}

// Reorder returns a new GatherResult whose trials are the permutation
// (or filtered subset) of the current trials named by indices.
func (g *GatherResult) Reorder(indices []int) (*GatherResult, error) {
	out := make([]trial, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(g.trials) {
			return nil, fmt.Errorf("gather: reorder index %d out of range [0,%d): %w", idx, len(g.trials), apperrors.ErrInvariantViolation)
		}
		out[i] = g.trials[idx]
	}
	return &GatherResult{frame: g.frame, source: g.source, trials: out}, nil
}
