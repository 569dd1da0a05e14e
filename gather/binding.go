package gather

import (
	"fmt"

	"github.com/paulmthompson/WhiskerToolbox-sub000/apperrors"
	"github.com/paulmthompson/WhiskerToolbox-sub000/pipeline"
	"github.com/paulmthompson/WhiskerToolbox-sub000/reduction"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
	"github.com/paulmthompson/WhiskerToolbox-sub000/transform"
)

// BindProjection adapts a single-step Pipeline into a ProjectionFactory:
// the returned closure resolves p's one step's parameters against a
// trial's PipelineValueStore (exactly as spec.md §4.5 binding) and
// applies the named element transform to each payload (spec.md §4.8
// "bind_projection").
func BindProjection(p *pipeline.Pipeline, transforms *transform.Registry) ProjectionFactory {
	return func(store *pipeline.PipelineValueStore) (ProjectionFunc, error) {
		step, err := soleStep(p)
		if err != nil {
			return nil, err
		}
		params, err := pipeline.ResolveStepParams(transforms, step, store)
		if err != nil {
			return nil, err
		}
		return func(payload any) (any, error) {
			return transforms.ApplyElement(step.Transform, payload, params)
		}, nil
	}
}

// BindReducer adapts a single-pre-reduction Pipeline into a
// ReducerFactory (spec.md §4.8 "bind_reducer").
func BindReducer(p *pipeline.Pipeline, reductions *reduction.Registry) ReducerFactory {
	return func(store *pipeline.PipelineValueStore) (ReducerFunc, error) {
		if len(p.PreReductions) != 1 {
			return nil, fmt.Errorf("gather: bind_reducer requires exactly one pre-reduction step: %w", apperrors.ErrInvariantViolation)
		}
		rs := p.PreReductions[0]
		params, err := pipeline.ResolveReductionParams(reductions, rs, store)
		if err != nil {
			return nil, err
		}
		return func(elems []pipeline.Elem) (float64, error) {
			samples := make([]reduction.Sample, len(elems))
			for i, e := range elems {
				samples[i] = reduction.Sample{Time: e.Time, Value: toFloat(e.Payload)}
			}
			return reductions.Apply(rs.Reduction, samples, params)
		}, nil
	}
}

// ViewAdaptorFunc maps one trial's LazyView to another, bound to that
// trial's PipelineValueStore (spec.md §4.8 "bind_view_adaptor").
type ViewAdaptorFunc func(view pipeline.LazyView) (pipeline.LazyView, error)

// ViewAdaptorFactory builds a ViewAdaptorFunc from a trial's value
// store.
type ViewAdaptorFactory func(store *pipeline.PipelineValueStore) (ViewAdaptorFunc, error)

// BindViewAdaptor adapts a single-step Pipeline into a
// ViewAdaptorFactory: the element transform it names is applied across
// every element of the view it is handed, carrying entity ids through
// unchanged.
func BindViewAdaptor(p *pipeline.Pipeline, transforms *transform.Registry) ViewAdaptorFactory {
	return func(store *pipeline.PipelineValueStore) (ViewAdaptorFunc, error) {
		step, err := soleStep(p)
		if err != nil {
			return nil, err
		}
		params, err := pipeline.ResolveStepParams(transforms, step, store)
		if err != nil {
			return nil, err
		}
		return func(view pipeline.LazyView) (pipeline.LazyView, error) {
			out := make([]pipeline.Elem, len(view.Elems))
			for i, e := range view.Elems {
				val, err := transforms.ApplyElement(step.Transform, e.Payload, params)
				if err != nil {
					return pipeline.LazyView{}, err
				}
				out[i] = pipeline.Elem{Time: e.Time, ID: e.ID, HasID: e.HasID, Payload: val}
			}
			return pipeline.LazyView{Frame: view.Frame, Shape: view.Shape, Elems: out}, nil
		}, nil
	}
}

func soleStep(p *pipeline.Pipeline) (pipeline.PipelineStep, error) {
	enabled := 0
	var only pipeline.PipelineStep
	for _, s := range p.Steps {
		if s.Enabled {
			enabled++
			only = s
		}
	}
	if enabled != 1 {
		return pipeline.PipelineStep{}, fmt.Errorf("gather: binding helper requires exactly one enabled step, got %d: %w", enabled, apperrors.ErrInvariantViolation)
	}
	return only, nil
}

// toFloat coerces a LazyView payload into reduction.Sample's Value,
// mirroring pipeline.samplesFromView's numeric adaptation.
func toFloat(payload any) float64 {
	switch p := payload.(type) {
	case float32:
		return float64(p)
	case float64:
		return p
	case timeframe.Index:
		return float64(p)
	default:
		return 0
	}
}
