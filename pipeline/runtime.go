package pipeline

import (
	"fmt"
	"strings"

	"github.com/paulmthompson/WhiskerToolbox-sub000/apperrors"
	"github.com/paulmthompson/WhiskerToolbox-sub000/execctx"
	"github.com/paulmthompson/WhiskerToolbox-sub000/reduction"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
	"github.com/paulmthompson/WhiskerToolbox-sub000/transform"
)

// LineageRecorder receives a lineage descriptor each time Execute or
// ExecuteMulti materialises a named output (spec.md §4.4 "Lineage
// emission"). It is declared here, not in package lineage, so that
// pipeline never imports lineage. lineage does not import pipeline
// either: a *lineage.Registry satisfies this interface structurally.
type LineageRecorder interface {
	RecordSource(outputKey string)
	RecordOneToOneByTime(outputKey, sourceKey string)
	RecordAllToOneByTime(outputKey, sourceKey string)
	RecordMultiSource(outputKey string, sourceKeys []string)
}

// Execute runs p against a single input container and returns the
// materialised output named outputKey (spec.md §4.4's single-input
// execution order).
func Execute(
	p *Pipeline,
	inputKey string,
	input any,
	outputKey string,
	transforms *transform.Registry,
	reductions *reduction.Registry,
	ctx *execctx.Context,
	recorder LineageRecorder,
) (any, error) {
	view, err := AdaptContainer(input)
	if err != nil {
		return nil, fmt.Errorf("adapting input %q: %w", inputKey, err)
	}

	store := NewPipelineValueStore()
	for _, rs := range p.PreReductions {
		if err := runPreReduction(rs, view, reductions, store); err != nil {
			return nil, err
		}
	}

	enabled := enabledStepsOf(p.Steps)
	sourceName := inputKey
	for i, step := range enabled {
		meta, err := transforms.Metadata(step.Transform)
		if err != nil {
			return nil, err
		}

		newView, err := runStep(step, view, transforms, store, ctx)
		if err != nil {
			return nil, fmt.Errorf("step %q (%s): %w", step.StepID, step.Transform, err)
		}
		view = newView

		stepName := stepOutputName(step, i, i == len(enabled)-1, outputKey)
		recordStepLineage(recorder, meta, stepName, sourceName)
		sourceName = stepName
	}

	out, err := Materialize(outputKey, view.Frame, view)
	if err != nil {
		return nil, err
	}

	// An empty pipeline is a pass-through: the output is a copy of the
	// input, so its lineage is Source rather than a derived variant
	// (spec.md §8's empty-pipeline boundary case).
	if len(enabled) == 0 && recorder != nil {
		recorder.RecordSource(outputKey)
	}

	return out, nil
}

// ExecuteMulti runs p against N heterogeneous input containers. The
// inputs are zipped with FlatZip (spec.md §4.4 "Multi-input execution")
// before the pipeline's first step, whose transform must declare an
// Arity matching len(inputs); every step after that proceeds exactly as
// in Execute over the resulting single lazy view.
func ExecuteMulti(
	p *Pipeline,
	inputKeys []string,
	inputs []any,
	outputKey string,
	transforms *transform.Registry,
	reductions *reduction.Registry,
	ctx *execctx.Context,
	recorder LineageRecorder,
) (any, error) {
	if len(inputs) == 0 || len(inputs) != len(inputKeys) {
		return nil, fmt.Errorf("executing multi-input pipeline: %w", apperrors.ErrShapeMismatch)
	}
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("executing multi-input pipeline: needs at least one step to combine its inputs: %w", apperrors.ErrInvariantViolation)
	}

	perInput := make([][]Elem, len(inputs))
	var frame *timeframe.Frame
	for i, in := range inputs {
		v, err := AdaptContainer(in)
		if err != nil {
			return nil, fmt.Errorf("adapting input %q: %w", inputKeys[i], err)
		}
		perInput[i] = v.Elems
		if frame == nil {
			frame = v.Frame
		}
	}

	zipped, err := FlatZip(perInput)
	if err != nil {
		return nil, err
	}

	first := p.Steps[0]
	if !first.Enabled {
		return nil, fmt.Errorf("executing multi-input pipeline: the combining step cannot be disabled: %w", apperrors.ErrInvariantViolation)
	}
	firstMeta, err := transforms.Metadata(first.Transform)
	if err != nil {
		return nil, err
	}
	if firstMeta.Arity != len(inputs) {
		return nil, fmt.Errorf("transform %q expects %d inputs, got %d: %w", first.Transform, firstMeta.Arity, len(inputs), apperrors.ErrShapeMismatch)
	}

	store := NewPipelineValueStore()
	// Pre-reductions in a multi-input pipeline run over the first
	// input's elements; spec.md §4.4 leaves the exact source
	// ambiguous ("the latest view, depending on the reduction's
	// declared input type") for the N-input case.
	for _, rs := range p.PreReductions {
		firstView := LazyView{Frame: frame, Elems: perInput[0]}
		if err := runPreReduction(rs, firstView, reductions, store); err != nil {
			return nil, err
		}
	}

	paramsJSON, err := applyBindings(first.Params, first.ParamBindings, store)
	if err != nil {
		return nil, err
	}
	params, err := transforms.ParseParams(first.Transform, paramsJSON)
	if err != nil {
		return nil, err
	}

	out := make([]Elem, len(zipped))
	for i, z := range zipped {
		if ctx != nil && i%execctx.ProgressEvery == 0 {
			ctx.ReportProgress(i, len(zipped))
			if ctx.IsCancelled() {
				return nil, apperrors.ErrCancelled
			}
		}
		val, err := transforms.ApplyElement(first.Transform, z.Payloads, params)
		if err != nil {
			return nil, fmt.Errorf("step %q (%s): %w", first.StepID, first.Transform, err)
		}
		out[i] = Elem{Time: z.Time, Payload: val}
	}
	if ctx != nil {
		ctx.ReportProgress(len(zipped), len(zipped))
	}

	rest := enabledStepsOf(p.Steps[1:])
	view := LazyView{Frame: frame, Shape: ShapeForOutputType(firstMeta.OutputType), Elems: out}

	firstName := stepOutputName(first, 0, len(rest) == 0, outputKey)
	if recorder != nil {
		recorder.RecordMultiSource(firstName, inputKeys)
	}

	sourceName := firstName
	for i, step := range rest {
		meta, err := transforms.Metadata(step.Transform)
		if err != nil {
			return nil, err
		}
		newView, err := runStep(step, view, transforms, store, ctx)
		if err != nil {
			return nil, fmt.Errorf("step %q (%s): %w", step.StepID, step.Transform, err)
		}
		view = newView

		stepName := stepOutputName(step, i+1, i == len(rest)-1, outputKey)
		recordStepLineage(recorder, meta, stepName, sourceName)
		sourceName = stepName
	}

	return Materialize(outputKey, view.Frame, view)
}

// --- internals --------------------------------------------------------

func enabledStepsOf(steps []PipelineStep) []PipelineStep {
	out := make([]PipelineStep, 0, len(steps))
	for _, s := range steps {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// stepOutputName names the intermediate (or final) result a step
// produces, for lineage recording: an explicit StepID wins, the last
// step always takes the pipeline's declared outputKey, and any other
// unnamed step gets a derived, stable placeholder.
func stepOutputName(step PipelineStep, index int, isLast bool, outputKey string) string {
	if step.StepID != "" {
		return step.StepID
	}
	if isLast {
		return outputKey
	}
	return fmt.Sprintf("%s~%d", outputKey, index)
}

func recordStepLineage(recorder LineageRecorder, meta transform.Metadata, outputName, sourceName string) {
	if recorder == nil {
		return
	}
	switch meta.Lineage {
	case transform.LineageSource:
		recorder.RecordSource(outputName)
	case transform.LineageOneToOneByTime:
		recorder.RecordOneToOneByTime(outputName, sourceName)
	case transform.LineageAllToOneByTime:
		recorder.RecordAllToOneByTime(outputName, sourceName)
	case transform.LineageMultiSource:
		recorder.RecordMultiSource(outputName, []string{sourceName})
	default:
		// Subset, Explicit, EntityMapped, and ImplicitEntityMap all
		// need entity information the runtime cannot infer from the
		// transform call alone (spec.md §4.4): a caller that needs
		// one of these records it itself via the LineageRecorder.
	}
}

func runStep(step PipelineStep, view LazyView, transforms *transform.Registry, store *PipelineValueStore, ctx *execctx.Context) (LazyView, error) {
	meta, err := transforms.Metadata(step.Transform)
	if err != nil {
		return LazyView{}, err
	}

	paramsJSON, err := applyBindings(step.Params, step.ParamBindings, store)
	if err != nil {
		return LazyView{}, err
	}
	params, err := transforms.ParseParams(step.Transform, paramsJSON)
	if err != nil {
		return LazyView{}, err
	}

	kind, err := transforms.Kind(step.Transform)
	if err != nil {
		return LazyView{}, err
	}

	switch kind {
	case transform.KindElement:
		return applyElementStep(step.Transform, view, meta, transforms, params, ctx)
	case transform.KindTimeGrouped:
		return applyTimeGroupedStep(step.Transform, view, meta, transforms, params, ctx)
	case transform.KindContainer:
		return applyContainerStep(step.Transform, view, meta, transforms, params, ctx)
	default:
		return LazyView{}, fmt.Errorf("step %q: %w", step.Transform, apperrors.ErrInvariantViolation)
	}
}

func applyElementStep(name string, view LazyView, meta transform.Metadata, transforms *transform.Registry, params any, ctx *execctx.Context) (LazyView, error) {
	out := make([]Elem, len(view.Elems))
	for i, e := range view.Elems {
		if ctx != nil && i%execctx.ProgressEvery == 0 {
			ctx.ReportProgress(i, len(view.Elems))
			if ctx.IsCancelled() {
				return LazyView{}, apperrors.ErrCancelled
			}
		}
		val, err := transforms.ApplyElement(name, e.Payload, params)
		if err != nil {
			return LazyView{}, err
		}
		out[i] = Elem{Time: e.Time, ID: e.ID, HasID: e.HasID, Payload: val}
	}
	if ctx != nil {
		ctx.ReportProgress(len(view.Elems), len(view.Elems))
	}
	return LazyView{Frame: view.Frame, Shape: ShapeForOutputType(meta.OutputType), Elems: out}, nil
}

// applyTimeGroupedStep buckets view.Elems by time, preserving the order
// each distinct time is first seen (adapters always emit elements in
// non-decreasing time order, so this also yields sorted output), then
// runs the TimeGroupedFunc once per bucket. Outputs carry no entity id:
// a transform that folds a whole time bucket together (AllToOneByTime)
// has no single source entity left to attribute the result to.
func applyTimeGroupedStep(name string, view LazyView, meta transform.Metadata, transforms *transform.Registry, params any, ctx *execctx.Context) (LazyView, error) {
	type bucket struct {
		time     timeframe.Index
		payloads []any
	}
	var buckets []bucket
	index := make(map[timeframe.Index]int)
	for _, e := range view.Elems {
		bi, ok := index[e.Time]
		if !ok {
			bi = len(buckets)
			index[e.Time] = bi
			buckets = append(buckets, bucket{time: e.Time})
		}
		buckets[bi].payloads = append(buckets[bi].payloads, e.Payload)
	}

	var out []Elem
	for bi, b := range buckets {
		if ctx != nil && bi%execctx.ProgressEvery == 0 {
			ctx.ReportProgress(bi, len(buckets))
			if ctx.IsCancelled() {
				return LazyView{}, apperrors.ErrCancelled
			}
		}
		results, err := transforms.ApplyTimeGrouped(name, b.payloads, params)
		if err != nil {
			return LazyView{}, err
		}
		for _, r := range results {
			out = append(out, Elem{Time: b.time, Payload: r})
		}
	}
	if ctx != nil {
		ctx.ReportProgress(len(buckets), len(buckets))
	}
	return LazyView{Frame: view.Frame, Shape: ShapeForOutputType(meta.OutputType), Elems: out}, nil
}

func applyContainerStep(name string, view LazyView, meta transform.Metadata, transforms *transform.Registry, params any, ctx *execctx.Context) (LazyView, error) {
	built, err := Materialize(name, view.Frame, view)
	if err != nil {
		return LazyView{}, err
	}
	result, err := transforms.ApplyContainer(name, built, params, ctx)
	if err != nil {
		return LazyView{}, err
	}
	return AdaptContainer(result)
}

func runPreReduction(rs ReductionStep, view LazyView, reductions *reduction.Registry, store *PipelineValueStore) error {
	if reductions == nil {
		return fmt.Errorf("pre-reduction %q: %w", rs.Reduction, apperrors.ErrUnknownReduction)
	}
	paramsJSON, err := applyBindings(rs.Params, rs.Bindings, store)
	if err != nil {
		return fmt.Errorf("pre-reduction %q: %w", rs.Reduction, err)
	}
	params, err := reductions.ParseParams(rs.Reduction, paramsJSON)
	if err != nil {
		return err
	}
	samples := samplesFromView(view)
	val, err := reductions.Apply(rs.Reduction, samples, params)
	if err != nil {
		return fmt.Errorf("pre-reduction %q: %w", rs.Reduction, err)
	}
	store.Set(rs.OutputKey, Float64Scalar(val))
	return nil
}

// samplesFromView adapts a LazyView's elements into reduction.Samples.
// Event payloads (a timeframe.Index) contribute their time as the
// value; other non-numeric payloads (intervals, geometry) contribute a
// zero value: reductions that need more than presence/time information are
// declared against a narrower InputType and should not be wired to
// those steps in a pipeline's pre_reductions.
func samplesFromView(view LazyView) []reduction.Sample {
	out := make([]reduction.Sample, len(view.Elems))
	for i, e := range view.Elems {
		var v float64
		switch p := e.Payload.(type) {
		case float32:
			v = float64(p)
		case float64:
			v = p
		case timeframe.Index:
			v = float64(p)
		}
		out[i] = reduction.Sample{Time: e.Time, Value: v}
	}
	return out
}

func joinKeys(keys []string) string {
	return strings.Join(keys, ",")
}
