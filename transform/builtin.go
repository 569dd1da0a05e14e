package transform

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmthompson/WhiskerToolbox-sub000/apperrors"
	"github.com/paulmthompson/WhiskerToolbox-sub000/container"
	"github.com/paulmthompson/WhiskerToolbox-sub000/entity"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// RegisterBuiltins installs every built-in transform named in
// SPEC_FULL.md §4.3.1 into r.
func RegisterBuiltins(r *Registry) {
	registerMaskArea(r)
	registerSumReduction(r)
	registerZScore(r)
	registerLinePointDistance(r)
	registerNormalizeEventTime(r)
	registerAnalogIntervalThreshold(r)
}

// --- mask_area ---------------------------------------------------------

func registerMaskArea(r *Registry) {
	r.RegisterElement(Metadata{
		Name:          "mask_area",
		Category:      "geometry",
		Description:   "Pixel count of a 2D mask.",
		InputType:     "GeometryEntry[Mask2D]",
		OutputType:    "RaggedScalar",
		ParamType:     "none",
		Lineage:       LineageOneToOneByTime,
		Deterministic: true,
	}, maskAreaFn, func(json.RawMessage) (any, error) { return nil, nil })
}

func maskAreaFn(in any, _ any) (any, error) {
	m, ok := in.(container.Mask2D)
	if !ok {
		return nil, fmt.Errorf("mask_area: %w", apperrors.ErrBackendTypeMismatch)
	}
	return m.Area(), nil
}

// --- sum_reduction -------------------------------------------------------

func registerSumReduction(r *Registry) {
	r.RegisterTimeGrouped(Metadata{
		Name:          "sum_reduction",
		Category:      "aggregate",
		Description:   "Sums every ragged value at a time into one scalar.",
		InputType:     "RaggedScalar",
		OutputType:    "ScalarSample",
		ParamType:     "none",
		Lineage:       LineageAllToOneByTime,
		Deterministic: true,
	}, sumReductionFn, func(json.RawMessage) (any, error) { return nil, nil })
}

func sumReductionFn(group []any, _ any) ([]any, error) {
	var sum float32
	for _, v := range group {
		f, ok := v.(float32)
		if !ok {
			return nil, fmt.Errorf("sum_reduction: %w", apperrors.ErrBackendTypeMismatch)
		}
		sum += f
	}
	return []any{sum}, nil
}

// --- z_score -------------------------------------------------------------

// ZScoreParams are the bound parameters of the z_score transform. Mean
// and StdDev are always populated via param_bindings from pre-reduction
// outputs (spec.md §4.5's Open Question resolves to the binding path
// only; see DESIGN.md).
type ZScoreParams struct {
	Mean             float64 `json:"mean"`
	StdDev           float64 `json:"std_dev"`
	ClampOutliers    bool    `json:"clamp_outliers"`
	OutlierThreshold float64 `json:"outlier_threshold"`
}

func registerZScore(r *Registry) {
	r.RegisterElement(Metadata{
		Name:          "z_score",
		Category:      "normalize",
		Description:   "Normalizes a scalar against a bound mean and standard deviation.",
		InputType:     "ScalarSample",
		OutputType:    "ScalarSample",
		ParamType:     "ZScoreParams",
		Lineage:       LineageOneToOneByTime,
		Deterministic: true,
		ContextKeys:   []string{"mean", "std_dev"},
	}, zScoreFn, parseZScoreParams)
}

func parseZScoreParams(raw json.RawMessage) (any, error) {
	var p ZScoreParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func zScoreFn(in any, params any) (any, error) {
	v, ok := in.(float32)
	if !ok {
		return nil, fmt.Errorf("z_score: %w", apperrors.ErrBackendTypeMismatch)
	}
	p, ok := params.(ZScoreParams)
	if !ok {
		return nil, fmt.Errorf("z_score: %w", apperrors.ErrBindingTypeMismatch)
	}
	if p.StdDev == 0 {
		return float32(0), nil
	}
	z := (float64(v) - p.Mean) / p.StdDev
	if p.ClampOutliers {
		if z > p.OutlierThreshold {
			z = p.OutlierThreshold
		} else if z < -p.OutlierThreshold {
			z = -p.OutlierThreshold
		}
	}
	return float32(z), nil
}

// --- line_point_distance ---------------------------------------------------

func registerLinePointDistance(r *Registry) {
	r.RegisterElement(Metadata{
		Name:          "line_point_distance",
		Category:      "geometry",
		Description:   "Euclidean distance from a line's centroid to a point.",
		InputType:     "(Line2D, Point2D)",
		OutputType:    "RaggedScalar",
		ParamType:     "none",
		Lineage:       LineageMultiSource,
		Arity:         2,
		Deterministic: true,
	}, linePointDistanceFn, func(json.RawMessage) (any, error) { return nil, nil })
}

// linePointDistanceFn takes the tuple a multi-input pipeline step
// zips together (spec.md §4.4): in is []any{Line2D, Point2D} in input
// declaration order.
func linePointDistanceFn(in any, _ any) (any, error) {
	tuple, ok := in.([]any)
	if !ok || len(tuple) != 2 {
		return nil, fmt.Errorf("line_point_distance: %w", apperrors.ErrBackendTypeMismatch)
	}
	line, ok := tuple[0].(container.Line2D)
	if !ok {
		return nil, fmt.Errorf("line_point_distance: %w", apperrors.ErrBackendTypeMismatch)
	}
	point, ok := tuple[1].(container.Point2D)
	if !ok {
		return nil, fmt.Errorf("line_point_distance: %w", apperrors.ErrBackendTypeMismatch)
	}
	c := line.Centroid()
	dx := float64(c.X - point.X)
	dy := float64(c.Y - point.Y)
	return float32(math.Sqrt(dx*dx + dy*dy)), nil
}

// --- normalize_event_time --------------------------------------------------

// NormalizeEventTimeParams carries the per-trial alignment time, bound
// from the gather trial store's "alignment_time" key (spec.md §4.8).
type NormalizeEventTimeParams struct {
	ReferenceTime float64 `json:"reference_time"`
}

func registerNormalizeEventTime(r *Registry) {
	r.RegisterElement(Metadata{
		Name:          "normalize_event_time",
		Category:      "temporal",
		Description:   "Subtracts a bound reference time from an event's time.",
		InputType:     "Event",
		OutputType:    "RaggedScalar",
		ParamType:     "NormalizeEventTimeParams",
		Lineage:       LineageOneToOneByTime,
		Deterministic: true,
		ContextKeys:   []string{"reference_time"},
	}, normalizeEventTimeFn, parseNormalizeEventTimeParams)
}

func parseNormalizeEventTimeParams(raw json.RawMessage) (any, error) {
	var p NormalizeEventTimeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func normalizeEventTimeFn(in any, params any) (any, error) {
	t, ok := in.(timeframe.Index)
	if !ok {
		return nil, fmt.Errorf("normalize_event_time: %w", apperrors.ErrBackendTypeMismatch)
	}
	p, ok := params.(NormalizeEventTimeParams)
	if !ok {
		return nil, fmt.Errorf("normalize_event_time: %w", apperrors.ErrBindingTypeMismatch)
	}
	return float32(float64(t) - p.ReferenceTime), nil
}

// --- analog_interval_threshold ----------------------------------------------

// AnalogIntervalThresholdParams configures threshold-crossing interval
// detection over a ScalarSeries.
type AnalogIntervalThresholdParams struct {
	Threshold      float64 `json:"threshold"`
	TreatGapsAsZero bool   `json:"treat_gaps_as_zero"`
}

func registerAnalogIntervalThreshold(r *Registry) {
	r.RegisterContainer(Metadata{
		Name:          "analog_interval_threshold",
		Category:      "detect",
		Description:   "Detects above-threshold runs in a ScalarSeries and emits an IntervalSeries.",
		InputType:     "ScalarSeries",
		OutputType:    "IntervalSeries",
		ParamType:     "AnalogIntervalThresholdParams",
		Lineage:       LineageSource,
		Expensive:     true,
		Deterministic: true,
	}, analogIntervalThresholdFn, parseAnalogIntervalThresholdParams)
}

func parseAnalogIntervalThresholdParams(raw json.RawMessage) (any, error) {
	var p AnalogIntervalThresholdParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func analogIntervalThresholdFn(in any, params any, ctx ContainerContext) (any, error) {
	series, ok := in.(*container.ScalarSeries)
	if !ok {
		return nil, fmt.Errorf("analog_interval_threshold: %w", apperrors.ErrBackendTypeMismatch)
	}
	p, ok := params.(AnalogIntervalThresholdParams)
	if !ok {
		return nil, fmt.Errorf("analog_interval_threshold: %w", apperrors.ErrBindingTypeMismatch)
	}

	samples := series.Samples()
	out := container.NewIntervalSeries(series.DataKey()+"_intervals", series.Frame())

	var openStart timeframe.Index
	open := false
	var nextID int64 = 1

	closeRun := func(endTime timeframe.Index) error {
		if !open {
			return nil
		}
		open = false
		id := entityIDFromLocal(nextID)
		nextID++
		return out.Insert(openStart, endTime, id, container.NotifySuppress)
	}

	var lastTime timeframe.Index
	for i, s := range samples {
		if ctx != nil {
			ctx.ReportProgress(i, len(samples))
			if ctx.IsCancelled() {
				return nil, apperrors.ErrCancelled
			}
		}

		if p.TreatGapsAsZero && open && i > 0 && s.Time > lastTime+1 {
			// A gap is treated as an implicit sample of zero at
			// lastTime+1: if zero is below threshold, the run closes
			// there; otherwise the gap does not interrupt it.
			if 0 < p.Threshold {
				if err := closeRun(lastTime); err != nil {
					return nil, err
				}
			}
		}

		above := float64(s.Val) >= p.Threshold
		switch {
		case above && !open:
			open = true
			openStart = s.Time
		case !above && open:
			if err := closeRun(lastTime); err != nil {
				return nil, err
			}
		}
		lastTime = s.Time
	}
	if err := closeRun(lastTime); err != nil {
		return nil, err
	}

	if ctx != nil {
		ctx.ReportProgress(len(samples), len(samples))
	}
	return out, nil
}

// entityIDFromLocal assigns a locally-unique id to an interval detected
// purely inside this container transform. It exists because
// analog_interval_threshold has no EntityRegistry of its own to consult;
// callers that need ids stable across runs should re-derive them
// through a shared entity.Registry keyed on the output container's name
// instead of relying on these values persisting.
func entityIDFromLocal(n int64) entity.ID {
	return entity.ID(n)
}
