package reduction

import (
	"encoding/json"
	"math"
)

// RegisterBuiltins installs every reduction named in spec.md §4.6 into r.
func RegisterBuiltins(r *Registry) {
	registerEventReductions(r)
	registerValueReductions(r)
}

// --- shared parameter types ------------------------------------------------

// NumericParams is shared by every value reduction that has no other
// configuration: whether to skip NaN samples (spec.md §4.6 "reductions
// skip NaN if their params so indicate").
type NumericParams struct {
	SkipNaN bool `json:"skip_nan"`
}

func parseNumericParams(raw json.RawMessage) (any, error) {
	var p NumericParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// ThresholdParams configures the threshold-based value reductions.
type ThresholdParams struct {
	Threshold float64 `json:"threshold"`
	SkipNaN   bool    `json:"skip_nan"`
}

func parseThresholdParams(raw json.RawMessage) (any, error) {
	var p ThresholdParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// WindowParams configures event_count_in_window.
type WindowParams struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

func parseWindowParams(raw json.RawMessage) (any, error) {
	var p WindowParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func numericOf(params any) NumericParams {
	if p, ok := params.(NumericParams); ok {
		return p
	}
	return NumericParams{}
}

func valuesOf(samples []Sample, skipNaN bool) []Sample {
	if !skipNaN {
		return samples
	}
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.Value) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// --- event reductions --------------------------------------------------

func registerEventReductions(r *Registry) {
	r.Register(Metadata{
		Name: "event_count", Category: "event",
		Description: "Number of events in the range.",
		InputType:   "Event", OutputType: "i64", ParamType: "none",
	}, func(s []Sample, _ any) (float64, error) { return float64(len(s)), nil }, nil)

	r.Register(Metadata{
		Name: "first_positive_latency", Category: "event",
		Description: "First sample value that is non-negative.",
		InputType:   "RaggedScalar (offsets)", OutputType: "f64", ParamType: "none",
	}, firstPositiveLatencyFn, nil)

	r.Register(Metadata{
		Name: "last_negative_latency", Category: "event",
		Description: "Last sample value that is negative.",
		InputType:   "RaggedScalar (offsets)", OutputType: "f64", ParamType: "none",
	}, lastNegativeLatencyFn, nil)

	r.Register(Metadata{
		Name: "event_count_in_window", Category: "event",
		Description: "Number of events whose time falls in [lo, hi].",
		InputType:   "Event", OutputType: "i64", ParamType: "WindowParams",
	}, eventCountInWindowFn, parseWindowParams)

	r.Register(Metadata{
		Name: "mean_inter_event_interval", Category: "event",
		Description: "Mean of consecutive event time gaps.",
		InputType:   "Event", OutputType: "f64", ParamType: "none",
	}, meanInterEventIntervalFn, nil)

	r.Register(Metadata{
		Name: "event_time_span", Category: "event",
		Description: "Time of last event minus time of first.",
		InputType:   "Event", OutputType: "f64", ParamType: "none",
	}, eventTimeSpanFn, nil)
}

func firstPositiveLatencyFn(samples []Sample, _ any) (float64, error) {
	for _, s := range samples {
		if s.Value >= 0 {
			return s.Value, nil
		}
	}
	return math.NaN(), nil
}

func lastNegativeLatencyFn(samples []Sample, _ any) (float64, error) {
	for i := len(samples) - 1; i >= 0; i-- {
		if samples[i].Value < 0 {
			return samples[i].Value, nil
		}
	}
	return math.NaN(), nil
}

func eventCountInWindowFn(samples []Sample, params any) (float64, error) {
	p, _ := params.(WindowParams)
	count := 0
	for _, s := range samples {
		t := float64(s.Time)
		if t >= p.Lo && t <= p.Hi {
			count++
		}
	}
	return float64(count), nil
}

func meanInterEventIntervalFn(samples []Sample, _ any) (float64, error) {
	if len(samples) < 2 {
		return math.NaN(), nil
	}
	var sum float64
	for i := 1; i < len(samples); i++ {
		sum += float64(samples[i].Time - samples[i-1].Time)
	}
	return sum / float64(len(samples)-1), nil
}

func eventTimeSpanFn(samples []Sample, _ any) (float64, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	return float64(samples[len(samples)-1].Time - samples[0].Time), nil
}

// --- value reductions --------------------------------------------------

func registerValueReductions(r *Registry) {
	r.Register(Metadata{
		Name: "max_value", Category: "value",
		Description: "Maximum sample value; -Inf (the identity for max) on an empty range.",
		InputType:   "ScalarSample", OutputType: "f64", ParamType: "NumericParams",
	}, maxValueFn, parseNumericParams)

	r.Register(Metadata{
		Name: "min_value", Category: "value",
		Description: "Minimum sample value; +Inf (the identity for min) on an empty range.",
		InputType:   "ScalarSample", OutputType: "f64", ParamType: "NumericParams",
	}, minValueFn, parseNumericParams)

	r.Register(Metadata{
		Name: "mean_value", Category: "value",
		Description: "Arithmetic mean; NaN on an empty range.",
		InputType:   "ScalarSample", OutputType: "f64", ParamType: "NumericParams",
	}, meanValueFn, parseNumericParams)

	r.Register(Metadata{
		Name: "std_value", Category: "value",
		Description: "Population standard deviation; NaN on an empty range.",
		InputType:   "ScalarSample", OutputType: "f64", ParamType: "NumericParams",
	}, stdValueFn, parseNumericParams)

	r.Register(Metadata{
		Name: "time_of_max", Category: "value",
		Description: "Time of the maximal sample; NaN on an empty range.",
		InputType:   "ScalarSample", OutputType: "f64", ParamType: "NumericParams",
	}, timeOfMaxFn, parseNumericParams)

	r.Register(Metadata{
		Name: "time_of_min", Category: "value",
		Description: "Time of the minimal sample; NaN on an empty range.",
		InputType:   "ScalarSample", OutputType: "f64", ParamType: "NumericParams",
	}, timeOfMinFn, parseNumericParams)

	r.Register(Metadata{
		Name: "time_of_threshold_cross", Category: "value",
		Description: "Time of the first sample at or above threshold; NaN if none cross.",
		InputType:   "ScalarSample", OutputType: "f64", ParamType: "ThresholdParams",
	}, timeOfThresholdCrossFn, parseThresholdParams)

	r.Register(Metadata{
		Name: "sum_value", Category: "value",
		Description: "Sum of sample values; 0 on an empty range.",
		InputType:   "ScalarSample", OutputType: "f64", ParamType: "NumericParams",
	}, sumValueFn, parseNumericParams)

	r.Register(Metadata{
		Name: "value_range", Category: "value",
		Description: "Max minus min; 0 on an empty range.",
		InputType:   "ScalarSample", OutputType: "f64", ParamType: "NumericParams",
	}, valueRangeFn, parseNumericParams)

	r.Register(Metadata{
		Name: "area_under_curve", Category: "value",
		Description: "Trapezoidal integral over time; 0 on a range with fewer than 2 samples.",
		InputType:   "ScalarSample", OutputType: "f64", ParamType: "NumericParams",
	}, areaUnderCurveFn, parseNumericParams)

	r.Register(Metadata{
		Name: "count_above_threshold", Category: "value",
		Description: "Count of samples at or above threshold; 0 on an empty range.",
		InputType:   "ScalarSample", OutputType: "i64", ParamType: "ThresholdParams",
	}, countAboveThresholdFn, parseThresholdParams)

	r.Register(Metadata{
		Name: "fraction_above_threshold", Category: "value",
		Description: "Fraction of samples at or above threshold; NaN on an empty range.",
		InputType:   "ScalarSample", OutputType: "f64", ParamType: "ThresholdParams",
	}, fractionAboveThresholdFn, parseThresholdParams)
}

func maxValueFn(samples []Sample, params any) (float64, error) {
	vals := valuesOf(samples, numericOf(params).SkipNaN)
	max := math.Inf(-1)
	for _, s := range vals {
		if s.Value > max {
			max = s.Value
		}
	}
	return max, nil
}

func minValueFn(samples []Sample, params any) (float64, error) {
	vals := valuesOf(samples, numericOf(params).SkipNaN)
	min := math.Inf(1)
	for _, s := range vals {
		if s.Value < min {
			min = s.Value
		}
	}
	return min, nil
}

func meanValueFn(samples []Sample, params any) (float64, error) {
	vals := valuesOf(samples, numericOf(params).SkipNaN)
	if len(vals) == 0 {
		return math.NaN(), nil
	}
	var sum float64
	for _, s := range vals {
		sum += s.Value
	}
	return sum / float64(len(vals)), nil
}

func stdValueFn(samples []Sample, params any) (float64, error) {
	vals := valuesOf(samples, numericOf(params).SkipNaN)
	if len(vals) == 0 {
		return math.NaN(), nil
	}
	var sum float64
	for _, s := range vals {
		sum += s.Value
	}
	mean := sum / float64(len(vals))
	var variance float64
	for _, s := range vals {
		d := s.Value - mean
		variance += d * d
	}
	variance /= float64(len(vals))
	return math.Sqrt(variance), nil
}

func timeOfMaxFn(samples []Sample, params any) (float64, error) {
	vals := valuesOf(samples, numericOf(params).SkipNaN)
	if len(vals) == 0 {
		return math.NaN(), nil
	}
	best := vals[0]
	for _, s := range vals[1:] {
		if s.Value > best.Value {
			best = s
		}
	}
	return float64(best.Time), nil
}

func timeOfMinFn(samples []Sample, params any) (float64, error) {
	vals := valuesOf(samples, numericOf(params).SkipNaN)
	if len(vals) == 0 {
		return math.NaN(), nil
	}
	best := vals[0]
	for _, s := range vals[1:] {
		if s.Value < best.Value {
			best = s
		}
	}
	return float64(best.Time), nil
}

func timeOfThresholdCrossFn(samples []Sample, params any) (float64, error) {
	p, _ := params.(ThresholdParams)
	vals := valuesOf(samples, p.SkipNaN)
	for _, s := range vals {
		if s.Value >= p.Threshold {
			return float64(s.Time), nil
		}
	}
	return math.NaN(), nil
}

func sumValueFn(samples []Sample, params any) (float64, error) {
	vals := valuesOf(samples, numericOf(params).SkipNaN)
	var sum float64
	for _, s := range vals {
		sum += s.Value
	}
	return sum, nil
}

func valueRangeFn(samples []Sample, params any) (float64, error) {
	vals := valuesOf(samples, numericOf(params).SkipNaN)
	if len(vals) == 0 {
		return 0, nil
	}
	max, min := vals[0].Value, vals[0].Value
	for _, s := range vals[1:] {
		if s.Value > max {
			max = s.Value
		}
		if s.Value < min {
			min = s.Value
		}
	}
	return max - min, nil
}

func areaUnderCurveFn(samples []Sample, params any) (float64, error) {
	vals := valuesOf(samples, numericOf(params).SkipNaN)
	if len(vals) < 2 {
		return 0, nil
	}
	var area float64
	for i := 1; i < len(vals); i++ {
		dt := float64(vals[i].Time - vals[i-1].Time)
		area += dt * (vals[i].Value + vals[i-1].Value) / 2
	}
	return area, nil
}

func countAboveThresholdFn(samples []Sample, params any) (float64, error) {
	p, _ := params.(ThresholdParams)
	vals := valuesOf(samples, p.SkipNaN)
	count := 0
	for _, s := range vals {
		if s.Value >= p.Threshold {
			count++
		}
	}
	return float64(count), nil
}

func fractionAboveThresholdFn(samples []Sample, params any) (float64, error) {
	p, _ := params.(ThresholdParams)
	vals := valuesOf(samples, p.SkipNaN)
	if len(vals) == 0 {
		return math.NaN(), nil
	}
	count := 0
	for _, s := range vals {
		if s.Value >= p.Threshold {
			count++
		}
	}
	return float64(count) / float64(len(vals)), nil
}
