package reduction

import (
	"math"
	"testing"

	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

func newTestRegistry() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

func TestMeanAndStdValueScenarioS4(t *testing.T) {
	r := newTestRegistry()
	samples := FromFloatElements(
		[]timeframe.Index{0, 1, 2, 3, 4},
		[]float64{1, 2, 3, 4, 5},
	)

	mean, err := r.Apply("mean_value", samples, NumericParams{})
	if err != nil {
		t.Fatalf("mean_value: %v", err)
	}
	if math.Abs(mean-3.0) > 1e-9 {
		t.Fatalf("mean_value = %v, want 3.0", mean)
	}

	std, err := r.Apply("std_value", samples, NumericParams{})
	if err != nil {
		t.Fatalf("std_value: %v", err)
	}
	want := math.Sqrt(2.0) // population std of [1..5]
	if math.Abs(std-want) > 1e-9 {
		t.Fatalf("std_value = %v, want %v", std, want)
	}
}

func TestFirstPositiveLatencyScenarioS5(t *testing.T) {
	r := newTestRegistry()

	trials := [][]float64{
		{5, 25},  // trial 0: offsets from start=0
		{5, 15},  // trial 1: offsets from start=50
		{20},     // trial 2: offsets from start=100
	}
	want := []float64{5, 5, 20}

	for i, offsets := range trials {
		times := make([]timeframe.Index, len(offsets))
		samples := FromFloatElements(times, offsets)
		got, err := r.Apply("first_positive_latency", samples, nil)
		if err != nil {
			t.Fatalf("trial %d: %v", i, err)
		}
		if got != want[i] {
			t.Fatalf("trial %d: first_positive_latency = %v, want %v", i, got, want[i])
		}
	}
}

func TestEmptyRangeIdentities(t *testing.T) {
	r := newTestRegistry()
	var empty []Sample

	if v, _ := r.Apply("event_count", empty, nil); v != 0 {
		t.Fatalf("event_count(empty) = %v, want 0", v)
	}
	if v, _ := r.Apply("sum_value", empty, NumericParams{}); v != 0 {
		t.Fatalf("sum_value(empty) = %v, want 0", v)
	}
	if v, _ := r.Apply("value_range", empty, NumericParams{}); v != 0 {
		t.Fatalf("value_range(empty) = %v, want 0", v)
	}
	if v, _ := r.Apply("mean_value", empty, NumericParams{}); !math.IsNaN(v) {
		t.Fatalf("mean_value(empty) = %v, want NaN", v)
	}
	if v, _ := r.Apply("std_value", empty, NumericParams{}); !math.IsNaN(v) {
		t.Fatalf("std_value(empty) = %v, want NaN", v)
	}
	if v, _ := r.Apply("max_value", empty, NumericParams{}); !math.IsInf(v, -1) {
		t.Fatalf("max_value(empty) = %v, want -Inf", v)
	}
	if v, _ := r.Apply("min_value", empty, NumericParams{}); !math.IsInf(v, 1) {
		t.Fatalf("min_value(empty) = %v, want +Inf", v)
	}
}

func TestAreaUnderCurveTrapezoid(t *testing.T) {
	r := newTestRegistry()
	samples := FromFloatElements(
		[]timeframe.Index{0, 1, 2},
		[]float64{0, 2, 0},
	)
	got, err := r.Apply("area_under_curve", samples, NumericParams{})
	if err != nil {
		t.Fatalf("area_under_curve: %v", err)
	}
	if got != 2.0 {
		t.Fatalf("area_under_curve = %v, want 2.0", got)
	}
}

func TestCountAndFractionAboveThreshold(t *testing.T) {
	r := newTestRegistry()
	samples := FromFloatElements(
		[]timeframe.Index{0, 1, 2, 3},
		[]float64{1, 6, 7, 2},
	)
	params := ThresholdParams{Threshold: 5}

	count, err := r.Apply("count_above_threshold", samples, params)
	if err != nil {
		t.Fatalf("count_above_threshold: %v", err)
	}
	if count != 2 {
		t.Fatalf("count_above_threshold = %v, want 2", count)
	}

	frac, err := r.Apply("fraction_above_threshold", samples, params)
	if err != nil {
		t.Fatalf("fraction_above_threshold: %v", err)
	}
	if frac != 0.5 {
		t.Fatalf("fraction_above_threshold = %v, want 0.5", frac)
	}
}

func TestMeanInterEventIntervalAndSpan(t *testing.T) {
	r := newTestRegistry()
	samples := FromEventTimes([]timeframe.Index{5, 25, 55, 65, 120})

	mean, err := r.Apply("mean_inter_event_interval", samples, nil)
	if err != nil {
		t.Fatalf("mean_inter_event_interval: %v", err)
	}
	want := float64((25-5)+(55-25)+(65-55)+(120-65)) / 4
	if math.Abs(mean-want) > 1e-9 {
		t.Fatalf("mean_inter_event_interval = %v, want %v", mean, want)
	}

	span, err := r.Apply("event_time_span", samples, nil)
	if err != nil {
		t.Fatalf("event_time_span: %v", err)
	}
	if span != 115 {
		t.Fatalf("event_time_span = %v, want 115", span)
	}
}

func TestEventCountInWindow(t *testing.T) {
	r := newTestRegistry()
	samples := FromEventTimes([]timeframe.Index{5, 25, 55, 65, 120})

	got, err := r.Apply("event_count_in_window", samples, WindowParams{Lo: 0, Hi: 50})
	if err != nil {
		t.Fatalf("event_count_in_window: %v", err)
	}
	if got != 2 {
		t.Fatalf("event_count_in_window([0,50]) = %v, want 2", got)
	}
}
