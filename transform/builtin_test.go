package transform

import (
	"testing"

	"github.com/paulmthompson/WhiskerToolbox-sub000/container"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

func newTestFrame(n int) *timeframe.Frame {
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i)
	}
	return timeframe.NewFrame("f", times)
}

func newTestRegistry() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

func TestMaskAreaScenarioS1(t *testing.T) {
	r := newTestRegistry()

	masks := []container.Mask2D{
		{Pixels: [][2]int32{{0, 0}, {0, 1}, {1, 0}, {1, 1}}}, // 4 pixels
		{Pixels: [][2]int32{{5, 5}, {5, 6}}},                 // 2 pixels
		{Pixels: [][2]int32{{0, 0}, {0, 1}, {0, 2}, {0, 3}, {0, 4}}}, // 5 pixels
	}
	want := []float32{4.0, 2.0, 5.0}

	for i, m := range masks {
		got, err := r.ApplyElement("mask_area", m, nil)
		if err != nil {
			t.Fatalf("mask_area[%d]: %v", i, err)
		}
		if got.(float32) != want[i] {
			t.Fatalf("mask_area[%d] = %v, want %v", i, got, want[i])
		}
	}
}

func TestSumReductionScenarioS2(t *testing.T) {
	r := newTestRegistry()

	got, err := r.ApplyTimeGrouped("sum_reduction", []any{float32(4.0), float32(2.0)}, nil)
	if err != nil {
		t.Fatalf("sum_reduction: %v", err)
	}
	if len(got) != 1 || got[0].(float32) != 6.0 {
		t.Fatalf("sum_reduction(t=10) = %v, want [6.0]", got)
	}

	got2, err := r.ApplyTimeGrouped("sum_reduction", []any{float32(5.0)}, nil)
	if err != nil {
		t.Fatalf("sum_reduction: %v", err)
	}
	if len(got2) != 1 || got2[0].(float32) != 5.0 {
		t.Fatalf("sum_reduction(t=20) = %v, want [5.0]", got2)
	}
}

func TestZScoreBasic(t *testing.T) {
	r := newTestRegistry()
	params := ZScoreParams{Mean: 3.0, StdDev: 1.5811388}

	var outputs []float32
	for _, v := range []float32{1, 2, 3, 4, 5} {
		got, err := r.ApplyElement("z_score", v, params)
		if err != nil {
			t.Fatalf("z_score: %v", err)
		}
		outputs = append(outputs, got.(float32))
	}

	var sum float64
	for _, o := range outputs {
		sum += float64(o)
	}
	mean := sum / float64(len(outputs))
	if mean < -1e-3 || mean > 1e-3 {
		t.Fatalf("expected mean ~0, got %v", mean)
	}
}

func TestZScoreClampsOutliers(t *testing.T) {
	r := newTestRegistry()
	params := ZScoreParams{Mean: 0, StdDev: 1, ClampOutliers: true, OutlierThreshold: 2.5}

	got, err := r.ApplyElement("z_score", float32(100), params)
	if err != nil {
		t.Fatalf("z_score: %v", err)
	}
	if got.(float32) != 2.5 {
		t.Fatalf("expected clamp to 2.5, got %v", got)
	}
}

func TestLinePointDistanceScenarioS3(t *testing.T) {
	r := newTestRegistry()

	l1 := container.Line2D{Points: []container.Point2D{{X: 0, Y: 0}}}
	p1 := container.Point2D{X: 3, Y: 4}

	got, err := r.ApplyElement("line_point_distance", []any{l1, p1}, nil)
	if err != nil {
		t.Fatalf("line_point_distance: %v", err)
	}
	if got.(float32) != 5.0 {
		t.Fatalf("expected distance 5.0 (3-4-5 triangle), got %v", got)
	}
}

func TestNormalizeEventTime(t *testing.T) {
	r := newTestRegistry()
	params := NormalizeEventTimeParams{ReferenceTime: 50}

	got, err := r.ApplyElement("normalize_event_time", timeframe.Index(65), params)
	if err != nil {
		t.Fatalf("normalize_event_time: %v", err)
	}
	if got.(float32) != 15.0 {
		t.Fatalf("expected offset 15, got %v", got)
	}
}

func TestAnalogIntervalThresholdBasic(t *testing.T) {
	r := newTestRegistry()
	series := container.NewScalarSeries("analog", newTestFrame(20))
	values := []float32{0, 0, 6, 7, 8, 0, 0, 6, 0}
	for i, v := range values {
		series.AppendAtTime(timeframe.Index(i), v, 0, container.NotifyFire)
	}

	params := AnalogIntervalThresholdParams{Threshold: 5}
	got, err := r.ApplyContainer("analog_interval_threshold", series, params, nil)
	if err != nil {
		t.Fatalf("analog_interval_threshold: %v", err)
	}
	out := got.(*container.IntervalSeries)
	intervals := out.Intervals()
	if len(intervals) != 2 {
		t.Fatalf("expected 2 runs above threshold, got %d: %+v", len(intervals), intervals)
	}
	if intervals[0].Span.Start != 2 || intervals[0].Span.End != 4 {
		t.Fatalf("first run = %+v, want [2,4]", intervals[0].Span)
	}
	if intervals[1].Span.Start != 7 || intervals[1].Span.End != 7 {
		t.Fatalf("second run = %+v, want [7,7]", intervals[1].Span)
	}
}

func TestAnalogIntervalThresholdGapTreatedAsZero(t *testing.T) {
	r := newTestRegistry()
	series := container.NewScalarSeries("analog", newTestFrame(20))
	// times 0,1,2 present with values above threshold, time 3 MISSING
	// (a gap), time 4 present and still above threshold.
	series.AppendAtTime(0, 6, 0, container.NotifyFire)
	series.AppendAtTime(1, 7, 0, container.NotifyFire)
	series.AppendAtTime(2, 8, 0, container.NotifyFire)
	series.AppendAtTime(4, 9, 0, container.NotifyFire)

	params := AnalogIntervalThresholdParams{Threshold: 5, TreatGapsAsZero: true}
	got, err := r.ApplyContainer("analog_interval_threshold", series, params, nil)
	if err != nil {
		t.Fatalf("analog_interval_threshold: %v", err)
	}
	out := got.(*container.IntervalSeries)
	intervals := out.Intervals()

	// threshold is positive, so the synthesized zero at the gap falls
	// below it: the run closes at the last seen time (2) and a new run
	// opens at 4.
	if len(intervals) != 2 {
		t.Fatalf("expected gap to split the run into 2 intervals, got %d: %+v", len(intervals), intervals)
	}
	if intervals[0].Span.End != 2 {
		t.Fatalf("first run should close at 2 (last sample before the gap), got %+v", intervals[0].Span)
	}
	if intervals[1].Span.Start != 4 {
		t.Fatalf("second run should (re)open at 4, got %+v", intervals[1].Span)
	}
}
