package pipeline

import (
	"math"
	"testing"

	"github.com/paulmthompson/WhiskerToolbox-sub000/container"
	"github.com/paulmthompson/WhiskerToolbox-sub000/entity"
	"github.com/paulmthompson/WhiskerToolbox-sub000/reduction"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
	"github.com/paulmthompson/WhiskerToolbox-sub000/transform"
)

func newTestFrame(n int) *timeframe.Frame {
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i)
	}
	return timeframe.NewFrame("f", times)
}

func newTransforms() *transform.Registry {
	r := transform.NewRegistry()
	transform.RegisterBuiltins(r)
	return r
}

func newReductions() *reduction.Registry {
	r := reduction.NewRegistry()
	reduction.RegisterBuiltins(r)
	return r
}

// fakeRecorder captures lineage calls for assertion, standing in for a
// *lineage.Registry without pipeline depending on that package.
type fakeRecorder struct {
	sources     []string
	oneToOne    map[string]string
	allToOne    map[string]string
	multiSource map[string][]string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		oneToOne:    make(map[string]string),
		allToOne:    make(map[string]string),
		multiSource: make(map[string][]string),
	}
}

func (f *fakeRecorder) RecordSource(outputKey string) { f.sources = append(f.sources, outputKey) }
func (f *fakeRecorder) RecordOneToOneByTime(outputKey, sourceKey string) {
	f.oneToOne[outputKey] = sourceKey
}
func (f *fakeRecorder) RecordAllToOneByTime(outputKey, sourceKey string) {
	f.allToOne[outputKey] = sourceKey
}
func (f *fakeRecorder) RecordMultiSource(outputKey string, sourceKeys []string) {
	f.multiSource[outputKey] = sourceKeys
}

func buildS1Masks(t *testing.T) *container.GeometrySeries[container.Mask2D] {
	t.Helper()
	g := container.NewGeometrySeries[container.Mask2D]("masks", newTestFrame(30))
	m4 := container.Mask2D{Pixels: [][2]int32{{0, 0}, {0, 1}, {1, 0}, {1, 1}}}
	m2 := container.Mask2D{Pixels: [][2]int32{{5, 5}, {5, 6}}}
	m5 := container.Mask2D{Pixels: [][2]int32{{0, 0}, {0, 1}, {0, 2}, {0, 3}, {0, 4}}}
	if err := g.AppendEntry(10, m4, 100, container.NotifySuppress); err != nil {
		t.Fatal(err)
	}
	if err := g.AppendEntry(10, m2, 101, container.NotifySuppress); err != nil {
		t.Fatal(err)
	}
	if err := g.AppendEntry(20, m5, 102, container.NotifySuppress); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestExecuteScenarioS1MaskArea(t *testing.T) {
	transforms := newTransforms()
	masks := buildS1Masks(t)

	p := &Pipeline{
		Name:  "s1",
		Steps: []PipelineStep{{StepID: "", Transform: "mask_area", Enabled: true}},
	}

	rec := newFakeRecorder()
	out, err := Execute(p, "masks", masks, "areas", transforms, nil, nil, rec)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	ragged, ok := out.(*container.RaggedScalarSeries)
	if !ok {
		t.Fatalf("expected *RaggedScalarSeries, got %T", out)
	}

	got := ragged.FlattenedData()
	wantByTime := map[timeframe.Index][]float32{
		10: {4.0, 2.0},
		20: {5.0},
	}
	counts := map[timeframe.Index]int{}
	for _, e := range got {
		counts[e.Time]++
	}
	for time, want := range wantByTime {
		if counts[time] != len(want) {
			t.Fatalf("time %d: got %d values, want %d", time, counts[time], len(want))
		}
	}

	if rec.oneToOne["areas"] != "masks" {
		t.Fatalf("expected OneToOneByTime lineage areas<-masks, got %+v", rec.oneToOne)
	}
}

func TestExecuteScenarioS2MaskAreaSumChain(t *testing.T) {
	transforms := newTransforms()
	masks := buildS1Masks(t)

	p := &Pipeline{
		Name: "s2",
		Steps: []PipelineStep{
			{StepID: "areas", Transform: "mask_area", Enabled: true},
			{StepID: "", Transform: "sum_reduction", Enabled: true},
		},
	}

	rec := newFakeRecorder()
	out, err := Execute(p, "masks", masks, "totals", transforms, nil, nil, rec)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	series, ok := out.(*container.ScalarSeries)
	if !ok {
		t.Fatalf("expected *ScalarSeries, got %T", out)
	}
	samples := series.Samples()
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d: %+v", len(samples), samples)
	}
	if samples[0].Time != 10 || samples[0].Val != 6.0 {
		t.Fatalf("t=10 sample = %+v, want (10, 6.0)", samples[0])
	}
	if samples[1].Time != 20 || samples[1].Val != 5.0 {
		t.Fatalf("t=20 sample = %+v, want (20, 5.0)", samples[1])
	}

	if rec.oneToOne["areas"] != "masks" {
		t.Fatalf("expected OneToOneByTime areas<-masks, got %+v", rec.oneToOne)
	}
	if rec.allToOne["totals"] != "areas" {
		t.Fatalf("expected AllToOneByTime totals<-areas, got %+v", rec.allToOne)
	}
}

func TestExecuteMultiScenarioS3LinePointDistance(t *testing.T) {
	transforms := newTransforms()
	frame := newTestFrame(10)

	lines := container.NewGeometrySeries[container.Line2D]("lines", frame)
	l1 := container.Line2D{Points: []container.Point2D{{X: 0, Y: 0}}}
	l2 := container.Line2D{Points: []container.Point2D{{X: 1, Y: 0}}}
	l3 := container.Line2D{Points: []container.Point2D{{X: 2, Y: 0}}}
	mustAppendLine(t, lines, 0, l1, 1)
	mustAppendLine(t, lines, 1, l2, 2)
	mustAppendLine(t, lines, 1, l3, 3)

	points := container.NewGeometrySeries[container.Point2D]("points", frame)
	p1 := container.Point2D{X: 3, Y: 4}
	p2 := container.Point2D{X: 0, Y: 5}
	p4 := container.Point2D{X: 5, Y: 0}
	mustAppendPoint(t, points, 0, p1, 10)
	mustAppendPoint(t, points, 0, p2, 11)
	mustAppendPoint(t, points, 1, p4, 12)

	p := &Pipeline{
		Name:  "s3",
		Steps: []PipelineStep{{Transform: "line_point_distance", Enabled: true}},
	}

	rec := newFakeRecorder()
	out, err := ExecuteMulti(p, []string{"lines", "points"}, []any{lines, points}, "distances", transforms, nil, nil, rec)
	if err != nil {
		t.Fatalf("ExecuteMulti: %v", err)
	}
	ragged, ok := out.(*container.RaggedScalarSeries)
	if !ok {
		t.Fatalf("expected *RaggedScalarSeries, got %T", out)
	}

	got := ragged.Elements()
	if len(got) != 4 {
		t.Fatalf("expected 4 zipped rows, got %d: %+v", len(got), got)
	}

	want := map[timeframe.Index][]float32{
		0: {dist(l1, p1), dist(l1, p2)},
		1: {dist(l2, p4), dist(l3, p4)},
	}
	byTime := map[timeframe.Index][]float32{}
	for _, e := range got {
		byTime[e.Time] = append(byTime[e.Time], e.Payload)
	}
	for time, wantVals := range want {
		gotVals := byTime[time]
		if len(gotVals) != len(wantVals) {
			t.Fatalf("time %d: got %d values, want %d", time, len(gotVals), len(wantVals))
		}
		for _, w := range wantVals {
			found := false
			for _, g := range gotVals {
				if math.Abs(float64(g-w)) < 1e-4 {
					found = true
				}
			}
			if !found {
				t.Fatalf("time %d: want value %v among %v", time, w, gotVals)
			}
		}
	}

	if len(rec.multiSource["distances"]) != 2 {
		t.Fatalf("expected MultiSource lineage over 2 inputs, got %+v", rec.multiSource)
	}
}

func mustAppendLine(t *testing.T, g *container.GeometrySeries[container.Line2D], time timeframe.Index, l container.Line2D, id int64) {
	t.Helper()
	if err := g.AppendEntry(time, l, entityID(id), container.NotifySuppress); err != nil {
		t.Fatal(err)
	}
}

func mustAppendPoint(t *testing.T, g *container.GeometrySeries[container.Point2D], time timeframe.Index, p container.Point2D, id int64) {
	t.Helper()
	if err := g.AppendEntry(time, p, entityID(id), container.NotifySuppress); err != nil {
		t.Fatal(err)
	}
}

func dist(l container.Line2D, p container.Point2D) float32 {
	c := l.Centroid()
	dx := float64(c.X - p.X)
	dy := float64(c.Y - p.Y)
	return float32(math.Sqrt(dx*dx + dy*dy))
}

func TestExecuteScenarioS4ZScoreWithBindings(t *testing.T) {
	transforms := newTransforms()
	reductions := newReductions()
	frame := newTestFrame(10)

	series := container.NewScalarSeries("values", frame)
	for i, v := range []float32{1, 2, 3, 4, 5} {
		if err := series.AppendAtTime(timeframe.Index(i), v, 0, container.NotifySuppress); err != nil {
			t.Fatal(err)
		}
	}

	p := &Pipeline{
		Name: "s4",
		PreReductions: []ReductionStep{
			{Reduction: "mean_value", OutputKey: "m"},
			{Reduction: "std_value", OutputKey: "s"},
		},
		Steps: []PipelineStep{
			{
				Transform:     "z_score",
				ParamBindings: map[string]string{"mean": "m", "std_dev": "s"},
				Enabled:       true,
			},
		},
	}

	out, err := Execute(p, "values", series, "zscored", transforms, reductions, nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result, ok := out.(*container.ScalarSeries)
	if !ok {
		t.Fatalf("expected *ScalarSeries, got %T", out)
	}
	samples := result.Samples()
	if len(samples) != 5 {
		t.Fatalf("expected 5 samples, got %d", len(samples))
	}

	var sum, sumSq float64
	for _, s := range samples {
		sum += float64(s.Val)
		sumSq += float64(s.Val) * float64(s.Val)
	}
	mean := sum / float64(len(samples))
	variance := sumSq/float64(len(samples)) - mean*mean
	std := math.Sqrt(variance)

	if math.Abs(mean) > 1e-5 {
		t.Fatalf("expected output mean ~0, got %v", mean)
	}
	if math.Abs(std-1.0) > 1e-5 {
		t.Fatalf("expected output std ~1, got %v", std)
	}
}

func TestExecuteEmptyPipelineIsSourceCopy(t *testing.T) {
	transforms := newTransforms()
	frame := newTestFrame(5)
	series := container.NewScalarSeries("values", frame)
	if err := series.AppendAtTime(0, 1, 42, container.NotifySuppress); err != nil {
		t.Fatal(err)
	}

	p := &Pipeline{Name: "empty"}
	rec := newFakeRecorder()
	out, err := Execute(p, "values", series, "copy", transforms, nil, nil, rec)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result, ok := out.(*container.ScalarSeries)
	if !ok {
		t.Fatalf("expected *ScalarSeries, got %T", out)
	}
	samples := result.Samples()
	if len(samples) != 1 || samples[0].Val != 1 {
		t.Fatalf("expected copy of input, got %+v", samples)
	}
	if len(rec.sources) != 1 || rec.sources[0] != "copy" {
		t.Fatalf("expected Source lineage for empty pipeline, got %+v", rec.sources)
	}
}

func entityID(n int64) entity.ID {
	return entity.ID(n)
}
