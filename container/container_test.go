package container

import (
	"testing"

	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

func frame(n int) *timeframe.Frame {
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i)
	}
	return timeframe.NewFrame("f", times)
}

func TestScalarSeriesSetOverwrites(t *testing.T) {
	s := NewScalarSeries("prices", frame(10))
	if err := s.Set(5, 1.0, NotifyFire); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(5, 2.0, NotifyFire); err != nil {
		t.Fatalf("set: %v", err)
	}
	vals := s.AtTime(5)
	if len(vals) != 1 || vals[0] != 2.0 {
		t.Fatalf("expected single overwritten value 2.0, got %v", vals)
	}
}

func TestRaggedScalarSeriesMultipleValuesPerTime(t *testing.T) {
	r := NewRaggedScalarSeries("areas", frame(30))
	if err := r.SetAtTime(10, []float32{4.0, 2.0}, NotifyFire); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := r.SetAtTime(20, []float32{5.0}, NotifyFire); err != nil {
		t.Fatalf("set: %v", err)
	}

	got10 := r.AtTime(10)
	if len(got10) != 2 || got10[0] != 4.0 || got10[1] != 2.0 {
		t.Fatalf("AtTime(10) = %v; want [4 2]", got10)
	}
	got20 := r.AtTime(20)
	if len(got20) != 1 || got20[0] != 5.0 {
		t.Fatalf("AtTime(20) = %v; want [5]", got20)
	}
}

func TestEventSeriesDuplicateTimeIsNoOp(t *testing.T) {
	e := NewEventSeries("events", frame(200))
	if err := e.Insert(5, 1, NotifyFire); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := e.Insert(5, 2, NotifyFire); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if e.Size() != 1 {
		t.Fatalf("expected duplicate insert at same time to be a no-op, size = %d", e.Size())
	}
}

func TestIntervalSeriesRejectsOverlap(t *testing.T) {
	iv := NewIntervalSeries("trials", frame(200))
	if err := iv.Insert(0, 50, 1, NotifyFire); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := iv.Insert(25, 75, 2, NotifyFire); err == nil {
		t.Fatalf("expected overlap to be rejected")
	}
	if err := iv.Insert(51, 100, 2, NotifyFire); err != nil {
		t.Fatalf("adjacent non-overlapping interval should be accepted: %v", err)
	}
}

func TestIntervalSeriesViewOverlapping(t *testing.T) {
	iv := NewIntervalSeries("trials", frame(200))
	iv.Insert(0, 50, 1, NotifyFire)
	iv.Insert(51, 100, 2, NotifyFire) // adjacent to [0,50]; sharing 50 would overlap

	got := iv.ViewOverlapping(40, 60)
	if len(got) != 2 {
		t.Fatalf("expected both intervals to overlap [40,60], got %d", len(got))
	}
}

func TestGeometrySeriesMaskAreaFixture(t *testing.T) {
	g := NewGeometrySeries[Mask2D]("masks", frame(30))
	g.AppendEntry(10, Mask2D{Pixels: [][2]int32{{0, 0}, {0, 1}, {1, 0}, {1, 1}}}, 100, NotifyFire)
	g.AppendEntry(10, Mask2D{Pixels: [][2]int32{{5, 5}, {5, 6}}}, 101, NotifyFire)
	g.AppendEntry(20, Mask2D{Pixels: [][2]int32{{0, 0}, {0, 1}, {0, 2}, {0, 3}, {0, 4}}}, 102, NotifyFire)

	entries := g.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Geom.Area() != 4 || entries[1].Geom.Area() != 2 || entries[2].Geom.Area() != 5 {
		t.Fatalf("unexpected mask areas: %v %v %v", entries[0].Geom.Area(), entries[1].Geom.Area(), entries[2].Geom.Area())
	}
}

func TestTimeOrderInvariant(t *testing.T) {
	s := NewScalarSeries("x", frame(50))
	s.AppendAtTime(5, 1.0, 0, NotifyFire)
	s.AppendAtTime(10, 2.0, 0, NotifyFire)
	s.AppendAtTime(20, 3.0, 0, NotifyFire)

	els := s.Elements()
	for i := 1; i < len(els); i++ {
		if els[i-1].Time > els[i].Time {
			t.Fatalf("time order invariant violated at %d", i)
		}
	}
}
