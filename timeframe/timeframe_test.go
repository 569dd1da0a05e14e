package timeframe

import "testing"

func TestFrameTimeAtIndexAt(t *testing.T) {
	f := NewFrame("master", []float64{0, 10, 20, 30, 40})

	if got, ok := f.TimeAt(2); !ok || got != 20 {
		t.Fatalf("TimeAt(2) = %v, %v; want 20, true", got, ok)
	}

	if got, ok := f.IndexAt(25); !ok || got != 2 {
		t.Fatalf("IndexAt(25) = %v, %v; want 2, true", got, ok)
	}

	if got, ok := f.IndexAt(0); !ok || got != 0 {
		t.Fatalf("IndexAt(0) = %v, %v; want 0, true", got, ok)
	}

	if _, ok := f.IndexAt(-5); ok {
		t.Fatalf("IndexAt(-5) should fail, frame starts at 0")
	}
}

func TestConvertToIdentity(t *testing.T) {
	f := NewFrame("same", []float64{0, 1, 2, 3})
	got, ok := ConvertTo(2, f, f)
	if !ok || got != 2 {
		t.Fatalf("ConvertTo same frame should be identity, got %v, %v", got, ok)
	}
}

func TestConvertToCrossFrame(t *testing.T) {
	src := NewFrame("src", []float64{0, 100, 200, 300})
	dst := NewFrame("dst", []float64{0, 50, 100, 150, 200, 250, 300})

	got, ok := ConvertTo(1, src, dst) // src index 1 -> time 100
	if !ok || got != 2 {              // dst time 100 -> index 2
		t.Fatalf("ConvertTo cross frame = %v, %v; want 2, true", got, ok)
	}
}

func TestIntervalOverlaps(t *testing.T) {
	a := Interval{Start: 0, End: 10}
	b := Interval{Start: 10, End: 20}
	c := Interval{Start: 11, End: 20}

	if !a.Overlaps(b) {
		t.Fatalf("a and b share index 10, should overlap")
	}
	if a.Overlaps(c) {
		t.Fatalf("a ends at 10, c starts at 11, should not overlap")
	}
}
