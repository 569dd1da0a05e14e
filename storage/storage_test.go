package storage

import (
	"errors"
	"testing"

	"github.com/paulmthompson/WhiskerToolbox-sub000/apperrors"
	"github.com/paulmthompson/WhiskerToolbox-sub000/entity"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

func frame(n int) *timeframe.Frame {
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i)
	}
	return timeframe.NewFrame("f", times)
}

func TestOwningAppendAndTimeRange(t *testing.T) {
	o := NewOwning[float32](frame(50))

	if err := o.Append(10, 1.5, 0); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := o.Append(10, 2.5, 0); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := o.Append(20, 3.5, 0); err != nil {
		t.Fatalf("append: %v", err)
	}

	start, end := o.TimeRange(10)
	if start != 0 || end != 2 {
		t.Fatalf("TimeRange(10) = %d,%d; want 0,2", start, end)
	}

	if o.Cache().Valid != true {
		t.Fatalf("cache should be valid on Owning storage after append")
	}
}

func TestOwningAppendOutOfRange(t *testing.T) {
	o := NewOwning[float32](frame(5))
	err := o.Append(100, 1.0, 0)
	if !errors.Is(err, apperrors.ErrTimeOutOfRange) {
		t.Fatalf("expected ErrTimeOutOfRange, got %v", err)
	}
}

func TestOwningDuplicateEntityID(t *testing.T) {
	o := NewOwning[float32](frame(5))
	if err := o.Append(0, 1.0, 7); err != nil {
		t.Fatalf("append: %v", err)
	}
	err := o.Append(1, 2.0, 7)
	if !errors.Is(err, apperrors.ErrDuplicateEntityID) {
		t.Fatalf("expected ErrDuplicateEntityID, got %v", err)
	}
}

func TestOwningRemoveAtTimeClearsIndex(t *testing.T) {
	o := NewOwning[float32](frame(5))
	o.Append(0, 1.0, 0)
	o.Append(1, 2.0, 0)

	removed := o.RemoveAtTime(0)
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	start, end := o.TimeRange(0)
	if start != 0 && end != 0 {
		t.Fatalf("time 0 should no longer be indexed, got %d,%d", start, end)
	}
	if o.Size() != 1 {
		t.Fatalf("expected 1 remaining element, got %d", o.Size())
	}
}

func TestOwningRemoveByEntityID(t *testing.T) {
	o := NewOwning[float32](frame(5))
	o.Append(0, 1.0, 1)
	o.Append(1, 2.0, 2)

	if ok := o.RemoveByEntityID(1); !ok {
		t.Fatalf("expected removal to succeed")
	}
	if _, ok := o.FindByEntityID(1); ok {
		t.Fatalf("id 1 should no longer be found")
	}
	if idx, ok := o.FindByEntityID(2); !ok || o.GetPayload(idx) != 2.0 {
		t.Fatalf("id 2 should remain at a valid index")
	}
}

func TestViewEquivalence(t *testing.T) {
	o := NewOwning[float32](frame(5))
	o.Append(0, 1.0, 0)
	o.Append(1, 2.0, 0)
	o.Append(2, 3.0, 0)

	v := NewView[float32](o)
	v.FilterByTimeRange(1, 2)

	if v.Size() != 2 {
		t.Fatalf("expected 2 elements in filtered view, got %d", v.Size())
	}
	for i := 0; i < v.Size(); i++ {
		// invariant 3: V.payload(i) == O.payload(V.indices[i])
		if v.GetPayload(i) != o.GetPayload(v.indices[i]) {
			t.Fatalf("view/owning payload mismatch at %d", i)
		}
	}
}

func TestViewMutationFails(t *testing.T) {
	o := NewOwning[float32](frame(5))
	v := NewView[float32](o)

	err := v.Append(0, 1.0, 0)
	if !errors.Is(err, apperrors.ErrReadOnlyStorage) {
		t.Fatalf("expected ErrReadOnlyStorage, got %v", err)
	}
}

func TestViewContiguousCacheValid(t *testing.T) {
	o := NewOwning[float32](frame(5))
	o.Append(0, 1.0, 0)
	o.Append(1, 2.0, 0)
	o.Append(2, 3.0, 0)

	v := NewView[float32](o) // full, contiguous range
	if !v.Cache().Valid {
		t.Fatalf("contiguous view over valid owning cache should be valid")
	}

	v.FilterByEntityIDs(map[entity.ID]struct{}{}) // empty filter -> no elements, so no valid cache
	if v.Cache().Valid {
		t.Fatalf("empty filtered view should not report a valid cache")
	}
}

func TestLazyMaterializeRoundTrip(t *testing.T) {
	src := []struct {
		t timeframe.Index
		p float32
	}{{0, 1.0}, {1, 2.0}, {2, 3.0}}

	lz := NewLazy[float32](len(src), func(i int) LazyElement[float32] {
		return LazyElement[float32]{Time: src[i].t, Payload: src[i].p}
	})

	owned, err := lz.Materialize(frame(5))
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if owned.Size() != len(src) {
		t.Fatalf("expected %d elements, got %d", len(src), owned.Size())
	}
	for i, s := range src {
		if owned.GetTime(i) != s.t || owned.GetPayload(i) != s.p {
			t.Fatalf("element %d mismatch after materialize", i)
		}
	}
}
