package entity

import "testing"

func TestRegistryAssignStable(t *testing.T) {
	r := NewRegistry()

	a := r.Assign("masks", KindMask, 10, 0)
	b := r.Assign("masks", KindMask, 10, 1)
	aAgain := r.Assign("masks", KindMask, 10, 0)

	if a == b {
		t.Fatalf("distinct local indices must get distinct ids")
	}
	if a != aAgain {
		t.Fatalf("same (dataKey, kind, time, localIndex) must return the same id, got %v and %v", a, aAgain)
	}
}

func TestRegistryAssignAcrossKeys(t *testing.T) {
	r := NewRegistry()

	a := r.Assign("masks", KindMask, 10, 0)
	b := r.Assign("areas", KindMask, 10, 0)

	if a == b {
		t.Fatalf("different data keys must not collide even with identical (kind, time, localIndex)")
	}
}
