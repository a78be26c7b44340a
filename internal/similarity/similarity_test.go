package similarity

import "testing"

func TestReflexive(t *testing.T) {
	fp := []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	if got := Percentage(fp, fp, 10); got != 100 {
		t.Fatalf("similarity with self = %v, want 100", got)
	}
}

func TestCommutative(t *testing.T) {
	a := []uint32{1, 2, 3, 0xFFFFFFFF, 5, 6, 7, 8, 9, 10, 11}
	b := []uint32{1, 2, 3, 0, 5, 6, 7, 8, 9, 10, 12}
	if Percentage(a, b, 10) != Percentage(b, a, 10) {
		t.Fatalf("similarity is not commutative")
	}
}

func TestRange(t *testing.T) {
	a := []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	b := []uint32{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}
	got := Percentage(a, b, 10)
	if got < 0 || got > 100 {
		t.Fatalf("similarity out of range: %v", got)
	}
}

func TestEmptyVectorIsZero(t *testing.T) {
	if got := Percentage(nil, []uint32{1, 2, 3}, 0); got != 0 {
		t.Fatalf("empty vector similarity = %v, want 0", got)
	}
}

func TestBelowMinimumElementsIsZero(t *testing.T) {
	a := []uint32{1, 2, 3}
	b := []uint32{1, 2, 3}
	if got := Percentage(a, b, 10); got != 0 {
		t.Fatalf("short fingerprint similarity = %v, want 0", got)
	}
}

func TestTruncatesToShorterLength(t *testing.T) {
	a := []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 999, 999}
	b := []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := Percentage(a, b, 10); got != 100 {
		t.Fatalf("expected trailing mismatch beyond shorter length to be ignored, got %v", got)
	}
}

func TestFullMismatchIsZero(t *testing.T) {
	a := []uint32{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	b := []uint32{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF}
	if got := Percentage(a, b, 10); got != 0 {
		t.Fatalf("full mismatch similarity = %v, want 0", got)
	}
}
