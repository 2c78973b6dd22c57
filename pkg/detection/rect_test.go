package detection

import (
	"math"
	"testing"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func TestRect_Area(t *testing.T) {
	cases := []struct {
		name string
		rect Rect
		want float64
	}{
		{"unit", Rect{0, 0, 1, 1}, 1.0},
		{"half", Rect{0.2, 0.3, 0.5, 0.4}, 0.2},
		{"zero width", Rect{0, 0, 0, 1}, 0},
		{"negative extent", Rect{0, 0, -1, 1}, 0},
	}

	for _, tc := range cases {
		if got := tc.rect.Area(); !floatEquals(got, tc.want) {
			t.Errorf("%s: Area got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRect_IOU_Identical(t *testing.T) {
	r := Rect{0.1, 0.1, 0.4, 0.3}
	if got := r.IOU(r); !floatEquals(got, 1.0) {
		t.Errorf("IOU of identical rects: got %v, want 1.0", got)
	}
}

func TestRect_IOU_Disjoint(t *testing.T) {
	a := Rect{0, 0, 0.2, 0.2}
	b := Rect{0.5, 0.5, 0.2, 0.2}
	if got := a.IOU(b); got != 0 {
		t.Errorf("IOU of disjoint rects: got %v, want 0", got)
	}
}

func TestRect_IOU_HalfOverlap(t *testing.T) {
	// Two unit squares overlapping by half: inter=0.5, union=1.5
	a := Rect{0, 0, 1, 1}
	b := Rect{0.5, 0, 1, 1}
	if got := a.IOU(b); !floatEquals(got, 0.5/1.5) {
		t.Errorf("IOU: got %v, want %v", got, 0.5/1.5)
	}
}

func TestRect_IOU_ZeroArea(t *testing.T) {
	// Malformed observations degrade to no-match, never a fault
	zero := Rect{0.5, 0.5, 0, 0}
	full := Rect{0, 0, 1, 1}
	if got := zero.IOU(full); got != 0 {
		t.Errorf("IOU with zero-area rect: got %v, want 0", got)
	}
	if got := full.IOU(zero); got != 0 {
		t.Errorf("IOU against zero-area rect: got %v, want 0", got)
	}

	neg := Rect{0, 0, -0.5, 0.5}
	if got := neg.IOU(full); got != 0 {
		t.Errorf("IOU with negative-extent rect: got %v, want 0", got)
	}
}

func TestRect_IOU_Symmetric(t *testing.T) {
	a := Rect{0.1, 0.2, 0.3, 0.4}
	b := Rect{0.2, 0.3, 0.3, 0.3}
	if !floatEquals(a.IOU(b), b.IOU(a)) {
		t.Errorf("IOU not symmetric: %v vs %v", a.IOU(b), b.IOU(a))
	}
}

func TestMock_ReplaysFrames(t *testing.T) {
	frame1 := []Detection{{Bounds: Rect{0, 0, 0.1, 0.1}, Label: 0, Confidence: 0.9}}
	m := NewMock(frame1, nil)

	got, err := m.Detect(nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(got) != 1 || got[0].Label != 0 {
		t.Errorf("frame 1: got %v", got)
	}

	got, _ = m.Detect(nil)
	if got != nil {
		t.Errorf("frame 2 should be empty, got %v", got)
	}

	// Exhausted
	got, _ = m.Detect(nil)
	if got != nil {
		t.Errorf("exhausted mock should return nil, got %v", got)
	}
}
