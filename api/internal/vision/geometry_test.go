package vision

import (
	"math"
	"testing"
)

func TestIoU(t *testing.T) {
	t.Parallel()

	a := Rect{X: 0, Y: 0, W: 100, H: 100}
	b := Rect{X: 200, Y: 200, W: 50, H: 50}
	c := Rect{X: 50, Y: 0, W: 100, H: 100}

	tests := []struct {
		name string
		a, b Rect
		want float64
	}{
		{name: "identical", a: a, b: a, want: 1.0},
		{name: "disjoint", a: a, b: b, want: 0.0},
		{name: "touching edges", a: a, b: Rect{X: 100, Y: 0, W: 100, H: 100}, want: 0.0},
		{name: "half overlap", a: a, b: c, want: 5000.0 / 15000.0},
		{name: "contained", a: a, b: Rect{X: 0, Y: 0, W: 50, H: 50}, want: 0.25},
		{name: "degenerate", a: Rect{}, b: Rect{}, want: 0.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := IoU(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("IoU(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
			if sym := IoU(tc.b, tc.a); sym != got {
				t.Errorf("IoU not symmetric: %v vs %v", got, sym)
			}
		})
	}
}

func TestRectClip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Rect
		want Rect
	}{
		{name: "inside", in: Rect{X: 10, Y: 10, W: 20, H: 20}, want: Rect{X: 10, Y: 10, W: 20, H: 20}},
		{name: "negative origin", in: Rect{X: -10, Y: -10, W: 30, H: 30}, want: Rect{X: 0, Y: 0, W: 20, H: 20}},
		{name: "past edge", in: Rect{X: 90, Y: 90, W: 30, H: 30}, want: Rect{X: 90, Y: 90, W: 10, H: 10}},
		{name: "fully outside", in: Rect{X: 200, Y: 200, W: 30, H: 30}, want: Rect{X: 100, Y: 100, W: -100, H: -100}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.in.Clip(100, 100); got != tc.want {
				t.Errorf("Clip(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
