package perception

import (
	"math"
	"testing"
)

func TestIoU(t *testing.T) {
	a := BoundingBox{X: 0, Y: 0, Width: 0.5, Height: 0.5}

	if got := a.IoU(a); got != 1 {
		t.Errorf("self IoU = %v, want 1", got)
	}

	disjoint := BoundingBox{X: 0.6, Y: 0.6, Width: 0.2, Height: 0.2}
	if got := a.IoU(disjoint); got != 0 {
		t.Errorf("disjoint IoU = %v, want 0", got)
	}

	// Half-overlapping box of equal size: intersection 0.125, union 0.375.
	half := BoundingBox{X: 0.25, Y: 0, Width: 0.5, Height: 0.5}
	want := 1.0 / 3.0
	if got := a.IoU(half); math.Abs(got-want) > 1e-9 {
		t.Errorf("half-overlap IoU = %v, want %v", got, want)
	}
}

func TestCentroid(t *testing.T) {
	box := BoundingBox{X: 0.4, Y: 0.4, Width: 0.2, Height: 0.3}
	x, y := box.Centroid()
	if math.Abs(x-0.5) > 1e-9 || math.Abs(y-0.55) > 1e-9 {
		t.Errorf("Centroid = (%v, %v), want (0.5, 0.55)", x, y)
	}
}

func TestCentroidDistance(t *testing.T) {
	a := BoundingBox{X: 0, Y: 0, Width: 0.2, Height: 0.2}
	b := BoundingBox{X: 0.3, Y: 0.4, Width: 0.2, Height: 0.2}
	if got := a.CentroidDistance(b); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("CentroidDistance = %v, want 0.5", got)
	}
}
