package perception

import "math"

// BoundingBox is a normalized [0,1] region of the scanned image.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Centroid returns the center point of the box.
func (b BoundingBox) Centroid() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Area returns the normalized area of the box.
func (b BoundingBox) Area() float64 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// IoU computes intersection-over-union with another box.
func (b BoundingBox) IoU(other BoundingBox) float64 {
	left := math.Max(b.X, other.X)
	top := math.Max(b.Y, other.Y)
	right := math.Min(b.X+b.Width, other.X+other.Width)
	bottom := math.Min(b.Y+b.Height, other.Y+other.Height)
	if right <= left || bottom <= top {
		return 0
	}
	intersection := (right - left) * (bottom - top)
	union := b.Area() + other.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// CentroidDistance returns the euclidean distance between two box centers.
func (b BoundingBox) CentroidDistance(other BoundingBox) float64 {
	x1, y1 := b.Centroid()
	x2, y2 := other.Centroid()
	return math.Hypot(x2-x1, y2-y1)
}

// Detection is one bottle region reported by the perception service.
// Immutable for the lifetime of a scan request.
type Detection struct {
	ID         string      `json:"id"`
	Box        BoundingBox `json:"bbox"`
	Confidence float64     `json:"confidence"`
}

// Fragment is one recognized text region reported by the perception service.
type Fragment struct {
	Text string      `json:"text"`
	Box  BoundingBox `json:"bbox"`
}

// Observation is the complete perception output for a single still image.
type Observation struct {
	ImageID    string      `json:"image_id"`
	Detections []Detection `json:"bottles"`
	Fragments  []Fragment  `json:"text_fragments"`
}
