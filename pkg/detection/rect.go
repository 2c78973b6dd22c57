package detection

// Rect is an axis-aligned rectangle in frame coordinates.
// Coordinates may be normalized (0-1) or pixels; only ratios matter here.
type Rect struct {
	X, Y float64 // Top-left corner
	W, H float64 // Width and height
}

// Area returns the rectangle area. Negative extents count as zero.
func (r Rect) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// IOU returns the intersection-over-union overlap ratio with other.
// Malformed or zero-area rectangles yield 0 rather than an error; a
// degenerate observation simply never matches.
func (r Rect) IOU(other Rect) float64 {
	x1 := max(r.X, other.X)
	y1 := max(r.Y, other.Y)
	x2 := min(r.X+r.W, other.X+other.W)
	y2 := min(r.Y+r.H, other.Y+other.H)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	inter := (x2 - x1) * (y2 - y1)
	union := r.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
