package vision

// Rect is an axis-aligned bounding box in source-image pixel coordinates.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func (r Rect) Area() int { return r.W * r.H }

// Clip bounds the rectangle to a W×H image. The result may have
// non-positive width or height when the box lies outside the image.
func (r Rect) Clip(w, h int) Rect {
	x1, y1 := r.X, r.Y
	if x1 < 0 {
		x1 = 0
	}
	if y1 < 0 {
		y1 = 0
	}
	x2, y2 := r.X+r.W, r.Y+r.H
	if x2 > w {
		x2 = w
	}
	if y2 > h {
		y2 = h
	}
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// IoU is the intersection-over-union of two boxes; 0 when the union is empty.
func IoU(a, b Rect) float64 {
	ix1 := max(a.X, b.X)
	iy1 := max(a.Y, b.Y)
	ix2 := min(a.X+a.W, b.X+b.W)
	iy2 := min(a.Y+a.H, b.Y+b.H)

	iw := max(0, ix2-ix1)
	ih := max(0, iy2-iy1)
	inter := iw * ih

	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}
