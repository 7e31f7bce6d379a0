package canvas

import (
	"image"
	"math"
)

// Rect is the JSON-friendly form of an image.Rectangle.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// RectOf converts r.
func RectOf(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Rectangle converts back to an image.Rectangle.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// clampBounds repairs inverted bounds and grows them to at least minSize.
func clampBounds(r image.Rectangle, minSize image.Point) image.Rectangle {
	r = r.Canon()
	if r.Dx() < minSize.X {
		r.Max.X = r.Min.X + minSize.X
	}
	if r.Dy() < minSize.Y {
		r.Max.Y = r.Min.Y + minSize.Y
	}
	return r
}

func centre(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}

func distance(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// unionBounds returns the smallest rectangle covering every node.
func unionBounds(nodes []*Node) image.Rectangle {
	var u image.Rectangle
	for i, n := range nodes {
		if i == 0 {
			u = n.Bounds()
			continue
		}
		u = u.Union(n.Bounds())
	}
	return u
}
