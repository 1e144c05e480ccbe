package cv

import "image"

// Region is a rectangular screen area in capture coordinates.
type Region struct {
	X1 int `yaml:"x1" json:"x1"`
	Y1 int `yaml:"y1" json:"y1"`
	X2 int `yaml:"x2" json:"x2"`
	Y2 int `yaml:"y2" json:"y2"`
}

// NewRegion creates a new region.
func NewRegion(x1, y1, x2, y2 int) Region {
	return Region{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width returns the width of the region.
func (r Region) Width() int {
	return r.X2 - r.X1
}

// Height returns the height of the region.
func (r Region) Height() int {
	return r.Y2 - r.Y1
}

// Empty reports whether the region has zero or negative area.
func (r Region) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Contains checks if a point lies within the region.
func (r Region) Contains(p image.Point) bool {
	return p.X >= r.X1 && p.X <= r.X2 && p.Y >= r.Y1 && p.Y <= r.Y2
}

// ToImageRectangle converts the region to *image.Rectangle for matching.
func (r Region) ToImageRectangle() *image.Rectangle {
	return &image.Rectangle{
		Min: image.Point{X: r.X1, Y: r.Y1},
		Max: image.Point{X: r.X2, Y: r.Y2},
	}
}
