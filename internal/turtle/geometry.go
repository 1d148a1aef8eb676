package turtle

import "math"

// epsilon is the tolerance used when deciding whether two points coincide.
const epsilon = 1e-9

// Vec is a point or displacement in scene coordinates, y pointing up.
type Vec struct {
	X float64
	Y float64
}

// Add returns v+o.
func (v Vec) Add(o Vec) Vec {
	return Vec{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v-o.
func (v Vec) Sub(o Vec) Vec {
	return Vec{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v*k.
func (v Vec) Scale(k float64) Vec {
	return Vec{X: v.X * k, Y: v.Y * k}
}

// Len returns the Euclidean length of v.
func (v Vec) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Rotate turns v counterclockwise by angle radians about the origin.
func (v Vec) Rotate(angle float64) Vec {
	sin, cos := math.Sincos(angle)
	return Vec{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos}
}

// Near reports whether v and o are within tolerance of each other.
func (v Vec) Near(o Vec, tolerance float64) bool {
	return v.Sub(o).Len() <= tolerance
}

// unit returns the unit vector pointing along heading.
func unit(heading float64) Vec {
	sin, cos := math.Sincos(heading)
	return Vec{X: cos, Y: sin}
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func degrees(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min   Vec
	Max   Vec
	empty bool
}

// EmptyBounds returns a box that contains nothing.
func EmptyBounds() Bounds {
	return Bounds{empty: true}
}

// Empty reports whether no point has been included.
func (b Bounds) Empty() bool {
	return b.empty
}

// Include grows b to cover p.
func (b Bounds) Include(p Vec) Bounds {
	if b.empty {
		return Bounds{Min: p, Max: p}
	}
	return Bounds{
		Min: Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y)},
		Max: Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y)},
	}
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Vec {
	return b.Min.Add(b.Max).Scale(0.5)
}
