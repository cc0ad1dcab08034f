package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is an axis-aligned bounding box. The zero Box is a point at the origin.
type Box struct {
	Min Vec
	Max Vec
}

// NewBox returns the box spanning a and b in any order.
func NewBox(a, b Vec) Box {
	return Box{Min: minVec(a, b), Max: maxVec(a, b)}
}

// CenteredBox returns a box of the given size around center.
func CenteredBox(center, size Vec) Box {
	half := r3.Scale(0.5, size)
	return NewBox(r3.Sub(center, half), r3.Add(center, half))
}

// Size returns the edge lengths.
func (b Box) Size() Vec {
	return r3.Sub(b.Max, b.Min)
}

// Center returns the midpoint.
func (b Box) Center() Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// IsZero reports whether the box has zero size on every axis.
func (b Box) IsZero() bool {
	s := b.Size()
	return s.X == 0 && s.Y == 0 && s.Z == 0
}

// Volume returns the enclosed volume.
func (b Box) Volume() float64 {
	s := b.Size()
	return s.X * s.Y * s.Z
}

// Union returns the smallest box containing b and o.
func (b Box) Union(o Box) Box {
	return Box{Min: minVec(b.Min, o.Min), Max: maxVec(b.Max, o.Max)}
}

// Extend returns b grown to contain p.
func (b Box) Extend(p Vec) Box {
	return Box{Min: minVec(b.Min, p), Max: maxVec(b.Max, p)}
}

// Expand grows the box's size by amount on every axis, half on each face.
// A negative amount shrinks it; an axis never shrinks past zero size.
func (b Box) Expand(amount float64) Box {
	c := b.Center()
	s := b.Size()
	s = Vec{
		X: math.Max(0, s.X+amount),
		Y: math.Max(0, s.Y+amount),
		Z: math.Max(0, s.Z+amount),
	}
	return CenteredBox(c, s)
}

// Intersects reports whether b and o overlap or touch.
func (b Box) Intersects(o Box) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Intersection returns the overlap of b and o and whether it is non-empty.
func (b Box) Intersection(o Box) (Box, bool) {
	if !b.Intersects(o) {
		return Box{}, false
	}
	return Box{Min: maxVec(b.Min, o.Min), Max: minVec(b.Max, o.Max)}, true
}

// Corners returns the eight corner points.
func (b Box) Corners() [8]Vec {
	var out [8]Vec
	for i := 0; i < 8; i++ {
		c := b.Min
		if i&1 != 0 {
			c.X = b.Max.X
		}
		if i&2 != 0 {
			c.Y = b.Max.Y
		}
		if i&4 != 0 {
			c.Z = b.Max.Z
		}
		out[i] = c
	}
	return out
}

// Transform returns the axis-aligned box enclosing b after applying p.
func (b Box) Transform(p Pose) Box {
	corners := b.Corners()
	out := PointBox(p.Apply(corners[0]))
	for _, c := range corners[1:] {
		out = out.Extend(p.Apply(c))
	}
	return out
}

// PointBox returns the zero-size box at p.
func PointBox(p Vec) Box {
	return Box{Min: p, Max: p}
}
