// Package analytic implements the kernel.Kernel interface with compounds of
// oriented boxes. Penetration is exact (separating axis test), which makes it
// the default backend for generation and for tests.
package analytic

import (
	"fmt"
	"math"

	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

// separationEpsilon is the overlap along an axis treated as mere contact.
const separationEpsilon = 1e-6

// part is one oriented box.
type part struct {
	center geom.Vec
	rot    r3.Rotation
	half   geom.Vec
}

func (p part) axes() [3]geom.Vec {
	return [3]geom.Vec{
		geom.Rotate(p.rot, geom.Right),
		geom.Rotate(p.rot, geom.Up),
		geom.Rotate(p.rot, geom.Forward),
	}
}

func (p part) transform(pose geom.Pose) part {
	return part{
		center: pose.Apply(p.center),
		rot:    geom.Compose(pose.Rotation, p.rot),
		half:   p.half,
	}
}

func (p part) bounds() geom.Box {
	local := geom.NewBox(r3.Scale(-1, p.half), p.half)
	return local.Transform(geom.Pose{Position: p.center, Rotation: p.rot})
}

func (p part) valid() bool {
	return geom.IsFinite(p.center) && geom.IsFinite(p.half) &&
		p.half.X >= 0 && p.half.Y >= 0 && p.half.Z >= 0
}

// solid is a union of oriented boxes.
type solid struct {
	parts []part
}

// BoundingBox returns the axis-aligned bounding box.
func (s *solid) BoundingBox() (min, max [3]float64) {
	if len(s.parts) == 0 {
		return min, max
	}
	b := s.parts[0].bounds()
	for _, p := range s.parts[1:] {
		b = b.Union(p.bounds())
	}
	return [3]float64{b.Min.X, b.Min.Y, b.Min.Z}, [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
}

// Kernel implements kernel.Kernel with oriented boxes.
type Kernel struct{}

// New returns a new analytic Kernel.
func New() *Kernel {
	return &Kernel{}
}

func unwrap(s kernel.Solid) *solid {
	v, ok := s.(*solid)
	if !ok {
		panic(fmt.Sprintf("analytic: foreign solid %T", s))
	}
	return v
}

func (k *Kernel) mapParts(s kernel.Solid, pose geom.Pose) kernel.Solid {
	src := unwrap(s)
	out := &solid{parts: make([]part, len(src.parts))}
	for i, p := range src.parts {
		out.parts[i] = p.transform(pose)
	}
	return out
}

// Box creates a box with the given dimensions centered on the origin.
func (k *Kernel) Box(x, y, z float64) kernel.Solid {
	return &solid{parts: []part{{
		rot:  geom.IdentityRotation(),
		half: geom.V(x/2, y/2, z/2),
	}}}
}

// Cylinder is approximated by its bounding box; segments is ignored.
func (k *Kernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	return k.Box(2*radius, 2*radius, height)
}

// Union returns the union of two solids.
func (k *Kernel) Union(a, b kernel.Solid) kernel.Solid {
	pa, pb := unwrap(a).parts, unwrap(b).parts
	parts := make([]part, 0, len(pa)+len(pb))
	parts = append(parts, pa...)
	parts = append(parts, pb...)
	return &solid{parts: parts}
}

// Translate moves a solid by (x, y, z).
func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return k.mapParts(s, geom.Pose{Position: geom.V(x, y, z), Rotation: geom.IdentityRotation()})
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes,
// applied in that order.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	rad := math.Pi / 180
	rot := geom.Compose(r3.NewRotation(z*rad, geom.Forward),
		geom.Compose(r3.NewRotation(y*rad, geom.Up), r3.NewRotation(x*rad, geom.Right)))
	return k.mapParts(s, geom.Pose{Rotation: rot})
}

// Place applies a rigid pose to a solid.
func (k *Kernel) Place(s kernel.Solid, p geom.Pose) kernel.Solid {
	return k.mapParts(s, p)
}

// Penetration returns the deepest overlap between any pair of parts, measured
// along that pair's axis of least overlap.
func (k *Kernel) Penetration(a, b kernel.Solid) (float64, bool) {
	sa, sb := unwrap(a), unwrap(b)
	deepest := 0.0
	for _, pa := range sa.parts {
		if !pa.valid() {
			return 0, false
		}
		for _, pb := range sb.parts {
			if !pb.valid() {
				return 0, false
			}
			if d := overlap(pa, pb); d > deepest {
				deepest = d
			}
		}
	}
	return deepest, true
}

// overlap runs the separating axis test on two oriented boxes and returns the
// smallest overlap found, or zero if some axis separates them.
func overlap(a, b part) float64 {
	aa, ba := a.axes(), b.axes()
	axes := make([]geom.Vec, 0, 15)
	axes = append(axes, aa[:]...)
	axes = append(axes, ba[:]...)
	for _, u := range aa {
		for _, v := range ba {
			c := r3.Cross(u, v)
			if r3.Norm(c) < 1e-9 {
				continue
			}
			axes = append(axes, r3.Unit(c))
		}
	}

	ha := [3]float64{a.half.X, a.half.Y, a.half.Z}
	hb := [3]float64{b.half.X, b.half.Y, b.half.Z}
	delta := r3.Sub(b.center, a.center)

	least := math.Inf(1)
	for _, l := range axes {
		var ra, rb float64
		for i := 0; i < 3; i++ {
			ra += ha[i] * math.Abs(r3.Dot(aa[i], l))
			rb += hb[i] * math.Abs(r3.Dot(ba[i], l))
		}
		o := ra + rb - math.Abs(r3.Dot(delta, l))
		if o <= separationEpsilon {
			return 0
		}
		if o < least {
			least = o
		}
	}
	return least
}

// ToMesh emits twelve triangles per box part.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	src := unwrap(s)
	mesh := &kernel.Mesh{}
	for _, p := range src.parts {
		if !p.valid() {
			return nil, fmt.Errorf("analytic: invalid box extents %v", p.half)
		}
		mesh.Append(boxMesh(p))
	}
	return mesh, nil
}

// faces lists each box face as its outward normal and four corner
// signs, wound counter-clockwise seen from outside.
var faces = [6]struct {
	normal  geom.Vec
	corners [4]geom.Vec
}{
	{geom.V(1, 0, 0), [4]geom.Vec{geom.V(1, -1, -1), geom.V(1, 1, -1), geom.V(1, 1, 1), geom.V(1, -1, 1)}},
	{geom.V(-1, 0, 0), [4]geom.Vec{geom.V(-1, -1, -1), geom.V(-1, -1, 1), geom.V(-1, 1, 1), geom.V(-1, 1, -1)}},
	{geom.V(0, 1, 0), [4]geom.Vec{geom.V(-1, 1, -1), geom.V(-1, 1, 1), geom.V(1, 1, 1), geom.V(1, 1, -1)}},
	{geom.V(0, -1, 0), [4]geom.Vec{geom.V(-1, -1, -1), geom.V(1, -1, -1), geom.V(1, -1, 1), geom.V(-1, -1, 1)}},
	{geom.V(0, 0, 1), [4]geom.Vec{geom.V(-1, -1, 1), geom.V(1, -1, 1), geom.V(1, 1, 1), geom.V(-1, 1, 1)}},
	{geom.V(0, 0, -1), [4]geom.Vec{geom.V(-1, -1, -1), geom.V(-1, 1, -1), geom.V(1, 1, -1), geom.V(1, -1, -1)}},
}

func boxMesh(p part) *kernel.Mesh {
	pose := geom.Pose{Position: p.center, Rotation: p.rot}
	m := &kernel.Mesh{}
	for _, f := range faces {
		n := pose.ApplyDir(f.normal)
		base := uint32(m.VertexCount())
		for _, c := range f.corners {
			v := pose.Apply(geom.V(c.X*p.half.X, c.Y*p.half.Y, c.Z*p.half.Z))
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}
