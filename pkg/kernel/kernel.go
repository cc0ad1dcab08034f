// Package kernel defines the abstract geometry kernel interface.
// Implementations (analytic, sdfx) provide module solids, rigid placement,
// penetration queries and mesh output behind this interface. The kernel
// abstraction allows swapping backends without changing the generator.
package kernel

import "github.com/chazu/warren/pkg/geom"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives, centered on the origin. Cylinders run along Z.
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid

	Union(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees
	Place(s Solid, p geom.Pose) Solid

	// Penetration returns how deeply a and b interpenetrate. A depth of zero
	// with ok set means the solids are separate or only touch. ok is false
	// when the kernel cannot decide for this pair.
	Penetration(a, b Solid) (depth float64, ok bool)

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// Bounds returns a solid's bounding box as a geom.Box.
func Bounds(s Solid) geom.Box {
	min, max := s.BoundingBox()
	return geom.NewBox(geom.V(min[0], min[1], min[2]), geom.V(max[0], max[1], max[2]))
}
