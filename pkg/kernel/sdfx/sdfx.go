// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 200

const (
	// maxProbeDepth bounds the octree used by Penetration.
	maxProbeDepth = 4
	// penetrationEpsilon is the depth below which a sample counts as contact.
	penetrationEpsilon = 1e-4
)

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{cells: defaultMeshCells}
}

// WithMeshCells returns a kernel that meshes at the given marching cubes
// resolution. Values below 1 keep the default.
func (k *SdfxKernel) WithMeshCells(cells int) *SdfxKernel {
	if cells < 1 {
		cells = defaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

func toV3(v geom.Vec) v3.Vec {
	return v3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// Box creates a box with the given dimensions centered on the origin.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	return wrap(s)
}

// Cylinder creates a cylinder with the given height and radius along Z.
// The segments parameter is ignored since SDF represents smooth surfaces.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return wrap(s)
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Place applies a rigid pose to a solid.
func (k *SdfxKernel) Place(s kernel.Solid, p geom.Pose) kernel.Solid {
	x, y, z := geom.Euler(p.Rotation)
	m := sdf.Translate3d(toV3(p.Position)).Mul(sdf.RotateZ(z).Mul(sdf.RotateY(y)).Mul(sdf.RotateX(x)))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Penetration samples max(a, b) over the intersection of the two bounding
// boxes with an adaptive octree. A cell whose center lies further outside
// than its half diagonal cannot contain a shared point and is pruned.
func (k *SdfxKernel) Penetration(a, b kernel.Solid) (float64, bool) {
	region, ok := kernel.Bounds(a).Intersection(kernel.Bounds(b))
	if !ok {
		return 0, true
	}
	size := region.Size()
	if size.X <= penetrationEpsilon || size.Y <= penetrationEpsilon || size.Z <= penetrationEpsilon {
		return 0, true
	}
	return probe(unwrap(a), unwrap(b), region, 0)
}

func probe(a, b sdf.SDF3, cell geom.Box, depth int) (float64, bool) {
	c := toV3(cell.Center())
	d := math.Max(a.Evaluate(c), b.Evaluate(c))
	if math.IsNaN(d) {
		return 0, false
	}
	if d < -penetrationEpsilon {
		return -d, true
	}
	if d > r3.Norm(cell.Size())/2 {
		return 0, true
	}
	if depth == maxProbeDepth {
		return 0, false
	}

	conclusive := true
	mid := cell.Center()
	for _, corner := range cell.Corners() {
		if found, ok := probe(a, b, geom.NewBox(mid, corner), depth+1); ok && found > 0 {
			return found, true
		} else if !ok {
			conclusive = false
		}
	}
	return 0, conclusive
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)

	cells := k.cells
	if cells < 1 {
		cells = defaultMeshCells
	}
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
