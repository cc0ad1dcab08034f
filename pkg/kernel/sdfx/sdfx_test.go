package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/warren/pkg/geom"
)

func TestBox(t *testing.T) {
	k := New().WithMeshCells(50)
	box := k.Box(100, 50, 25)
	mesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	triCount := mesh.TriangleCount()
	if triCount == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	// Verify vertex and index array sizes are consistent.
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}
}

func TestCylinder(t *testing.T) {
	k := New().WithMeshCells(50)
	cyl := k.Cylinder(50, 10, 32)
	mesh, err := k.ToMesh(cyl)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	t.Logf("cylinder triangle count: %d", mesh.TriangleCount())
}

func TestUnion(t *testing.T) {
	k := New().WithMeshCells(50)
	box1 := k.Box(50, 50, 50)
	box2 := k.Translate(k.Box(50, 50, 50), 30, 0, 0)
	u := k.Union(box1, box2)
	min, max := u.BoundingBox()
	if math.Abs(min[0]+25) > 0.5 || math.Abs(max[0]-55) > 0.5 {
		t.Errorf("union X span = %f..%f, expected ~-25..55", min[0], max[0])
	}
	mesh, err := k.ToMesh(u)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("union mesh is empty")
	}
}

func TestTranslate(t *testing.T) {
	k := New()
	box := k.Box(10, 10, 10)
	translated := k.Translate(box, 100, 200, 300)

	min, max := translated.BoundingBox()

	// Translated box(10,10,10) by (100,200,300) should be centered at (100,200,300).
	const tol = 0.5
	expectMin := [3]float64{95, 195, 295}
	expectMax := [3]float64{105, 205, 305}

	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], expectMax[i])
		}
	}
}

func TestBoundingBox(t *testing.T) {
	k := New()
	box := k.Box(100, 50, 25)
	min, max := box.BoundingBox()

	const tol = 0.01
	expectMin := [3]float64{-50, -25, -12.5}
	expectMax := [3]float64{50, 25, 12.5}

	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}
}

func TestRotate(t *testing.T) {
	k := New()
	box := k.Box(100, 10, 10)

	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	rotated := k.Rotate(box, 0, 0, 90)
	min, max := rotated.BoundingBox()

	xExtent := max[0] - min[0]
	yExtent := max[1] - min[1]

	const tol = 1.0
	if math.Abs(xExtent-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", xExtent)
	}
	if math.Abs(yExtent-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", yExtent)
	}
}

func TestPlace(t *testing.T) {
	k := New()
	p := geom.Pose{Position: geom.V(20, 0, 0), Rotation: geom.LookRotation(geom.Right, geom.Up)}
	min, max := k.Place(k.Box(2, 2, 10), p).BoundingBox()

	const tol = 0.5
	if x := max[0] - min[0]; math.Abs(x-10) > tol {
		t.Errorf("placed X extent = %f, expected ~10", x)
	}
	if c := (min[0] + max[0]) / 2; math.Abs(c-20) > tol {
		t.Errorf("placed X center = %f, expected ~20", c)
	}
}

func TestPenetration(t *testing.T) {
	k := New()
	box := k.Box(10, 10, 10)
	tests := []struct {
		name     string
		dx       float64
		wantHit  bool
		minDepth float64
	}{
		{"deep overlap", 4, true, 1},
		{"separated", 20, false, 0},
		{"touching", 10, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			depth, ok := k.Penetration(box, k.Translate(box, tt.dx, 0, 0))
			if tt.wantHit {
				if !ok || depth < tt.minDepth {
					t.Errorf("Penetration = (%f, %v), expected depth >= %f", depth, ok, tt.minDepth)
				}
				return
			}
			if depth > 0 {
				t.Errorf("Penetration depth = %f, expected none", depth)
			}
		})
	}
}
