package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/chazu/warren/pkg/kernel"
)

const stlHeader = "warren binary STL"

// WriteSTL writes meshes as one binary STL solid. Facet normals are
// recomputed from the triangle winding.
func WriteSTL(w io.Writer, meshes []*kernel.Mesh) error {
	count := 0
	for _, m := range meshes {
		if m != nil {
			count += m.TriangleCount()
		}
	}
	if uint64(count) > math.MaxUint32 {
		return fmt.Errorf("export: %d triangles exceed the STL limit", count)
	}

	bw := bufio.NewWriter(w)
	var header [80]byte
	copy(header[:], stlHeader)
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(count)); err != nil {
		return err
	}

	var facet [50]byte
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for t := 0; t < m.TriangleCount(); t++ {
			var v [3][3]float32
			for j := 0; j < 3; j++ {
				idx := m.Indices[t*3+j]
				copy(v[j][:], m.Vertices[idx*3:idx*3+3])
			}
			n := facetNormal(v)
			put := func(off int, p [3]float32) {
				for k := 0; k < 3; k++ {
					binary.LittleEndian.PutUint32(facet[off+k*4:], math.Float32bits(p[k]))
				}
			}
			put(0, n)
			put(12, v[0])
			put(24, v[1])
			put(36, v[2])
			facet[48], facet[49] = 0, 0
			if _, err := bw.Write(facet[:]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func facetNormal(v [3][3]float32) [3]float32 {
	ax, ay, az := v[1][0]-v[0][0], v[1][1]-v[0][1], v[1][2]-v[0][2]
	bx, by, bz := v[2][0]-v[0][0], v[2][1]-v[0][1], v[2][2]-v[0][2]
	nx, ny, nz := ay*bz-az*by, az*bx-ax*bz, ax*by-ay*bx
	l := float32(math.Sqrt(float64(nx*nx + ny*ny + nz*nz)))
	if l == 0 {
		return [3]float32{}
	}
	return [3]float32{nx / l, ny / l, nz / l}
}
