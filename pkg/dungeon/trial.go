package dungeon

import (
	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/scene"
)

// trial instantiates m and tries every (connector, mode) pair against
// target. It returns the live instance and the docked connector index for
// the first overlap-free alignment, or ok=false with nothing left behind.
func trial(a scene.Adapter, o *Oracle, placed []scene.Handle, m *catalog.ModuleType, target geom.Frame) (h scene.Handle, attach int, ok bool) {
	if m.ConnectorCount() == 0 {
		return 0, -1, false
	}
	h, err := a.Instantiate(m)
	if err != nil {
		return 0, -1, false
	}
	for i, c := range m.Connectors {
		for _, mode := range modes {
			if err := a.SetPose(h, Align(c.Frame, target, mode)); err != nil {
				continue
			}
			if !o.Overlaps(h, placed) {
				return h, i, true
			}
		}
	}
	_ = a.Destroy(h)
	return 0, -1, false
}

// ViableEntries returns the entries of cat that can be placed at target
// without overlapping placed, in catalog order. Every trial instance is
// destroyed before returning, so calling it twice on unchanged state yields
// the same result.
func ViableEntries(a scene.Adapter, o *Oracle, placed []scene.Handle, target geom.Frame, entries []*catalog.ModuleType) []*catalog.ModuleType {
	var out []*catalog.ModuleType
	for _, m := range entries {
		h, _, ok := trial(a, o, placed, m, target)
		if !ok {
			continue
		}
		_ = a.Destroy(h)
		out = append(out, m)
	}
	return out
}
