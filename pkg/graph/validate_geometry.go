package graph

import (
	"fmt"

	"github.com/chazu/warren/pkg/geom"
)

// PortTolerance is how far apart two mated connectors may sit.
const PortTolerance = 0.001

// ---------------------------------------------------------------------------
// Tier 2: geometric validation
// ---------------------------------------------------------------------------

// validateGeometry runs the geometric checks. They need resolved ports;
// nodes without them draw a warning and are skipped.
func validateGeometry(g *LayoutGraph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validatePoses(g)...)
	errs = append(errs, validateMatedPorts(g)...)
	return errs
}

// validatePoses checks that every pose is finite.
func validatePoses(g *LayoutGraph) []ValidationError {
	var errs []ValidationError
	for _, id := range g.Order {
		n := g.Nodes[id]
		r := n.Pose.Rotation
		if !geom.IsFinite(n.Pose.Position) || !geom.IsFinite(geom.V(r.Imag, r.Jmag, r.Kmag)) {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  "pose is not finite",
				Severity: SeverityError,
			})
		}
		if len(n.Ports) == 0 {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("module %q is not resolved; connector checks skipped", n.Module),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateMatedPorts checks that both connectors of every edge coincide.
func validateMatedPorts(g *LayoutGraph) []ValidationError {
	var errs []ValidationError
	for _, e := range g.Edges {
		a, b := port(g, e.A, e.PortA), port(g, e.B, e.PortB)
		if a == nil || b == nil {
			continue
		}
		d := geom.Distance(a.Position, b.Position)
		if d <= PortTolerance {
			continue
		}
		if e.Flexed {
			errs = append(errs, ValidationError{
				NodeID:   e.B,
				Message:  fmt.Sprintf("%s edge flexed by a loop closure; connectors are %.4f apart", e.Kind, d),
				Severity: SeverityWarning,
			})
			continue
		}
		errs = append(errs, ValidationError{
			NodeID:   e.B,
			Message:  fmt.Sprintf("%s edge connectors are %.4f apart", e.Kind, d),
			Severity: SeverityError,
		})
	}
	return errs
}

func port(g *LayoutGraph, id NodeID, i int) *Port {
	n := g.Nodes[id]
	if n == nil || i < 0 || i >= len(n.Ports) {
		return nil
	}
	return &n.Ports[i]
}
