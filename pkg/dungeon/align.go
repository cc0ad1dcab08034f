package dungeon

import (
	"github.com/chazu/warren/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mode selects how a module's connector docks onto a target connector.
type Mode int

const (
	// FaceToFace maps the attach connector's forward onto the target's
	// forward negated: the two openings face each other.
	FaceToFace Mode = iota
	// PassThrough maps the attach forward onto the target forward unchanged.
	PassThrough
)

// modes lists alignment modes in trial order.
var modes = [...]Mode{FaceToFace, PassThrough}

func (m Mode) String() string {
	switch m {
	case FaceToFace:
		return "face-to-face"
	case PassThrough:
		return "pass-through"
	default:
		return "unknown"
	}
}

// Align returns the module pose that brings attach, given in module-local
// space, onto target in world space. The attach up vector is mapped onto
// target.Up.
func Align(attach, target geom.Frame, mode Mode) geom.Pose {
	fwd := target.Forward
	if mode == FaceToFace {
		fwd = r3.Scale(-1, fwd)
	}
	rot := geom.Compose(geom.LookRotation(fwd, target.Up), geom.Inverse(attach.Rotation()))
	return geom.Pose{
		Position: r3.Sub(target.Position, geom.Rotate(rot, attach.Position)),
		Rotation: rot,
	}
}
