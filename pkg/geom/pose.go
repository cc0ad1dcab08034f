package geom

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is a rigid transform: rotate, then translate.
type Pose struct {
	Position Vec
	Rotation r3.Rotation
}

// Identity returns the pose that leaves points unchanged.
func Identity() Pose {
	return Pose{Rotation: IdentityRotation()}
}

// Apply maps a point from the pose's local space to its parent space.
func (p Pose) Apply(v Vec) Vec {
	return r3.Add(p.Position, Rotate(p.Rotation, v))
}

// ApplyDir maps a direction; translation is ignored.
func (p Pose) ApplyDir(v Vec) Vec {
	return Rotate(p.Rotation, v)
}

// Mul returns the pose equivalent to applying q and then p.
func (p Pose) Mul(q Pose) Pose {
	return Pose{
		Position: p.Apply(q.Position),
		Rotation: Compose(p.Rotation, q.Rotation),
	}
}

// Inverse returns the pose undoing p.
func (p Pose) Inverse() Pose {
	inv := Inverse(p.Rotation)
	return Pose{
		Position: Rotate(inv, r3.Scale(-1, p.Position)),
		Rotation: inv,
	}
}

// Frame transforms a local frame by p.
func (p Pose) Frame(f Frame) Frame {
	return Frame{
		Position: p.Apply(f.Position),
		Forward:  p.ApplyDir(f.Forward),
		Up:       p.ApplyDir(f.Up),
	}
}

// ApproxEqual reports whether p and q place points within tol of each other.
func (p Pose) ApproxEqual(q Pose, tol float64) bool {
	return ApproxEqual(p.Position, q.Position, tol) && SameRotation(p.Rotation, q.Rotation, tol)
}

// Frame is a connector's position and orientation. Forward points out of
// the module through the opening; Up fixes the roll about Forward.
type Frame struct {
	Position Vec
	Forward  Vec
	Up       Vec
}

// Rotation returns the rotation carrying +Z to Forward and +Y to Up.
func (f Frame) Rotation() r3.Rotation {
	return LookRotation(f.Forward, f.Up)
}

// Normalized returns f with unit Forward and Up vectors. Zero vectors are
// replaced by +Z and +Y respectively.
func (f Frame) Normalized() Frame {
	out := f
	if r3.Norm(out.Forward) < parallelEpsilon {
		out.Forward = Forward
	} else {
		out.Forward = r3.Unit(out.Forward)
	}
	if r3.Norm(out.Up) < parallelEpsilon {
		out.Up = Up
	} else {
		out.Up = r3.Unit(out.Up)
	}
	return out
}
