// Package geom holds the small amount of rigid-body geometry the generator
// needs: vectors, rotations, poses, connector frames and axis-aligned boxes.
//
// Vectors and rotations are gonum's spatial/r3 types. Rotations are unit
// quaternions (r3.Rotation), composed with gonum's num/quat package. The
// axis convention is Y-up with +Z as the forward direction of a frame.
package geom
