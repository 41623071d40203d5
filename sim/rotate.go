package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// randomRotation draws one molecule orientation from a rank-private stream.
// In 3d the axis is a random direction and the angle uniform in [0, 2pi);
// in 2d only rotation about the out-of-plane axis is allowed. The number of
// draws per call is fixed per dimensionality so the stream stays aligned
// with the caller's accounting.
func randomRotation(stream *RankStream, dim int) r3.Rotation {
	var axis r3.Vec
	if dim == 3 {
		axis = r3.Unit(r3.Vec{
			X: stream.Uniform() - 0.5,
			Y: stream.Uniform() - 0.5,
			Z: stream.Uniform() - 0.5,
		})
	} else {
		axis = r3.Vec{Z: 1}
	}
	theta := stream.Uniform() * 2 * math.Pi
	return r3.NewRotation(theta, axis)
}

// fixedRotation converts a user-specified axis/angle into a rotation.
func fixedRotation(fr *FixedRotation) r3.Rotation {
	axis := r3.Unit(r3.Vec{X: fr.Axis[0], Y: fr.Axis[1], Z: fr.Axis[2]})
	return r3.NewRotation(fr.ThetaDeg/180.0*math.Pi, axis)
}
