package kinematics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// fullTurn is one revolution in degrees.
const fullTurn = 360.0

// Pose is the robot position and heading. Bearing is in degrees within [0, 360),
// 0 pointing towards negative y and growing clockwise on screen.
type Pose struct {
	Position r2.Vec
	Bearing  float64
}

// Integrate advances pose by dt seconds with the given wheel speeds and wheel base.
// Equal speeds, zero included, drive straight; anything else follows a circular arc.
// The resulting bearing is normalised by a single wrap, so one step must turn less
// than a full revolution.
func Integrate(pose Pose, left, right, dt, wheelBase float64) Pose {
	plus := left + right
	minus := right - left
	theta0 := (pose.Bearing - 90) * math.Pi / 180

	var next Pose

	if minus != 0 {
		theta := theta0 - minus*dt/wheelBase
		radius := wheelBase * plus / (2 * minus)

		next.Bearing = theta*180/math.Pi + 90
		next.Position = r2.Add(pose.Position, r2.Vec{
			X: -radius * (math.Sin(theta) - math.Sin(theta0)),
			Y: radius * (math.Cos(theta) - math.Cos(theta0)),
		})
	} else {
		next.Bearing = pose.Bearing
		next.Position = r2.Add(pose.Position, r2.Scale(plus/2*dt, r2.Vec{
			X: math.Cos(theta0),
			Y: math.Sin(theta0),
		}))
	}

	next.Bearing = normalizeBearing(next.Bearing)

	return next
}

func normalizeBearing(bearing float64) float64 {
	switch {
	case bearing >= fullTurn:
		bearing -= fullTurn
	case bearing < 0:
		bearing += fullTurn
	}

	// Adding 360 to a tiny negative value rounds to exactly 360.
	if bearing >= fullTurn {
		bearing = 0
	}

	return bearing
}
