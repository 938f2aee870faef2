package kinematics

import "gonum.org/v1/gonum/spatial/r2"

// Default arena dimensions shared with the observer UI.
const (
	DefaultRobotSize = 40.0
	DefaultWidth     = 800.0
	DefaultHeight    = 500.0
)

// Arena is the rectangle the robot drives in. The robot footprint is a square of RobotSize.
type Arena struct {
	// RobotSize is both the footprint side and the wheel base.
	RobotSize float64
	// Width is the arena extent along x.
	Width float64
	// Height is the arena extent along y.
	Height float64
}

// DefaultArena returns the arena the observer UI renders.
func DefaultArena() Arena {
	return Arena{
		RobotSize: DefaultRobotSize,
		Width:     DefaultWidth,
		Height:    DefaultHeight,
	}
}

// Center returns the middle of the arena.
func (a Arena) Center() r2.Vec {
	return r2.Vec{X: a.Width / 2, Y: a.Height / 2}
}

// Clamp keeps p at least half a footprint away from every wall and reports
// whether any axis had to be corrected.
func (a Arena) Clamp(p r2.Vec) (r2.Vec, bool) {
	half := a.RobotSize / 2
	clamped := false

	if p.X < half {
		p.X, clamped = half, true
	} else if p.X+half > a.Width {
		p.X, clamped = a.Width-half, true
	}

	if p.Y < half {
		p.Y, clamped = half, true
	} else if p.Y+half > a.Height {
		p.Y, clamped = a.Height-half, true
	}

	return p, clamped
}

// Step integrates pose and clamps the result into the arena.
func (a Arena) Step(pose Pose, left, right, dt float64) (Pose, bool) {
	next := Integrate(pose, left, right, dt, a.RobotSize)

	var clamped bool

	next.Position, clamped = a.Clamp(next.Position)

	return next, clamped
}
