package kinematics

import (
	"math"
	"sync"
	"time"
)

// Robot is a stateful differential-drive robot confined to an arena.
// It is safe for concurrent use.
type Robot struct {
	mu       sync.Mutex
	arena    Arena
	pose     Pose
	left     float64
	right    float64
	odometer [2]float64
}

// NewRobot places a stopped robot at the arena centre facing bearing 0.
func NewRobot(arena Arena) *Robot {
	return &Robot{
		arena: arena,
		pose:  Pose{Position: arena.Center()},
	}
}

// SetSpeeds sets both wheel speeds in arena units per second.
// A NaN or infinite speed stops that wheel.
func (r *Robot) SetSpeeds(left, right float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.left, r.right = finiteSpeed(left), finiteSpeed(right)
}

// Speeds returns the current wheel speeds.
func (r *Robot) Speeds() (left, right float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.left, r.right
}

// Pose returns the current pose.
func (r *Robot) Pose() Pose {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pose
}

// SetPose places the robot at pose, clamped into the arena. Speeds are untouched.
func (r *Robot) SetPose(pose Pose) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pose.Position, _ = r.arena.Clamp(pose.Position)
	pose.Bearing = normalizeBearing(pose.Bearing)
	r.pose = pose
}

// Odometry returns the signed distance each wheel has travelled since the last Reset.
func (r *Robot) Odometry() (left, right float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.odometer[0], r.odometer[1]
}

// Reset moves the robot back to the arena centre, facing bearing 0, and clears odometry.
// Wheel speeds are kept.
func (r *Robot) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pose = Pose{Position: r.arena.Center()}
	r.odometer = [2]float64{}
}

// Tick advances the robot by dt. Hitting a wall stops both wheels and reports true.
func (r *Robot) Tick(dt time.Duration) (Pose, bool) {
	seconds := dt.Seconds()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.odometer[0] += r.left * seconds
	r.odometer[1] += r.right * seconds

	next, clamped := r.arena.Step(r.pose, r.left, r.right, seconds)
	if clamped {
		r.left, r.right = 0, 0
	}

	r.pose = next

	return next, clamped
}

func finiteSpeed(speed float64) float64 {
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return 0
	}

	return speed
}
