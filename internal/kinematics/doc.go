// Package kinematics integrates the pose of a two-wheeled differential-drive
// robot inside a rectangular arena.
//
// Step is pure. Robot wraps it with the arena clamp and the hard stop that a
// clamp implies.
package kinematics
