// Package simulator runs the robot physics on the server, so the control
// runtime gets gyro and encoder telemetry without a browser driving it.
package simulator
