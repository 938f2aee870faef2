// Package robot contains the domain types shared by the bridge, the codec and
// the simulator: wheel commands, sensor telemetry and the observer-facing
// robot state.
package robot
