// Package broadcaster pushes robot state to observers on a fixed period and
// announces control runtime connection changes.
package broadcaster
