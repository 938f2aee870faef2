// Package process guards against two bridges running on the same host, where
// they would fight over the HAL UDP port.
package process
