// Package config defines the bridge settings and provides helpers to load,
// validate and save them in YAML format.
//
// Values from the YAML file can be overridden by XRP_SIM_* environment
// variables; PORT overrides the HTTP listen port.
package config
