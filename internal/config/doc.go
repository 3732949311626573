// Package config defines the scheduler settings and provides helpers to
// load, validate and save them in YAML format.
//
// Validate fills in defaults for every timing and capacity knob, so a
// zero Config is usable after validation.
package config
