// Package config loads Pipesight configuration from YAML with sane
// defaults. CLI flags on the serve command override file values.
package config
