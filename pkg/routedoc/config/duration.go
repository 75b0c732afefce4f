package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a config-friendly wrapper over time.Duration supporting Go
// duration strings and integer milliseconds in YAML, TOML and environment
// values.
type Duration time.Duration

// DurationFrom constructs a Duration from a time.Duration.
func DurationFrom(d time.Duration) Duration {
	return Duration(d)
}

// AsDuration returns the underlying time.Duration.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

// MarshalYAML encodes the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.AsDuration().String(), nil
}

// UnmarshalYAML decodes scalar duration values.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration node kind: %v", value.Kind)
	}
	return d.Decode(value.Value)
}

// UnmarshalTOML decodes TOML strings and integers.
func (d *Duration) UnmarshalTOML(v interface{}) error {
	switch val := v.(type) {
	case string:
		return d.Decode(val)
	case int64:
		return d.Decode(strconv.FormatInt(val, 10))
	default:
		return fmt.Errorf("unsupported duration value %v (%T)", v, v)
	}
}

// Decode parses a duration from an environment value.
func (d *Duration) Decode(value string) error {
	txt := strings.TrimSpace(value)
	if txt == "" {
		*d = Duration(0)
		return nil
	}
	if ms, err := strconv.Atoi(txt); err == nil {
		if ms < 0 {
			return fmt.Errorf("duration must be non-negative, got %d", ms)
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	parsed, err := time.ParseDuration(txt)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", txt, err)
	}
	if parsed < 0 {
		return fmt.Errorf("duration must be non-negative, got %s", parsed)
	}
	*d = Duration(parsed)
	return nil
}
