package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// PatternConfig is a declarative pattern definition. It is read from the
// config file, accepted by the control API and persisted in the state store.
// Which fields matter depends on Kind.
type PatternConfig struct {
	Kind        string   `yaml:"kind" json:"kind"`
	Name        string   `yaml:"name,omitempty" json:"name,omitempty"`
	Duration    Duration `yaml:"duration,omitempty" json:"duration,omitempty"`
	Interval    Duration `yaml:"interval,omitempty" json:"interval,omitempty"`
	Color       string   `yaml:"color,omitempty" json:"color,omitempty"`
	InhaleColor string   `yaml:"inhale_color,omitempty" json:"inhale_color,omitempty"`
	ExhaleColor string   `yaml:"exhale_color,omitempty" json:"exhale_color,omitempty"`
	BreathTime  Duration `yaml:"breath_time,omitempty" json:"breath_time,omitempty"`
	Lapses      float64  `yaml:"lapses,omitempty" json:"lapses,omitempty"`
	Source      string   `yaml:"source,omitempty" json:"source,omitempty"`
	Width       int      `yaml:"width,omitempty" json:"width,omitempty"`
	Script      string   `yaml:"script,omitempty" json:"script,omitempty"`
	ScriptFile  string   `yaml:"script_file,omitempty" json:"script_file,omitempty"`
}

// DisplayName returns Name, or Kind when no name was given
func (p PatternConfig) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Kind
}

// Duration is a wrapper around time.Duration for YAML and JSON.
// It accepts Go duration strings ("1.5s", "250ms") or plain numbers of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a string
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalJSON accepts a duration string or a number of seconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		parsed, err := parseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(v * float64(time.Second))
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
	return nil
}

// MarshalJSON writes the duration as a string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func parseDuration(s string) (time.Duration, error) {
	if parsed, err := time.ParseDuration(s); err == nil {
		return parsed, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
