package model

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the bridge configuration.
type Config struct {
	Device          DeviceConfig     `yaml:"device"`
	Controller      ControllerConfig `yaml:"controller"`
	HomeKit         HomeKitConfig    `yaml:"homekit"`
	Hue             HueConfig        `yaml:"hue"`
	Log             LogConfig        `yaml:"log"`
	ShutdownTimeout Duration         `yaml:"shutdown_timeout"`
}

// DeviceConfig describes the light strip controller endpoint.
type DeviceConfig struct {
	URL          string   `yaml:"url"`
	Timeout      Duration `yaml:"timeout"`        // HTTP timeout per request
	RateLimitRPS float64  `yaml:"rate_limit_rps"` // 0 = unlimited
	CheckStatus  bool     `yaml:"check_status"`   // treat a non-zero "status" field as a failure
}

// ControllerConfig tunes the reconciling controller.
type ControllerConfig struct {
	SetTimeout      Duration `yaml:"set_timeout"`
	RefreshTimeout  Duration `yaml:"refresh_timeout"`
	CoalesceRefresh *bool    `yaml:"coalesce_refresh"` // nil = true
}

// Coalesce reports whether concurrent refreshes share one device fetch.
func (c ControllerConfig) Coalesce() bool {
	return c.CoalesceRefresh == nil || *c.CoalesceRefresh
}

// HomeKitConfig exposes the strip as a HomeKit lightbulb.
type HomeKitConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Name         string `yaml:"name"`
	Pin          string `yaml:"pin"`
	StoragePath  string `yaml:"storage_path"`
	Manufacturer string `yaml:"manufacturer"`
	Model        string `yaml:"model"`
	SerialNumber string `yaml:"serial_number"`
}

// HueConfig exposes the strip through an emulated Hue bridge.
type HueConfig struct {
	Enabled bool   `yaml:"enabled"`
	LocalIP string `yaml:"local_ip"`
	Port    int    `yaml:"port"`
	LightID string `yaml:"light_id"`
	Name    string `yaml:"name"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration back in its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Validate fails when a required setting is absent.
func (c *Config) Validate() error {
	if c.Device.URL == "" {
		return ErrMissingDeviceURL
	}
	return nil
}
