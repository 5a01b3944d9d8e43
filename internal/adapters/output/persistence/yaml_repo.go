package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"lpd8806-bridge/internal/domain/model"
)

type YAMLConfigRepository struct {
	filepath string
	mu       sync.RWMutex
}

// legacyConfig is the homebridge accessory entry the bridge replaces:
// {"accessory": "nico-lpd8806", "name": "...", "url": "..."}
type legacyConfig struct {
	Accessory string `json:"accessory"`
	Name      string `json:"name"`
	URL       string `json:"url"`
}

func NewYAMLConfigRepository(filepath string) *YAMLConfigRepository {
	return &YAMLConfigRepository{filepath: filepath}
}

// Get reads the configuration file. A missing file yields the defaults.
func (r *YAMLConfigRepository) Get(ctx context.Context) (*model.Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &model.Config{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}

	expanded := []byte(expandEnvVars(string(data)))

	var cfg model.Config
	if bytes.HasPrefix(bytes.TrimSpace(expanded), []byte("{")) {
		if err := migrate(expanded, &cfg); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	return &cfg, nil
}

// migrate reads a legacy homebridge accessory entry.
func migrate(data []byte, cfg *model.Config) error {
	var legacy legacyConfig
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}

	cfg.Device.URL = legacy.URL
	cfg.HomeKit.Name = legacy.Name
	// a homebridge entry was always served over HomeKit
	cfg.HomeKit.Enabled = true
	return nil
}

func (r *YAMLConfigRepository) Save(ctx context.Context, config *model.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(r.filepath, data, 0644)
}

func applyDefaults(cfg *model.Config) {
	cfg.Device.URL = strings.TrimSpace(cfg.Device.URL)
	if cfg.Device.Timeout == 0 {
		cfg.Device.Timeout = model.Duration(5 * time.Second)
	}

	if cfg.Controller.SetTimeout == 0 {
		cfg.Controller.SetTimeout = model.Duration(10 * time.Second)
	}
	if cfg.Controller.RefreshTimeout == 0 {
		cfg.Controller.RefreshTimeout = model.Duration(10 * time.Second)
	}

	// HomeKit accessory information
	if cfg.HomeKit.Name == "" {
		cfg.HomeKit.Name = "LPD8806"
	}
	if cfg.HomeKit.Pin == "" {
		cfg.HomeKit.Pin = "00102003"
	}
	if cfg.HomeKit.StoragePath == "" {
		cfg.HomeKit.StoragePath = "./homekit"
	}
	if cfg.HomeKit.Manufacturer == "" {
		cfg.HomeKit.Manufacturer = "Nico"
	}
	if cfg.HomeKit.Model == "" {
		cfg.HomeKit.Model = "ESP8266"
	}
	if cfg.HomeKit.SerialNumber == "" {
		cfg.HomeKit.SerialNumber = "Nico-LPD8806"
	}

	if cfg.Hue.Port == 0 {
		cfg.Hue.Port = 80
	}
	if cfg.Hue.LightID == "" {
		cfg.Hue.LightID = "1"
	}
	if cfg.Hue.Name == "" {
		cfg.Hue.Name = cfg.HomeKit.Name
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = model.Duration(5 * time.Second)
	}
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}
