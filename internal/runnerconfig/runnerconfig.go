// Package runnerconfig loads the runner's own ambient settings, distinct
// from the per-service manifests the config package discovers.
package runnerconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds runner-wide settings, typically loaded from config/runner.yaml.
type Config struct {
	ServicesDir string `yaml:"services_dir"`
	GatewayPort int    `yaml:"gateway_port"`
	UseWasm     bool   `yaml:"use_wasm"`
	LogLevel    string `yaml:"log_level"`
}

func defaults() Config {
	return Config{
		ServicesDir: "services",
		GatewayPort: 14000,
		UseWasm:     false,
		LogLevel:    "info",
	}
}

// Load reads config/runner.yaml at path if present, overlaying it onto the
// built-in defaults. A missing file is not an error — the runner boots with
// defaults alone, since the YAML file is optional ambient configuration.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading runner config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing runner config %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyEnv overlays RUNNER_USE_WASM, per the documented environment
// variable override, onto an already-loaded config.
func (c *Config) ApplyEnv(useWasm string) {
	switch useWasm {
	case "1", "true", "TRUE":
		c.UseWasm = true
	case "":
		// leave as configured by YAML/default
	default:
		c.UseWasm = false
	}
}
