package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ValidDialerStrategies is the set of recognized dialer strategy names.
// Shared by Config.Validate and NewDialerStrategy.
var ValidDialerStrategies = map[string]bool{"constant": true, "free-agent": true, "analytic": true, "genetic": true}

// IsValidDialerStrategy reports whether name is a recognized dialer strategy.
func IsValidDialerStrategy(name string) bool {
	return ValidDialerStrategies[name]
}

// LoadConfig reads a YAML config file and overlays it on DefaultConfig, so a
// file only needs the keys it changes. Unknown keys are rejected so that typos
// fail loudly. The result is validated.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML config data on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
