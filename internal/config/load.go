package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadBenchmarkConfig reads one benchmark YAML file, applies environment
// interpolation to the raw bytes, and validates the result. Sealed-semantics
// validation against a registered pack happens separately at registration
// time (see ValidateSealed).
func LoadBenchmarkConfig(path string) (*BenchmarkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read benchmark config %s: %w", path, err)
	}
	var cfg BenchmarkConfig
	if err := yaml.Unmarshal([]byte(InterpolateEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse benchmark config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadProviderConfig reads one provider YAML file with env interpolation.
func LoadProviderConfig(path string) (*ProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read provider config %s: %w", path, err)
	}
	var cfg ProviderConfig
	if err := yaml.Unmarshal([]byte(InterpolateEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse provider config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
