package configs

import (
	_ "embed"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

var (
	//go:embed config.example.yaml
	defaultConfigYAML string

	defaultConfigOnce sync.Once
	defaultConfig     Config
	defaultConfigErr  error
)

// LoadDefaults seeds v with the embedded config.example.yaml, a config file merged afterwards overrides it key by key.
func LoadDefaults(v *viper.Viper) error {
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(defaultConfigYAML)); err != nil {
		return fmt.Errorf("failed to read embedded config.example.yaml: %w", err)
	}
	return nil
}

// DefaultConfig returns a copy of the parsed configuration from the embedded config.example.yaml.
func DefaultConfig() (Config, error) {
	defaultConfigOnce.Do(func() {
		v := viper.New()
		if err := LoadDefaults(v); err != nil {
			defaultConfigErr = err
			return
		}

		if err := v.Unmarshal(&defaultConfig); err != nil {
			defaultConfigErr = fmt.Errorf("failed to decode embedded config.example.yaml: %w", err)
			return
		}
		defaultConfig.Normalize()
	})

	if defaultConfigErr != nil {
		return Config{}, defaultConfigErr
	}

	cfg := defaultConfig
	cfg.ContractNames = slices.Clone(defaultConfig.ContractNames)
	cfg.TargetNetworks = slices.Clone(defaultConfig.TargetNetworks)
	cfg.Networks = maps.Clone(defaultConfig.Networks)

	return cfg, nil
}
