// Package config loads runtime settings from the environment and an
// optional yaml config file.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	LogLevel        string  `mapstructure:"log_level"`
	TimePreset      string  `mapstructure:"time_preset"`
	MaxDepth        int     `mapstructure:"max_depth"`
	TTFraction      float64 `mapstructure:"tt_fraction"`
	DefaultBudgetMs int     `mapstructure:"default_budget_ms"`
	DefaultAgent    string  `mapstructure:"default_agent"`
	Seed            int64   `mapstructure:"seed"`
}

// Load reads settings with precedence env > config file > defaults.
// Environment variables use the WTN_ prefix (e.g. WTN_LOG_LEVEL).
// path may be empty, in which case only env and defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("log_level", "info")
	v.SetDefault("time_preset", "default")
	v.SetDefault("max_depth", 12)
	v.SetDefault("tt_fraction", 0.02)
	v.SetDefault("default_budget_ms", 1000)
	v.SetDefault("default_agent", "expecti")
	v.SetDefault("seed", 42)

	v.SetEnvPrefix("WTN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
