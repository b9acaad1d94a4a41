package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// DaemonEnv holds process settings read from the environment.
type DaemonEnv struct {
	Addr       string `env:"SOUNDRIG_ADDR" envDefault:":8080"`
	ConfigPath string `env:"SOUNDRIG_CONFIG" envDefault:"configs/rig.yaml"`
	SettingsDB string `env:"SOUNDRIG_SETTINGS_DB"`
	LogLevel   string `env:"SOUNDRIG_LOG_LEVEL"`
	Watch      bool   `env:"SOUNDRIG_WATCH" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
