// Package config holds the process settings and the per-plugin configuration
// resolver.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings are the process-wide options, read from ROOMBOT_* environment
// variables and overridable by command-line flags.
type Settings struct {
	DataDir        string        `env:"ROOMBOT_DATA_DIR"        envDefault:"plugins"`
	ConfigDir      string        `env:"ROOMBOT_CONFIG_DIR"      envDefault:"plugins"`
	StoreBackend   string        `env:"ROOMBOT_STORE_BACKEND"   envDefault:"file"`
	CommandPrefix  string        `env:"ROOMBOT_COMMAND_PREFIX"  envDefault:"!"`
	LogLevel       string        `env:"ROOMBOT_LOG_LEVEL"       envDefault:"info"`
	TimerInterval  time.Duration `env:"ROOMBOT_TIMER_INTERVAL"  envDefault:"30s"`
	MetricsAddr    string        `env:"ROOMBOT_METRICS_ADDR"`
	Transport      string        `env:"ROOMBOT_TRANSPORT"       envDefault:"console"`
	DiscordToken   string        `env:"ROOMBOT_DISCORD_TOKEN"`
	ConsoleRoom    string        `env:"ROOMBOT_CONSOLE_ROOM"    envDefault:"console"`
	ConsoleMembers []string      `env:"ROOMBOT_CONSOLE_MEMBERS" envSeparator:","`
}

// LoadSettings parses the environment into Settings.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

// Validate checks option combinations that cannot work.
func (s Settings) Validate() error {
	switch s.Transport {
	case "console":
	case "discord":
		if s.DiscordToken == "" {
			return fmt.Errorf("%w: discord transport needs ROOMBOT_DISCORD_TOKEN", ErrInvalidSettings)
		}
	default:
		return fmt.Errorf("%w: unknown transport %q (valid: console, discord)", ErrInvalidSettings, s.Transport)
	}
	if s.CommandPrefix == "" {
		return fmt.Errorf("%w: empty command prefix", ErrInvalidSettings)
	}
	if s.TimerInterval <= 0 {
		return fmt.Errorf("%w: timer interval must be positive", ErrInvalidSettings)
	}
	return nil
}
