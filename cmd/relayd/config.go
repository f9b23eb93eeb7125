package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/adamwoolhether/pacer/relay"
	"github.com/adamwoolhether/pacer/throttle"
)

const envPrefix = "RELAYD"

type config struct {
	Server  serverConfig  `json:"server" mapstructure:"server"`
	Log     logConfig     `json:"log" mapstructure:"log"`
	Client  clientConfig  `json:"client" mapstructure:"client"`
	Metrics metricsConfig `json:"metrics" mapstructure:"metrics"`
	// Warm seeds skippable routes in the background at startup.
	Warm  bool         `json:"warm" mapstructure:"warm"`
	Relay relay.Config `json:"relay" mapstructure:"relay"`
}

type serverConfig struct {
	Host            string        `json:"host" mapstructure:"host" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `json:"read_timeout" mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `json:"write_timeout" mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `json:"idle_timeout" mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"gte=0"`
}

type logConfig struct {
	Level string `json:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
}

type clientConfig struct {
	UserAgent string        `json:"user_agent" mapstructure:"user_agent"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout" validate:"gte=0"`
	// RPS and Burst cap all upstream traffic with a token bucket on top of
	// the per-route periods. Zero RPS disables the bucket.
	RPS   int `json:"rps" mapstructure:"rps" validate:"gte=0"`
	Burst int `json:"burst" mapstructure:"burst" validate:"required_with=RPS,gte=0"`
}

type metricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path" validate:"omitempty,startswith=/"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0:8080")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 20*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("client.user_agent", "relayd/"+version)
	v.SetDefault("client.timeout", 10*time.Second)
	v.SetDefault("client.rps", 0)
	v.SetDefault("client.burst", 0)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("warm", false)
}

// loadConfig reads path, if given, then RELAYD_* environment variables
// over the defaults. Durations are written as strings such as "1.5s".
func loadConfig(v *viper.Viper, path string) (config, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, fmt.Errorf("%w: decoding config: %w", throttle.ErrConfiguration, err)
	}

	if err := throttle.Validate(cfg); err != nil {
		return config{}, err
	}

	return cfg, nil
}

func (c logConfig) level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}

	return l
}
