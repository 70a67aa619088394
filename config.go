package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration
type Config struct {
	ListenAddr   string `yaml:"listen_addr"`
	DatabasePath string `yaml:"database_path"`

	// Session tuning
	QuietInterval      time.Duration `yaml:"quiet_interval"`
	JanitorPeriod      time.Duration `yaml:"janitor_period"`
	LobbyMaxAge        time.Duration `yaml:"lobby_max_age"`
	CountdownTicks     int           `yaml:"countdown_ticks"`
	CountdownInterval  time.Duration `yaml:"countdown_interval"`
	PickupRespawnDelay time.Duration `yaml:"pickup_respawn_delay"`
}

// DefaultConfig returns the built-in tuning
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:         ":8080",
		QuietInterval:      45 * time.Second,
		JanitorPeriod:      10 * time.Second,
		LobbyMaxAge:        10 * time.Minute,
		CountdownTicks:     3,
		CountdownInterval:  time.Second,
		PickupRespawnDelay: 15 * time.Second,
	}
}

// UnmarshalYAML accepts durations in the usual "45s" / "10m" form,
// which yaml.v3 does not parse into time.Duration on its own
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ListenAddr         string `yaml:"listen_addr"`
		DatabasePath       string `yaml:"database_path"`
		QuietInterval      string `yaml:"quiet_interval"`
		JanitorPeriod      string `yaml:"janitor_period"`
		LobbyMaxAge        string `yaml:"lobby_max_age"`
		CountdownTicks     int    `yaml:"countdown_ticks"`
		CountdownInterval  string `yaml:"countdown_interval"`
		PickupRespawnDelay string `yaml:"pickup_respawn_delay"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.ListenAddr = raw.ListenAddr
	c.DatabasePath = raw.DatabasePath
	c.CountdownTicks = raw.CountdownTicks

	for _, f := range []struct {
		s   string
		dst *time.Duration
	}{
		{raw.QuietInterval, &c.QuietInterval},
		{raw.JanitorPeriod, &c.JanitorPeriod},
		{raw.LobbyMaxAge, &c.LobbyMaxAge},
		{raw.CountdownInterval, &c.CountdownInterval},
		{raw.PickupRespawnDelay, &c.PickupRespawnDelay},
	} {
		if f.s == "" {
			continue
		}
		d, err := time.ParseDuration(f.s)
		if err != nil {
			return fmt.Errorf("bad duration %q: %w", f.s, err)
		}
		*f.dst = d
	}
	return nil
}

// LoadConfig reads configuration from a YAML file. An empty path
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Re-fill anything the file zeroed
	def := DefaultConfig()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if cfg.QuietInterval == 0 {
		cfg.QuietInterval = def.QuietInterval
	}
	if cfg.JanitorPeriod == 0 {
		cfg.JanitorPeriod = def.JanitorPeriod
	}
	if cfg.LobbyMaxAge == 0 {
		cfg.LobbyMaxAge = def.LobbyMaxAge
	}
	if cfg.CountdownTicks == 0 {
		cfg.CountdownTicks = def.CountdownTicks
	}
	if cfg.CountdownInterval == 0 {
		cfg.CountdownInterval = def.CountdownInterval
	}
	if cfg.PickupRespawnDelay == 0 {
		cfg.PickupRespawnDelay = def.PickupRespawnDelay
	}
	return cfg, nil
}
