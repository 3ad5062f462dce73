// Package config loads the playlist bot configuration: the shared core
// sections plus database, session, redis and health settings.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/playlistbot/core/config"
	coredatabase "github.com/m3rciful/playlistbot/core/database"
)

const (
	// SessionMemory keeps conversations in process memory.
	SessionMemory = "memory"
	// SessionRedis keeps conversations in Redis so they survive restarts.
	SessionRedis = "redis"
)

// SessionConfig tunes conversation storage and lifetimes.
type SessionConfig struct {
	Backend string `yaml:"backend" toml:"backend" envconfig:"SESSION_BACKEND"`
	// AddWindowSeconds bounds an add-tracks session; 0 means 60.
	AddWindowSeconds   int  `yaml:"add_window_seconds" toml:"add_window_seconds" envconfig:"ADD_TRACK_TIME_WINDOW"`
	RefreshOnEachTrack bool `yaml:"refresh_on_each_track" toml:"refresh_on_each_track" envconfig:"SESSION_REFRESH_ON_EACH_TRACK"`
	// DeleteConfirmSeconds bounds a pending deletion; 0 never expires it.
	DeleteConfirmSeconds int    `yaml:"delete_confirm_seconds" toml:"delete_confirm_seconds" envconfig:"SESSION_DELETE_CONFIRM_SECONDS"`
	JanitorSpec          string `yaml:"janitor_spec" toml:"janitor_spec" envconfig:"SESSION_JANITOR_SPEC"`
	// TTLHours expires idle sessions in Redis; 0 keeps them.
	TTLHours int `yaml:"ttl_hours" toml:"ttl_hours" envconfig:"SESSION_TTL_HOURS"`
}

// RedisConfig locates the Redis server used by the redis session backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" toml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" toml:"db" envconfig:"REDIS_DB"`
	Prefix   string `yaml:"prefix" toml:"prefix" envconfig:"REDIS_PREFIX"`
}

// HealthConfig enables the HTTP health server when Listen is set.
type HealthConfig struct {
	Listen string `yaml:"listen" toml:"listen" envconfig:"HEALTH_LISTEN"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database" toml:"database"`
	Session  SessionConfig       `yaml:"session" toml:"session"`
	Redis    RedisConfig         `yaml:"redis" toml:"redis"`
	Health   HealthConfig        `yaml:"health" toml:"health"`
}

// CoreConfig exposes the shared sections to the core runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path (YAML or TOML by extension), overlays the environment
// and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	c.Session.Backend = strings.ToLower(strings.TrimSpace(c.Session.Backend))
	switch c.Session.Backend {
	case "":
		c.Session.Backend = SessionMemory
	case SessionMemory:
	case SessionRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("redis.addr is required when session.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: memory, redis", c.Session.Backend)
	}
	if c.Session.AddWindowSeconds < 0 {
		return fmt.Errorf("session.add_window_seconds must be >= 0")
	}
	if c.Session.AddWindowSeconds == 0 {
		c.Session.AddWindowSeconds = 60
	}
	if c.Session.DeleteConfirmSeconds < 0 {
		return fmt.Errorf("session.delete_confirm_seconds must be >= 0")
	}
	if c.Session.TTLHours < 0 {
		return fmt.Errorf("session.ttl_hours must be >= 0")
	}
	if strings.TrimSpace(c.Session.JanitorSpec) == "" {
		c.Session.JanitorSpec = "@every 1m"
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0")
	}
	return nil
}

// AddWindow is the add-tracks window as a duration.
func (s SessionConfig) AddWindow() time.Duration {
	return time.Duration(s.AddWindowSeconds) * time.Second
}

// DeleteConfirmTTL is the deletion confirmation lifetime; 0 means none.
func (s SessionConfig) DeleteConfirmTTL() time.Duration {
	return time.Duration(s.DeleteConfirmSeconds) * time.Second
}

// TTL is the Redis expiry of a stored session; 0 means none.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}
