package database

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DriverSQLite selects the embedded modernc.org/sqlite driver.
	DriverSQLite = "sqlite"
	// DriverPostgres selects lib/pq.
	DriverPostgres = "postgres"
)

// Config holds database connection settings shared across bots.
type Config struct {
	Driver string `yaml:"driver" toml:"driver" envconfig:"DB_DRIVER"`
	// Path is the SQLite database file; ":memory:" keeps it in RAM.
	Path string `yaml:"path" toml:"path" envconfig:"DB_PATH"`

	Host           string `yaml:"host" toml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" toml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" toml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" toml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" toml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" toml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" toml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	BusyTimeoutMS  int    `yaml:"busy_timeout_ms" toml:"busy_timeout_ms" envconfig:"DB_BUSY_TIMEOUT_MS"`
}

// Normalize fills defaults and validates driver specific fields.
func (c *Config) Normalize() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case "", "sqlite3":
		c.Driver = DriverSQLite
	case "postgresql", "pg":
		c.Driver = DriverPostgres
	}
	switch c.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Path) == "" {
			c.Path = "playlists.db"
		}
		if c.BusyTimeoutMS <= 0 {
			c.BusyTimeoutMS = 5000
		}
		if c.MaxConnections <= 0 {
			c.MaxConnections = 4
		}
		if c.InMemory() {
			// every pooled connection would otherwise open its own empty database
			c.MaxConnections = 1
		}
	case DriverPostgres:
		if c.Host == "" || c.Name == "" {
			return fmt.Errorf("database.host and database.name are required for postgres")
		}
		if c.Port == "" {
			c.Port = "5432"
		}
		if c.SSLMode == "" {
			c.SSLMode = "disable"
		}
		if c.MaxConnections <= 0 {
			c.MaxConnections = 10
		}
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: sqlite, postgres", c.Driver)
	}
	return nil
}

// InMemory reports whether the SQLite database lives only in process memory.
func (c Config) InMemory() bool {
	return c.Driver == DriverSQLite && c.Path == ":memory:"
}

// DSN returns the driver specific data source name.
func (c Config) DSN() string {
	switch c.Driver {
	case DriverPostgres:
		return fmt.Sprintf(
			"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
		)
	default:
		q := url.Values{}
		q.Add("_pragma", "foreign_keys(1)")
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeoutMS))
		if !c.InMemory() {
			q.Add("_pragma", "journal_mode(WAL)")
		}
		q.Set("_txlock", "immediate")
		return "file:" + c.Path + "?" + q.Encode()
	}
}

// Target is a log friendly description of the database location without secrets.
func (c Config) Target() string {
	if c.Driver == DriverPostgres {
		return fmt.Sprintf("%s:%s/%s", c.Host, c.Port, c.Name)
	}
	return c.Path
}
