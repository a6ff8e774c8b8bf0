package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Sqlite holds the settings used when tenants live in sqlite files.
type Sqlite struct {
	// DataDir replaces the {AppDir} placeholder in sqlite connection
	// templates. Must be a directory every application instance can reach.
	DataDir string `toml:"data_dir"`
	// Extension is appended to database names that carry none. Defaults to
	// "sqlite".
	Extension string `toml:"extension"`
}

// Config is the immutable sharding configuration loaded once at startup and
// passed by value into component constructors.
type Config struct {
	// DefaultShardName names the directory entry that backs the registry's
	// own storage. It is always reported as a shared database.
	DefaultShardName string `toml:"default_shard_name"`
	// DefaultConnectionName and DefaultDatabaseType describe the default
	// entry for seeding on first start. Seeding is skipped when either is
	// empty.
	DefaultConnectionName string `toml:"default_connection_name"`
	DefaultDatabaseType   string `toml:"default_database_type"`
	// LockDir is the shared directory used by the file-based distributed
	// lock. Ignored when the Postgres advisory lock is in use.
	LockDir string `toml:"lock_dir"`
	// ConnectionStrings maps connection names to provider templates.
	ConnectionStrings map[string]string `toml:"connection_strings"`
	Sqlite            Sqlite            `toml:"sqlite"`
}

// Load reads and validates the sharding configuration file.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode sharding config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("sharding config %s: %w", path, err)
	}
	if cfg.Sqlite.Extension == "" {
		cfg.Sqlite.Extension = "sqlite"
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.DefaultShardName) == "" {
		return fmt.Errorf("default_shard_name is required")
	}
	if len(c.ConnectionStrings) == 0 {
		return fmt.Errorf("at least one connection string template is required")
	}
	for name, template := range c.ConnectionStrings {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("connection string with empty name")
		}
		if strings.TrimSpace(template) == "" {
			return fmt.Errorf("connection string %q has an empty template", name)
		}
	}
	return nil
}

// Lookup returns the template registered under the given connection name.
func (c Config) Lookup(name string) (string, bool) {
	template, ok := c.ConnectionStrings[name]
	return template, ok
}

// Names returns every configured connection name, sorted for deterministic
// listings.
func (c Config) Names() []string {
	names := make([]string, 0, len(c.ConnectionStrings))
	for name := range c.ConnectionStrings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
