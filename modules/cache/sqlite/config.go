package sqlite

import "fmt"

const (
	defaultBusyTimeout = 5000
	defaultDBFile      = "cache.db"
)

// Config holds the cache.sqlite module configuration.
type Config struct {
	// Path is the database file path. Defaults to {DataDir}/cache.db.
	Path string `yaml:"path"`

	// Compression is one of zstd, lz4 or none. Defaults to zstd.
	Compression string `yaml:"compression"`

	WAL         *bool `yaml:"wal"`
	BusyTimeout int   `yaml:"busy_timeout"`
}

func (c *Config) defaults() {
	if c.Compression == "" {
		c.Compression = "zstd"
	}
	if c.WAL == nil {
		t := true
		c.WAL = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

func (c *Config) validate() error {
	if _, err := ParseCodec(c.Compression); err != nil {
		return fmt.Errorf("cache.sqlite: %w", err)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("cache.sqlite: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	return nil
}
