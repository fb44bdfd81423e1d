package database

import "time"

// Pool and PRAGMA defaults.
const (
	defaultMaxConns        = 4
	defaultConnMaxLifetime = time.Hour
	defaultCacheSizeKB     = -16000 // negative means KiB, so 16MB
	defaultBusyTimeoutMS   = 5000
)

// Config describes where the subscription store lives and how it is opened.
type Config struct {
	DBPath string

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	CacheSizeKB     int
	BusyTimeoutMS   int
}

// NewConfig returns a Config for the database file at dbPath.
func NewConfig(dbPath string) *Config {
	return &Config{
		DBPath:          dbPath,
		MaxIdleConns:    defaultMaxConns,
		MaxOpenConns:    defaultMaxConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
		CacheSizeKB:     defaultCacheSizeKB,
		BusyTimeoutMS:   defaultBusyTimeoutMS,
	}
}

// withDefaults fills zero fields of a hand-built Config.
func (c *Config) withDefaults() {
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = defaultMaxConns
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = defaultMaxConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = defaultConnMaxLifetime
	}
	if c.CacheSizeKB == 0 {
		c.CacheSizeKB = defaultCacheSizeKB
	}
	if c.BusyTimeoutMS <= 0 {
		c.BusyTimeoutMS = defaultBusyTimeoutMS
	}
}
