// Package config loads and persists ttlstore configuration.
//
// Configuration is read from ttlstore.toml (searched upward from the working
// directory, then ~/.ttlstore/), overridden by TTL_-prefixed environment
// variables.
package config

// Config represents the ttlstore configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Import   ImportConfig   `mapstructure:"import"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig configures the SQLite corpus database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
	// BusyTimeoutMS is how long a writer waits on a locked database before
	// the engine reports a transaction conflict.
	BusyTimeoutMS int `mapstructure:"busy_timeout_ms"`
}

// ImportConfig carries advisory limits for converters feeding the store.
// The engine itself places no limit on batch size; converters are expected
// to chunk large imports to bound memory and lock-hold time.
type ImportConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
}

// LogConfig configures logging output.
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// Defaults.
const (
	DefaultDatabasePath  = "corpus.db"
	DefaultBusyTimeoutMS = 5000
	DefaultChunkSize     = 1000
)
