package config

import "time"

// Config holds the runtime settings of the lifelist client.
//
// Sources are layered: defaults, then an optional JSON file (-c/-config),
// then individual command-line flags. Later sources win.
type Config struct {
	// ServerEndpoint is the base URL of the sync backend.
	ServerEndpoint string

	// DatabasePath is the sqlite file holding the local store.
	DatabasePath string

	// CatalogPath optionally overrides the embedded species catalog.
	CatalogPath string

	// SyncInterval is the period between background queue drains.
	SyncInterval time.Duration
}

func (c *Config) LoadDefaults() {
	c.ServerEndpoint = "http://127.0.0.1:8080"
	c.DatabasePath = "lifelist.db"
	c.CatalogPath = ""
	c.SyncInterval = 30 * time.Second
}

// LoadConfig builds the effective configuration from all sources.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
