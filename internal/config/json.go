package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/lifelist/internal/flagx"
	"github.com/dmitrijs2005/lifelist/internal/timex"
)

// JsonConfig is the file shape. Intervals accept "30s" style strings or
// integer nanoseconds via timex.Duration.
type JsonConfig struct {
	ServerEndpoint string         `json:"server_endpoint"`
	DatabasePath   string         `json:"database_path"`
	CatalogPath    string         `json:"catalog_path"`
	SyncInterval   timex.Duration `json:"sync_interval"`
}

// parseJson overlays cfg with values from the file named by -c/-config.
// Only fields present in the file override; absent fields keep their
// current value.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpoint != "" {
		cfg.ServerEndpoint = jc.ServerEndpoint
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.CatalogPath != "" {
		cfg.CatalogPath = jc.CatalogPath
	}
	if jc.SyncInterval.Duration > 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
}
