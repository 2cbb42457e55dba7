package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/lifelist/internal/flagx"
)

// parseFlags overlays cfg with the flags this package owns:
//
//	-a string   base URL of the sync backend
//	-d string   path to the local sqlite database
//	-s int      sync interval in seconds
//	-catalog string  path to a species catalog file
//
// Args are filtered through flagx.FilterArgs so the CLI's own flags pass
// through untouched.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-catalog"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpoint, "a", cfg.ServerEndpoint, "base URL of the sync backend")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local database")
	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "path to a species catalog file")
	syncInterval := fs.Int("s", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
}
