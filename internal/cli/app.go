// Package cli wires the lifelist client together and exposes it as a set of
// cobra commands.
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/lifelist/internal/catalog"
	"github.com/dmitrijs2005/lifelist/internal/config"
	"github.com/dmitrijs2005/lifelist/internal/logging"
	"github.com/dmitrijs2005/lifelist/internal/realtime"
	"github.com/dmitrijs2005/lifelist/internal/remote"
	"github.com/dmitrijs2005/lifelist/internal/repositories/metadata"
	"github.com/dmitrijs2005/lifelist/internal/rules"
	"github.com/dmitrijs2005/lifelist/internal/store"
	"github.com/dmitrijs2005/lifelist/internal/syncer"
)

const metaSession = "session"

// App holds the wired client: local store, rule engine, backend client and
// the sync machinery.
type App struct {
	cfg *config.Config
	log logging.Logger

	db       *sql.DB
	store    *store.Store
	client   *remote.Client
	engine   *rules.Engine
	agent    *syncer.Agent
	listener *realtime.Listener
	catalog  *catalog.Index
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	db, err := store.OpenDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	st, err := store.New(ctx, db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	idx, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("loading species catalog: %w", err)
	}

	client := remote.NewClient(cfg.ServerEndpoint, log)
	agent := syncer.NewAgent(st, client, log, syncer.Config{Interval: cfg.SyncInterval})

	app := &App{
		cfg:      cfg,
		log:      log,
		db:       db,
		store:    st,
		client:   client,
		engine:   rules.NewEngine(st, idx, log),
		agent:    agent,
		listener: realtime.NewListener(cfg.ServerEndpoint, client, st, agent, log),
		catalog:  idx,
	}

	if err := app.restoreSession(ctx); err != nil {
		log.Warn(ctx, "could not restore session", "error", err)
	}
	return app, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

// restoreSession loads the credentials persisted by the last login.
func (a *App) restoreSession(ctx context.Context) error {
	raw, err := metadata.NewSQLiteRepository(a.db).Get(ctx, metaSession)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	var s remote.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	a.client.SetSession(&s)
	return nil
}

func (a *App) persistSession(ctx context.Context, s *remote.Session) error {
	repo := metadata.NewSQLiteRepository(a.db)
	if s == nil {
		return repo.Delete(ctx, metaSession)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return repo.Set(ctx, metaSession, raw)
}
