// Package realtime keeps the local store hot while the app is online: it
// holds a websocket to the backend, merges change events into the store and
// triggers a full sync pass after every (re)connect to cover the gap.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/tidwall/gjson"

	"github.com/dmitrijs2005/lifelist/internal/logging"
	"github.com/dmitrijs2005/lifelist/internal/models"
	"github.com/dmitrijs2005/lifelist/internal/remote"
)

// Store merges remote change events.
type Store interface {
	ApplyRemote(ctx context.Context, kind models.RecordKind, op models.Operation, raw json.RawMessage) (bool, error)
}

// Syncer runs a catch-up pass after a reconnect: pulling covers events the
// server emitted while we were away, pushing flushes local edits made in
// the meantime.
type Syncer interface {
	DownloadAll(ctx context.Context, owner string) error
	SyncAll(ctx context.Context) error
}

// Listener maintains the event subscription for the active session.
type Listener struct {
	baseURL string
	client  *remote.Client
	store   Store
	syncer  Syncer
	log     logging.Logger

	// dial is swapped by tests
	dial func(ctx context.Context, url string, opts *websocket.DialOptions) (*websocket.Conn, *http.Response, error)
}

func NewListener(baseURL string, client *remote.Client, store Store, syncer Syncer, log logging.Logger) *Listener {
	return &Listener{
		baseURL: baseURL,
		client:  client,
		store:   store,
		syncer:  syncer,
		log:     log,
		dial:    websocket.Dial,
	}
}

// Run connects and reconnects until the context is cancelled. Each
// successful connection resets the reconnect backoff. Returns when the
// context ends or the session is gone.
func (l *Listener) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = time.Minute
	bo.MaxElapsedTime = 0

	operation := func() error {
		// a drop after a successful dial starts a fresh backoff series
		if err := l.connectAndListen(ctx, bo.Reset); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			l.log.Warn(ctx, "realtime connection lost", "error", err)
			return err
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}

// connectAndListen holds one connection for its whole lifetime. connected
// is invoked once the dial succeeds.
func (l *Listener) connectAndListen(ctx context.Context, connected func()) error {
	session := l.client.Session()
	if session == nil {
		return backoff.Permanent(errors.New("no session"))
	}

	endpoint := fmt.Sprintf("%s/api/v1/realtime?owner=%s", l.baseURL, url.QueryEscape(session.UserID))
	conn, _, err := l.dial(ctx, endpoint, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Bearer " + session.AccessToken}},
	})
	if err != nil {
		return fmt.Errorf("dialing: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	connected()
	l.log.Info(ctx, "realtime connected", "owner", session.UserID)

	// everything that happened while we were away: missed events first,
	// then the local backlog
	if err := l.syncer.DownloadAll(ctx, session.UserID); err != nil {
		l.log.Warn(ctx, "catch-up download failed", "error", err)
	}
	if err := l.syncer.SyncAll(ctx); err != nil {
		l.log.Warn(ctx, "catch-up sync failed", "error", err)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("reading: %w", err)
		}
		l.handleFrame(ctx, data)
	}
}

// handleFrame merges one change event. Malformed frames are logged and
// skipped; the stream must survive a bad event.
func (l *Listener) handleFrame(ctx context.Context, data []byte) {
	if !gjson.ValidBytes(data) {
		l.log.Warn(ctx, "dropping malformed realtime frame")
		return
	}

	frame := gjson.ParseBytes(data)
	kind := models.RecordKind(frame.Get("kind").String())
	op := models.Operation(frame.Get("op").String())
	record := frame.Get("record")

	if kind == "" || op == "" || !record.Exists() {
		l.log.Warn(ctx, "dropping incomplete realtime frame", "kind", kind, "op", op)
		return
	}

	applied, err := l.store.ApplyRemote(ctx, kind, op, json.RawMessage(record.Raw))
	if err != nil {
		l.log.Error(ctx, "merging realtime event failed", "kind", kind, "op", op, "error", err)
		return
	}
	l.log.Debug(ctx, "realtime event", "kind", kind, "op", op, "applied", applied)
}
