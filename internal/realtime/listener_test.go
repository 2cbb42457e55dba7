package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/lifelist/internal/logging"
	"github.com/dmitrijs2005/lifelist/internal/models"
	"github.com/dmitrijs2005/lifelist/internal/remote"
)

type recordingStore struct {
	events chan appliedEvent
}

type appliedEvent struct {
	kind models.RecordKind
	op   models.Operation
	raw  string
}

func (r *recordingStore) ApplyRemote(ctx context.Context, kind models.RecordKind, op models.Operation, raw json.RawMessage) (bool, error) {
	r.events <- appliedEvent{kind: kind, op: op, raw: string(raw)}
	return true, nil
}

type recordingSyncer struct {
	calls     chan struct{}
	downloads chan string
}

func (r *recordingSyncer) SyncAll(ctx context.Context) error {
	select {
	case r.calls <- struct{}{}:
	default:
	}
	return nil
}

func (r *recordingSyncer) DownloadAll(ctx context.Context, owner string) error {
	select {
	case r.downloads <- owner:
	default:
	}
	return nil
}

func TestHandleFrame(t *testing.T) {
	store := &recordingStore{events: make(chan appliedEvent, 4)}
	l := NewListener("", nil, store, nil, logging.NewNopLogger())
	ctx := context.Background()

	l.handleFrame(ctx, []byte(`{"kind":"item","op":"update","record":{"id":"i1"}}`))
	require.Len(t, store.events, 1)
	ev := <-store.events
	assert.Equal(t, models.KindItem, ev.kind)
	assert.Equal(t, models.OpUpdate, ev.op)
	assert.JSONEq(t, `{"id":"i1"}`, ev.raw)

	l.handleFrame(ctx, []byte(`not json`))
	l.handleFrame(ctx, []byte(`{"kind":"item"}`))
	assert.Empty(t, store.events, "bad frames are dropped, not applied")
}

func TestConnectMergesEventsAndRunsCatchUp(t *testing.T) {
	frame := []byte(`{"kind":"collection","op":"create","record":{"id":"c9","title":"From elsewhere"}}`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/realtime", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("owner"))
		assert.NotEmpty(t, r.Header.Get("Authorization"))

		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)
		defer conn.Close(websocket.StatusNormalClosure, "")

		require.NoError(t, conn.Write(r.Context(), websocket.MessageText, frame))
		// hold the connection open until the client goes away
		_, _, _ = conn.Read(r.Context())
	}))
	defer srv.Close()

	client := remote.NewClient(srv.URL, logging.NewNopLogger())
	client.SetSession(&remote.Session{UserID: "u1", AccessToken: "tok", RefreshToken: "r"})

	store := &recordingStore{events: make(chan appliedEvent, 1)}
	syncer := &recordingSyncer{calls: make(chan struct{}, 1), downloads: make(chan string, 1)}
	l := NewListener(srv.URL, client, store, syncer, logging.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connected := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.connectAndListen(ctx, func() { close(connected) })
	}()

	select {
	case <-connected:
	case <-ctx.Done():
		t.Fatal("dial never completed")
	}

	select {
	case owner := <-syncer.downloads:
		assert.Equal(t, "u1", owner, "missed events are pulled for the session owner")
	case <-ctx.Done():
		t.Fatal("catch-up download never ran")
	}

	select {
	case <-syncer.calls:
	case <-ctx.Done():
		t.Fatal("catch-up sync never ran")
	}

	select {
	case ev := <-store.events:
		assert.Equal(t, models.KindCollection, ev.kind)
		assert.Equal(t, models.OpCreate, ev.op)
	case <-ctx.Done():
		t.Fatal("event never merged")
	}

	cancel()
	<-done
}
