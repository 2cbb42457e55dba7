package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/lifelist/internal/logging"
	"github.com/dmitrijs2005/lifelist/internal/models"
	"github.com/dmitrijs2005/lifelist/internal/shared"
)

// unsignedToken builds an unverified JWT with the given expiry. The client
// only inspects claims, it never verifies signatures.
func unsignedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	claims := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"exp":%d}`, exp.Unix())))
	return header + "." + claims + "."
}

func fastClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil
	return NewClient(baseURL, logging.NewNopLogger(), WithHTTPClient(rc))
}

func validSession(t *testing.T) *Session {
	return &Session{
		UserID:       "u1",
		AccessToken:  unsignedToken(t, time.Now().Add(time.Hour)),
		RefreshToken: "refresh-1",
	}
}

func TestLogin(t *testing.T) {
	token := unsignedToken(t, time.Now().Add(time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/session", r.URL.Path)

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["password"] != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(Session{UserID: "u1", AccessToken: token, RefreshToken: "r1"})
	}))
	defer srv.Close()

	c := fastClient(srv.URL)

	_, err := c.Login(context.Background(), "a@b.c", "wrong")
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
	assert.Nil(t, c.Session())

	s, err := c.Login(context.Background(), "a@b.c", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, s, c.Session())
}

func TestPushCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/item", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("Authorization"))

		var rec map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		rec["updated_at"] = "2025-06-01T12:00:00Z"
		_ = json.NewEncoder(w).Encode(rec)
	}))
	defer srv.Close()

	c := fastClient(srv.URL)
	c.SetSession(validSession(t))

	res, err := c.Push(context.Background(), models.KindItem, models.OpCreate, "i1",
		json.RawMessage(`{"id":"i1","species_id":"sp-robin"}`), false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), res.ServerTime)
}

func TestPushConflictReturnsRemoteCopy(t *testing.T) {
	remoteRow := `{"id":"c1","title":"Server title","updated_at":"2025-06-01T14:00:00Z"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("force") == "1" {
			_, _ = w.Write([]byte(`{"id":"c1","updated_at":"2025-06-01T15:00:00Z"}`))
			return
		}
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(remoteRow))
	}))
	defer srv.Close()

	c := fastClient(srv.URL)
	c.SetSession(validSession(t))

	res, err := c.Push(context.Background(), models.KindCollection, models.OpUpdate, "c1",
		json.RawMessage(`{"id":"c1","title":"Local title"}`), false)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.NotNil(t, res)
	assert.JSONEq(t, remoteRow, string(res.Remote))

	res, err = c.Push(context.Background(), models.KindCollection, models.OpUpdate, "c1",
		json.RawMessage(`{"id":"c1","title":"Local title"}`), true)
	require.NoError(t, err)
	assert.False(t, res.ServerTime.IsZero())
}

func TestAuthedRefreshesOn401(t *testing.T) {
	var refreshes atomic.Int32
	freshToken := unsignedToken(t, time.Now().Add(time.Hour))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/session/refresh":
			refreshes.Add(1)
			_ = json.NewEncoder(w).Encode(Session{AccessToken: freshToken, RefreshToken: "r2"})
		case "/api/v1/collection":
			if r.Header.Get("Authorization") != "Bearer "+freshToken {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := fastClient(srv.URL)
	c.SetSession(&Session{
		UserID:       "u1",
		AccessToken:  unsignedToken(t, time.Now().Add(30*time.Minute)), // valid but rejected
		RefreshToken: "r1",
	})

	rows, err := c.Pull(context.Background(), models.KindCollection, "u1")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, "u1", c.Session().UserID, "user id carried over from old session")
}

func TestExpiredTokenRefreshedBeforeRequest(t *testing.T) {
	var refreshes atomic.Int32
	freshToken := unsignedToken(t, time.Now().Add(time.Hour))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/session/refresh":
			refreshes.Add(1)
			_ = json.NewEncoder(w).Encode(Session{AccessToken: freshToken, RefreshToken: "r2"})
		default:
			require.Equal(t, "Bearer "+freshToken, r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	c := fastClient(srv.URL)
	c.SetSession(&Session{
		UserID:       "u1",
		AccessToken:  unsignedToken(t, time.Now().Add(-time.Minute)),
		RefreshToken: "r1",
	})

	_, err := c.Pull(context.Background(), models.KindItem, "u1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestRejectedRefreshClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := fastClient(srv.URL)
	c.SetSession(&Session{
		UserID:       "u1",
		AccessToken:  unsignedToken(t, time.Now().Add(-time.Minute)),
		RefreshToken: "stale",
	})

	_, err := c.Pull(context.Background(), models.KindItem, "u1")
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
	assert.Nil(t, c.Session())
}

func TestUnreachableServer(t *testing.T) {
	c := fastClient("http://127.0.0.1:1")
	c.SetSession(validSession(t))

	_, err := c.Pull(context.Background(), models.KindItem, "u1")
	assert.ErrorIs(t, err, shared.ErrUnavailable)
}

func TestDeleteNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := fastClient(srv.URL)
	c.SetSession(validSession(t))

	_, err := c.Push(context.Background(), models.KindItem, models.OpDelete, "gone", nil, false)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
