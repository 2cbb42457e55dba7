// Package remote implements the HTTP client half of the backend contract:
// session management, record pushes with conflict reporting, and owner-scoped
// pulls. Transport-level retries live here; operation-level backoff is the
// sync agent's job.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/dmitrijs2005/lifelist/internal/logging"
	"github.com/dmitrijs2005/lifelist/internal/models"
	"github.com/dmitrijs2005/lifelist/internal/shared"
)

const (
	apiPrefix = "/api/v1"

	// refresh the access token this long before it actually expires
	expirySkew = 30 * time.Second
)

// PushResult is the outcome of a successful or conflicted push.
type PushResult struct {
	// ServerTime is the authoritative update time assigned by the server.
	ServerTime time.Time

	// Remote holds the server's current copy of the record when the push
	// was rejected with a conflict.
	Remote json.RawMessage
}

// Client talks to the sync backend. Safe for concurrent use.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	log     logging.Logger

	session *sessionBox
	now     func() time.Time
}

type Option func(*Client)

// WithHTTPClient swaps the underlying retrying client. Tests use it to
// shorten retry waits.
func WithHTTPClient(hc *retryablehttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

func NewClient(baseURL string, log logging.Logger, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil

	c := &Client{
		http:    rc,
		baseURL: baseURL,
		log:     log,
		session: &sessionBox{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the current credentials, nil when logged out.
func (c *Client) Session() *Session { return c.session.get() }

// SetSession restores credentials persisted from a previous run.
func (c *Client) SetSession(s *Session) { c.session.set(s) }

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, apiPrefix+"/session", "", body)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: invalid credentials", shared.ErrUnauthorized)
	}
	if err := statusErr(resp); err != nil {
		return nil, err
	}

	var s Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: decoding session: %v", shared.ErrServer, err)
	}
	c.session.set(&s)
	return &s, nil
}

// Logout drops the session client-side.
func (c *Client) Logout() { c.session.set(nil) }

// Push sends one record operation. A conflict comes back as
// shared.ErrConflict with the server's copy in the result; force retries
// override the server's last-write-wins check.
func (c *Client) Push(ctx context.Context, kind models.RecordKind, op models.Operation, recordID string, record json.RawMessage, force bool) (*PushResult, error) {
	var method, path string
	switch op {
	case models.OpCreate:
		method, path = http.MethodPost, fmt.Sprintf("%s/%s", apiPrefix, kind)
	case models.OpUpdate:
		method, path = http.MethodPatch, fmt.Sprintf("%s/%s/%s", apiPrefix, kind, url.PathEscape(recordID))
	case models.OpDelete:
		method, path = http.MethodDelete, fmt.Sprintf("%s/%s/%s", apiPrefix, kind, url.PathEscape(recordID))
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
	if force {
		path += "?force=1"
	}

	resp, err := c.authed(ctx, method, path, record)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusConflict:
		remote, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: reading conflict body: %v", shared.ErrServer, err)
		}
		return &PushResult{Remote: remote}, shared.ErrConflict
	case resp.StatusCode == http.StatusNotFound:
		return nil, shared.ErrNotFound
	}
	if err := statusErr(resp); err != nil {
		return nil, err
	}

	if op == models.OpDelete {
		return &PushResult{}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", shared.ErrServer, err)
	}
	res := &PushResult{}
	if ts := gjson.GetBytes(body, "updated_at"); ts.Exists() {
		if t, err := time.Parse(time.RFC3339Nano, ts.String()); err == nil {
			res.ServerTime = t
		}
	}
	return res, nil
}

// Pull fetches the owner's current records of one kind, for the initial
// download after login.
func (c *Client) Pull(ctx context.Context, kind models.RecordKind, owner string) ([]json.RawMessage, error) {
	path := fmt.Sprintf("%s/%s?owner=%s", apiPrefix, kind, url.QueryEscape(owner))

	resp, err := c.authed(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if err := statusErr(resp); err != nil {
		return nil, err
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: decoding %s list: %v", shared.ErrServer, kind, err)
	}
	return rows, nil
}

// authed performs a request with the bearer token, refreshing the session
// once when the token is stale or rejected.
func (c *Client) authed(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	s := c.session.get()
	if s == nil {
		return nil, fmt.Errorf("%w: no session", shared.ErrUnauthorized)
	}

	if s.accessExpired(c.now(), expirySkew) {
		if err := c.refresh(ctx); err != nil {
			return nil, err
		}
		s = c.session.get()
	}

	resp, err := c.do(ctx, method, path, s.AccessToken, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	return c.do(ctx, method, path, c.session.get().AccessToken, body)
}

// refresh trades the refresh token for a new session. A rejected refresh
// token surfaces as shared.ErrUnauthorized and requires a new login.
func (c *Client) refresh(ctx context.Context) error {
	s := c.session.get()
	if s == nil || s.RefreshToken == "" {
		return fmt.Errorf("%w: no refresh token", shared.ErrUnauthorized)
	}

	body, err := json.Marshal(map[string]string{"refresh_token": s.RefreshToken})
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, apiPrefix+"/session/refresh", "", body)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusUnauthorized {
		c.session.set(nil)
		return fmt.Errorf("%w: session expired", shared.ErrUnauthorized)
	}
	if err := statusErr(resp); err != nil {
		return err
	}

	var next Session
	if err := json.NewDecoder(resp.Body).Decode(&next); err != nil {
		return fmt.Errorf("%w: decoding session: %v", shared.ErrServer, err)
	}
	if next.UserID == "" {
		next.UserID = s.UserID
	}
	c.session.set(&next)
	c.log.Debug(ctx, "session refreshed", "user", next.UserID)
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnavailable, err)
	}
	return resp, nil
}

// statusErr maps a non-2xx response to a sentinel, pulling the server's
// error message out of the body when present.
func statusErr(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := resp.Status
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
		if m := gjson.GetBytes(body, "error"); m.Exists() {
			msg = m.String()
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrUnauthorized, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", shared.ErrServer, msg)
	default:
		return fmt.Errorf("%w: %s", shared.ErrServer, msg)
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
