package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tss1979/timetracker/internal/auth"
	"github.com/tss1979/timetracker/internal/logging"
	"github.com/tss1979/timetracker/internal/metrics"
	"github.com/tss1979/timetracker/internal/models"
	"github.com/tss1979/timetracker/internal/server"
	"github.com/tss1979/timetracker/internal/session"
	"github.com/tss1979/timetracker/internal/store"
	"github.com/tss1979/timetracker/internal/testutil"
	"github.com/tss1979/timetracker/internal/timers"
)

type app struct {
	url   string
	clock *clockwork.FakeClock
}

func newApp(t *testing.T, gw store.Gateway) *app {
	t.Helper()
	if gw == nil {
		gw = testutil.NewStore(t)
	}
	logger := logging.Discard()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	r, err := server.NewRouter(server.Deps{
		Store:    gw,
		Sessions: session.NewManager(gw, gw, session.Options{Clock: clock, Logger: logger}),
		Accounts: auth.NewAccounts(gw, bcrypt.MinCost),
		Timers:   timers.NewService(gw, clock),
		Metrics:  metrics.New(),
		Logger:   logger,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &app{url: srv.URL, clock: clock}
}

type browser struct {
	t    *testing.T
	base string
	c    *http.Client
}

func (a *app) newBrowser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: a.url, c: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *browser) form(path, username, password string) *http.Response {
	b.t.Helper()
	resp, err := b.c.PostForm(b.base+path, url.Values{"username": {username}, "password": {password}})
	require.NoError(b.t, err)
	_ = resp.Body.Close()
	return resp
}

func (b *browser) do(method, path, body string) (*http.Response, string) {
	b.t.Helper()
	req, err := http.NewRequest(method, b.base+path, strings.NewReader(body))
	require.NoError(b.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := b.c.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, string(data)
}

func (b *browser) timers(active string) []models.Timer {
	b.t.Helper()
	resp, body := b.do(http.MethodGet, "/api/timers?isActive="+active, "")
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
	var out []models.Timer
	require.NoError(b.t, json.Unmarshal([]byte(body), &out))
	return out
}

func TestTimerLifecycle(t *testing.T) {
	a := newApp(t, nil)
	b := a.newBrowser(t)

	resp := b.form("/signup", "alice", "pw1")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	// Start over with a fresh session via login.
	b = a.newBrowser(t)
	resp = b.form("/login", "alice", "pw1")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))

	_, page := b.do(http.MethodGet, "/", "")
	assert.Contains(t, page, "alice")

	resp, body := b.do(http.MethodPost, "/api/timers", `{"description":"write report"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var id string
	require.NoError(t, json.Unmarshal([]byte(body), &id))

	active := b.timers("true")
	require.Len(t, active, 1)
	assert.Equal(t, "write report", active[0].Description)

	a.clock.Advance(42 * time.Second)
	resp, _ = b.do(http.MethodPost, "/api/timers/"+id+"/stop", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Empty(t, b.timers("true"))
	stopped := b.timers("false")
	require.Len(t, stopped, 1)
	assert.Equal(t, id, stopped[0].ID)
	require.NotNil(t, stopped[0].Duration)
	assert.Equal(t, int64(42_000), *stopped[0].Duration)

	resp, _ = b.do(http.MethodPost, "/api/timers/"+id+"/stop", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSignupWithExistingUsernameReturnsSameAccount(t *testing.T) {
	a := newApp(t, nil)

	first := a.newBrowser(t)
	first.form("/signup", "alice", "pw1")
	first.do(http.MethodPost, "/api/timers", `{"description":"mine"}`)

	second := a.newBrowser(t)
	resp := second.form("/signup", "alice", "whatever")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	got := second.timers("true")
	require.Len(t, got, 1)
	assert.Equal(t, "mine", got[0].Description)
}

func TestBadLoginShowsError(t *testing.T) {
	a := newApp(t, nil)
	a.newBrowser(t).form("/signup", "alice", "pw1")

	b := a.newBrowser(t)
	resp := b.form("/login", "alice", "wrong")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc := resp.Header.Get("Location")
	assert.Equal(t, "/?authError=true", loc)

	_, page := b.do(http.MethodGet, loc, "")
	assert.Contains(t, page, "Wrong username or password")

	resp, _ = b.do(http.MethodGet, "/api/timers?isActive=true", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLogoutEndsAPIAccess(t *testing.T) {
	a := newApp(t, nil)
	b := a.newBrowser(t)
	b.form("/signup", "alice", "pw1")

	resp, _ := b.do(http.MethodGet, "/api/timers?isActive=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = b.do(http.MethodGet, "/logout", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp, _ = b.do(http.MethodGet, "/api/timers?isActive=true", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUsersCannotSeeOrStopEachOthersTimers(t *testing.T) {
	a := newApp(t, nil)
	alice := a.newBrowser(t)
	alice.form("/signup", "alice", "pw1")
	bob := a.newBrowser(t)
	bob.form("/signup", "bob", "pw2")

	_, body := alice.do(http.MethodPost, "/api/timers", `{"description":"hers"}`)
	var id string
	require.NoError(t, json.Unmarshal([]byte(body), &id))

	assert.Empty(t, bob.timers("true"))
	resp, _ := bob.do(http.MethodPost, "/api/timers/"+id+"/stop", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Len(t, alice.timers("true"), 1)
}

func TestOperationalEndpoints(t *testing.T) {
	a := newApp(t, nil)
	b := a.newBrowser(t)

	resp, body := b.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)

	resp, body = b.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "http_requests_total")

	resp, _ = b.do(http.MethodGet, "/static/style.css", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

// downStore fails every ping.
type downStore struct {
	store.Gateway
}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthzReportsUnavailableStore(t *testing.T) {
	a := newApp(t, downStore{Gateway: testutil.NewStore(t)})

	resp, body := a.newBrowser(t).do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "connection refused")
}
