package auth_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tss1979/timetracker/internal/auth"
	"github.com/tss1979/timetracker/internal/logging"
	"github.com/tss1979/timetracker/internal/metrics"
	"github.com/tss1979/timetracker/internal/middleware"
	"github.com/tss1979/timetracker/internal/session"
	"github.com/tss1979/timetracker/internal/store/gormstore"
	storetest "github.com/tss1979/timetracker/internal/testutil"
	"github.com/tss1979/timetracker/internal/utils"
)

type authEnv struct {
	server  *httptest.Server
	store   *gormstore.Store
	metrics *metrics.Metrics
}

// newAuthEnv mounts the auth routes behind the session middleware, plus a
// /whoami probe that reports the resolved username.
func newAuthEnv(t *testing.T, limit func(http.Handler) http.Handler) *authEnv {
	t.Helper()

	st := storetest.NewStore(t)
	m := metrics.New()
	logger := logging.Discard()
	sessions := session.NewManager(st, st, session.Options{Logger: logger})
	h := auth.NewHandler(auth.NewAccounts(st, bcrypt.MinCost), sessions, m, logger, false)

	r := chi.NewRouter()
	r.Use(middleware.SessionMiddleware(sessions, logger))
	r.Group(auth.SetupRoutes(h, limit))
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		user, ok := utils.GetUserFromContext(r.Context())
		if !ok {
			http.Error(w, "anonymous", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(user.Username))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &authEnv{server: srv, store: st, metrics: m}
}

// newClient keeps cookies but does not follow redirects.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postForm(t *testing.T, c *http.Client, u string, username, password string) *http.Response {
	t.Helper()
	resp, err := c.PostForm(u, url.Values{"username": {username}, "password": {password}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp
}

func whoami(t *testing.T, c *http.Client, base string) (int, string) {
	t.Helper()
	resp, err := c.Get(base + "/whoami")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, strings.TrimSpace(string(body))
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestSignupSetsSessionAndRedirects(t *testing.T) {
	env := newAuthEnv(t, nil)
	c := newClient(t)

	resp := postForm(t, c, env.server.URL+"/signup", "alice", "pw1")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Secure)

	status, name := whoami(t, c, env.server.URL)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", name)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Signups.WithLabelValues("created")))
}

func TestSignupMissingCredentials(t *testing.T) {
	env := newAuthEnv(t, nil)
	c := newClient(t)

	resp := postForm(t, c, env.server.URL+"/signup", "alice", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/?authError=missing", resp.Header.Get("Location"))
	assert.Nil(t, sessionCookie(resp))
}

func TestSignupExistingUsernameLogsInAsExistingUser(t *testing.T) {
	env := newAuthEnv(t, nil)

	postForm(t, newClient(t), env.server.URL+"/signup", "alice", "pw1")

	c := newClient(t)
	resp := postForm(t, c, env.server.URL+"/signup", "alice", "anything")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	require.NotNil(t, sessionCookie(resp))

	_, name := whoami(t, c, env.server.URL)
	assert.Equal(t, "alice", name)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Signups.WithLabelValues("existing")))
}

func TestLogin(t *testing.T) {
	env := newAuthEnv(t, nil)
	postForm(t, newClient(t), env.server.URL+"/signup", "alice", "pw1")

	tests := []struct {
		name       string
		username   string
		password   string
		wantLoc    string
		wantCookie bool
	}{
		{"valid", "alice", "pw1", "/", true},
		{"wrong password", "alice", "nope", "/?authError=true", false},
		{"unknown user", "mallory", "pw1", "/?authError=true", false},
		{"empty password", "alice", "", "/?authError=true", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postForm(t, newClient(t), env.server.URL+"/login", tt.username, tt.password)
			assert.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, tt.wantLoc, resp.Header.Get("Location"))
			assert.Equal(t, tt.wantCookie, sessionCookie(resp) != nil)
		})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.LoginAttempts.WithLabelValues("success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.LoginAttempts.WithLabelValues("invalid")))
}

func TestLogoutDeletesSession(t *testing.T) {
	env := newAuthEnv(t, nil)
	c := newClient(t)
	resp := postForm(t, c, env.server.URL+"/signup", "alice", "pw1")
	token := sessionCookie(resp).Value

	resp, err := c.Get(env.server.URL + "/logout")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	cleared := sessionCookie(resp)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	// Replaying the old token must no longer authenticate.
	replay := newClient(t)
	u, _ := url.Parse(env.server.URL)
	replay.Jar.SetCookies(u, []*http.Cookie{{Name: middleware.SessionCookieName, Value: token}})
	status, _ := whoami(t, replay, env.server.URL)
	assert.Equal(t, http.StatusUnauthorized, status)

	_, err = env.store.FindSession(context.Background(), token)
	assert.Error(t, err)
}

func TestLogoutWithoutSessionRedirects(t *testing.T) {
	env := newAuthEnv(t, nil)

	resp, err := newClient(t).Get(env.server.URL + "/logout")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Nil(t, sessionCookie(resp))
}

func TestCredentialRoutesAreRateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(0.001, 2)
	env := newAuthEnv(t, limiter.Middleware)
	c := newClient(t)

	for i := 0; i < 2; i++ {
		resp := postForm(t, c, env.server.URL+"/login", "alice", "pw")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
	}
	resp := postForm(t, c, env.server.URL+"/login", "alice", "pw")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Logout is not limited.
	r, err := c.Get(env.server.URL + "/logout")
	require.NoError(t, err)
	_ = r.Body.Close()
	assert.Equal(t, http.StatusFound, r.StatusCode)
}
