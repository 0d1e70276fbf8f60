package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumetailor/internal/app"
	"resumetailor/internal/config"
	"resumetailor/internal/credential"
	"resumetailor/internal/extract"
	"resumetailor/internal/observability"
)

func newTestSessionManager(t *testing.T, cfg config.SessionConfig) *SessionManager {
	t.Helper()
	logger := newTestLogger()
	pipeline := app.NewPipeline(&mockProvider{}, credential.NewStore("", credential.SourceNone), logger)
	extractor := extract.New(1024, logger)

	metrics := (*observability.ObservabilityManager)(nil).Metrics()
	sm := NewSessionManager(cfg, func() *app.Controller {
		return app.NewController(pipeline, extractor, metrics)
	}, metrics, logger)
	t.Cleanup(sm.Close)
	return sm
}

func TestSessionManagerGet(t *testing.T) {
	sm := newTestSessionManager(t, config.SessionConfig{CookieName: "sid", CleanupInterval: time.Hour})

	rec := httptest.NewRecorder()
	first := sm.Get(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, first)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "sid", cookie.Name)
	assert.Equal(t, first.id, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Secure)

	t.Run("known cookie returns the same session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()

		again := sm.Get(rec, req)
		assert.Same(t, first, again)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("unknown cookie starts a new session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "forged"})
		other := sm.Get(httptest.NewRecorder(), req)
		assert.NotSame(t, first, other)
		assert.NotEqual(t, "forged", other.id)
	})

	assert.Equal(t, 2, sm.Count())
}

func TestSessionManagerLookup(t *testing.T) {
	sm := newTestSessionManager(t, config.SessionConfig{CleanupInterval: time.Hour})

	_, ok := sm.Lookup(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Equal(t, 0, sm.Count(), "lookup never creates sessions")

	rec := httptest.NewRecorder()
	sess := sm.Get(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	found, ok := sm.Lookup(req)
	require.True(t, ok)
	assert.Same(t, sess, found)
}

func TestSessionAlertIsOneShot(t *testing.T) {
	sess := &session{}
	assert.Empty(t, sess.takeAlert())

	sess.setAlert("first")
	sess.setAlert("second")
	assert.Equal(t, "second", sess.takeAlert())
	assert.Empty(t, sess.takeAlert())
}

func TestSessionEviction(t *testing.T) {
	sm := newTestSessionManager(t, config.SessionConfig{IdleTimeout: time.Minute, CleanupInterval: time.Hour})

	stale := sm.Get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	fresh := sm.Get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	now := time.Now()
	stale.touch(now.Add(-2 * time.Minute))
	fresh.touch(now)

	assert.Equal(t, 1, sm.evictIdle(now))
	assert.Equal(t, 1, sm.Count())
	assert.Equal(t, 0, sm.evictIdle(now))

	sm.Close()
	assert.Equal(t, 0, sm.Count())
	sm.Close()
}

func TestSessionSecureCookieOverTLS(t *testing.T) {
	sm := newTestSessionManager(t, config.SessionConfig{CleanupInterval: time.Hour})

	req := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	require.NotNil(t, req.TLS)
	rec := httptest.NewRecorder()
	sm.Get(rec, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, "resumetailor_session", cookies[0].Name)
}
