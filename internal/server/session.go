package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"resumetailor/internal/app"
	"resumetailor/internal/config"
	"resumetailor/internal/errors"
	"resumetailor/internal/observability"
)

// session is one browser's form state plus a one-shot alert.
type session struct {
	id         string
	controller *app.Controller

	mu       sync.Mutex
	lastSeen time.Time
	alert    string
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) setAlert(msg string) {
	s.mu.Lock()
	s.alert = msg
	s.mu.Unlock()
}

// takeAlert returns the pending alert and clears it.
func (s *session) takeAlert() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.alert
	s.alert = ""
	return msg
}

func (s *session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionManager keeps one controller per browser in memory. Nothing is
// persisted; idle sessions are evicted.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*session

	newController func() *app.Controller
	cookieName    string
	idleTimeout   time.Duration

	metrics *observability.Metrics
	logger  *errors.Logger

	done chan struct{}
	once sync.Once
}

// NewSessionManager creates the manager and starts idle eviction.
func NewSessionManager(cfg config.SessionConfig, newController func() *app.Controller, metrics *observability.Metrics, logger *errors.Logger) *SessionManager {
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "resumetailor_session"
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	sm := &SessionManager{
		sessions:      make(map[string]*session),
		newController: newController,
		cookieName:    cookieName,
		idleTimeout:   idle,
		metrics:       metrics,
		logger:        logger,
		done:          make(chan struct{}),
	}
	go sm.cleanupRoutine(interval)
	return sm
}

// Get returns the caller's session, creating it and setting the cookie
// when the request carries no known id.
func (sm *SessionManager) Get(w http.ResponseWriter, r *http.Request) *session {
	now := time.Now()
	if c, err := r.Cookie(sm.cookieName); err == nil {
		sm.mu.Lock()
		sess, ok := sm.sessions[c.Value]
		sm.mu.Unlock()
		if ok {
			sess.touch(now)
			return sess
		}
	}

	sess := &session{
		id:         uuid.NewString(),
		controller: sm.newController(),
		lastSeen:   now,
	}
	sm.mu.Lock()
	sm.sessions[sess.id] = sess
	sm.mu.Unlock()
	sm.metrics.RecordSessions(r.Context(), 1)

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// Lookup returns an existing session without creating one.
func (sm *SessionManager) Lookup(r *http.Request) (*session, bool) {
	c, err := r.Cookie(sm.cookieName)
	if err != nil {
		return nil, false
	}
	sm.mu.Lock()
	sess, ok := sm.sessions[c.Value]
	sm.mu.Unlock()
	if ok {
		sess.touch(time.Now())
	}
	return sess, ok
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

func (sm *SessionManager) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sm.evictIdle(time.Now())
		case <-sm.done:
			return
		}
	}
}

// evictIdle drops sessions idle past the timeout. A session with a request
// in flight is kept.
func (sm *SessionManager) evictIdle(now time.Time) int {
	sm.mu.Lock()
	var evicted []*session
	for id, sess := range sm.sessions {
		if sess.idleSince(now) > sm.idleTimeout && !sess.controller.Busy() {
			delete(sm.sessions, id)
			evicted = append(evicted, sess)
		}
	}
	sm.mu.Unlock()

	for _, sess := range evicted {
		sess.controller.Close()
	}
	if len(evicted) > 0 {
		sm.metrics.RecordSessions(context.Background(), -int64(len(evicted)))
		if sm.logger != nil {
			sm.logger.Debug("Evicted idle sessions", "count", len(evicted))
		}
	}
	return len(evicted)
}

// Close stops eviction and releases every session.
func (sm *SessionManager) Close() {
	sm.once.Do(func() {
		close(sm.done)
		sm.mu.Lock()
		defer sm.mu.Unlock()
		for id, sess := range sm.sessions {
			sess.controller.Close()
			delete(sm.sessions, id)
		}
	})
}
