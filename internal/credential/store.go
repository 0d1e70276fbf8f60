// Package credential holds the Gemini API key shared by every request.
package credential

import (
	"sync"
	"time"
)

// Source records where the current key came from.
type Source string

const (
	SourceNone    Source = "none"
	SourceEnvFile Source = "env-file"
	SourceEnv     Source = "environment"
	SourceConfig  Source = "config"
	SourceVault   Source = "vault"
)

// Store is a concurrency-safe holder for the API key. Readers always see
// either the old or the new key, never a mix.
type Store struct {
	mu        sync.RWMutex
	key       string
	source    Source
	updatedAt time.Time
	listeners []func(Source)
}

// NewStore returns a Store seeded with key. An empty key leaves the store
// unconfigured.
func NewStore(key string, source Source) *Store {
	s := &Store{source: SourceNone}
	if key != "" {
		s.key = key
		s.source = source
		s.updatedAt = time.Now()
	}
	return s
}

// Get returns the current key, which may be empty.
func (s *Store) Get() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// Source returns where the current key came from.
func (s *Store) Source() Source {
	if s == nil {
		return SourceNone
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Configured reports whether a non-empty key is present.
func (s *Store) Configured() bool {
	return s.Get() != ""
}

// Set replaces the key and reports whether it changed. Listeners run after
// the lock is released.
func (s *Store) Set(key string, source Source) bool {
	s.mu.Lock()
	if key == s.key {
		s.mu.Unlock()
		return false
	}
	s.key = key
	s.source = source
	if key == "" {
		s.source = SourceNone
	}
	s.updatedAt = time.Now()
	listeners := append([]func(Source){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(source)
	}
	return true
}

// OnChange registers fn to run after every key change.
func (s *Store) OnChange(fn func(Source)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Status describes the store for health output. The key itself is never
// included.
func (s *Store) Status() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := map[string]any{
		"configured": s.key != "",
		"source":     string(s.source),
	}
	if !s.updatedAt.IsZero() {
		status["updated_at"] = s.updatedAt.UTC().Format(time.RFC3339)
	}
	return status
}
