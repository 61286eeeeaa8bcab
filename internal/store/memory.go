package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")
)

// Backend persists session-scoped values. A session lives from Create until
// DeleteSession, or until Expire finds it idle.
type Backend interface {
	Create(ctx context.Context, sessionID string) error
	// Touch refreshes the last-seen time and reports whether the session exists.
	Touch(ctx context.Context, sessionID string) (bool, error)
	Get(ctx context.Context, sessionID, key string) ([]byte, bool, error)
	Set(ctx context.Context, sessionID, key string, value []byte) error
	DeleteSession(ctx context.Context, sessionID string) error
	// Expire removes sessions last seen before cutoff and returns their ids.
	Expire(ctx context.Context, cutoff time.Time) ([]string, error)
	Close() error
}

type sessionEntry struct {
	values   map[string][]byte
	lastSeen time.Time
}

// MemoryStore is a concurrency-safe in-memory Backend. Data is lost on
// restart, which matches browser session semantics.
type MemoryStore struct {
	mu sync.RWMutex

	// key: session id
	data map[string]*sessionEntry

	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*sessionEntry),
		now:  time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[sessionID]; ok {
		return nil
	}
	s.data[sessionID] = &sessionEntry{
		values:   make(map[string][]byte),
		lastSeen: s.now(),
	}
	return nil
}

func (s *MemoryStore) Touch(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[sessionID]
	if !ok {
		return false, nil
	}
	entry.lastSeen = s.now()
	return true, nil
}

// Get returns a copy of the stored value.
func (s *MemoryStore) Get(_ context.Context, sessionID, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[sessionID]
	if !ok {
		return nil, false, ErrNotFound
	}
	v, ok := entry.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, sessionID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[sessionID]
	if !ok {
		return ErrNotFound
	}
	entry.values[key] = append([]byte(nil), value...)
	entry.lastSeen = s.now()
	return nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, sessionID)
	return nil
}

func (s *MemoryStore) Expire(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, entry := range s.data {
		if entry.lastSeen.Before(cutoff) {
			delete(s.data, id)
			expired = append(expired, id)
		}
	}
	return expired, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Scoped is the key-value view of one session.
type Scoped struct {
	backend   Backend
	sessionID string
}

// Scope binds backend to sessionID.
func Scope(backend Backend, sessionID string) *Scoped {
	return &Scoped{backend: backend, sessionID: sessionID}
}

func (s *Scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.backend.Get(ctx, s.sessionID, key)
}

func (s *Scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.backend.Set(ctx, s.sessionID, key, value)
}
