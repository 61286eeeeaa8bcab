package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-widget/internal/store"
	"github.com/i474232898/weather-widget/internal/weather"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Manager owns the live widget of every browser session.
type Manager struct {
	backend    store.Backend
	forecaster weather.Forecaster
	geocoder   weather.Geocoder
	ttl        time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	widgets map[string]*weather.Widget
}

// NewManager creates a Manager. Sessions idle for longer than ttl are removed
// by Sweep; a ttl of zero disables expiry.
func NewManager(backend store.Backend, forecaster weather.Forecaster, geocoder weather.Geocoder, ttl time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		backend:    backend,
		forecaster: forecaster,
		geocoder:   geocoder,
		ttl:        ttl,
		logger:     logger,
		widgets:    make(map[string]*weather.Widget),
	}
}

// Create starts a new session and returns its id with a loaded widget.
func (m *Manager) Create(ctx context.Context) (string, *weather.Widget, error) {
	id := uuid.NewString()
	if err := m.backend.Create(ctx, id); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	w, err := m.load(ctx, id)
	if err != nil {
		return "", nil, err
	}
	m.logger.Info("session created", zap.String("session_id", id))
	return id, w, nil
}

// Get returns the widget of an existing session. A session known to the
// backend but not in memory (e.g. after a restart) gets a fresh widget that
// has loaded the cached coordinates.
func (m *Manager) Get(ctx context.Context, id string) (*weather.Widget, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	ok, err := m.backend.Touch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	if !ok {
		m.drop(id)
		return nil, ErrNotFound
	}

	m.mu.Lock()
	w, live := m.widgets[id]
	m.mu.Unlock()
	if live {
		return w, nil
	}
	return m.load(ctx, id)
}

// End removes the session and its cached coordinates.
func (m *Manager) End(ctx context.Context, id string) error {
	if err := m.backend.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	m.drop(id)
	m.logger.Info("session ended", zap.String("session_id", id))
	return nil
}

// Sweep expires sessions idle since before now minus the ttl.
func (m *Manager) Sweep(ctx context.Context, now time.Time) (int, error) {
	if m.ttl <= 0 {
		return 0, nil
	}

	expired, err := m.backend.Expire(ctx, now.Add(-m.ttl))
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	for _, id := range expired {
		m.drop(id)
	}
	if len(expired) > 0 {
		m.logger.Info("expired idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired), nil
}

// Len reports how many widgets are live.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.widgets)
}

func (m *Manager) load(ctx context.Context, id string) (*weather.Widget, error) {
	m.mu.Lock()
	if w, ok := m.widgets[id]; ok {
		m.mu.Unlock()
		return w, nil
	}
	w := weather.NewWidget(m.forecaster, m.geocoder, store.Scope(m.backend, id),
		m.logger.With(zap.String("session_id", id)))
	m.widgets[id] = w
	m.mu.Unlock()

	if err := w.Load(ctx); err != nil {
		m.drop(id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load widget: %w", err)
	}
	return w, nil
}

func (m *Manager) drop(id string) {
	m.mu.Lock()
	delete(m.widgets, id)
	m.mu.Unlock()
}
