package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/profile"
	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownExercise = errors.New("unknown exercise")
)

// Store persists finalized sessions. Satisfied by *storage.DB; nil-safe for
// offline use (replay CLI without a database).
type Store interface {
	SaveSession(ctx context.Context, row models.SessionRow, reps []models.RepRow) error
}

// Manager is the registry of active sessions. Sessions are independent:
// the manager's lock only guards the registry map, never frame processing.
type Manager struct {
	profiles *profile.Registry
	store    Store
	log      *slog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates a session manager. store may be nil, in which case
// finalized sessions are not persisted.
func NewManager(profiles *profile.Registry, store Store, log *slog.Logger) *Manager {
	return &Manager{
		profiles: profiles,
		store:    store,
		log:      log,
		sessions: map[uuid.UUID]*Session{},
	}
}

// Start creates and registers a session for the named exercise.
func (m *Manager) Start(exercise string) (*Session, error) {
	p, ok := m.profiles.ByName(exercise)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExercise, exercise)
	}

	s := New(p)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.log.Info("session started", "id", s.ID, "exercise", exercise)
	return s, nil
}

// Get returns the active session with the given ID.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List returns snapshots of all active sessions.
func (m *Manager) List() []LiveSnapshot {
	m.mu.RLock()
	active := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		active = append(active, s)
	}
	m.mu.RUnlock()

	out := make([]LiveSnapshot, len(active))
	for i, s := range active {
		out[i] = s.Snapshot()
	}
	return out
}

// Finalize closes a session, removes it from the registry, and persists the
// summary when a store is configured.
func (m *Manager) Finalize(ctx context.Context, id uuid.UUID) (models.SessionSummary, error) {
	s, err := m.Get(id)
	if err != nil {
		return models.SessionSummary{}, err
	}

	sum, err := s.Finalize()
	if err != nil {
		return models.SessionSummary{}, err
	}
	m.remove(id)

	if m.store != nil {
		row, reps := Rows(s.ID, s.StartedAt, sum)
		if err := m.store.SaveSession(ctx, row, reps); err != nil {
			return sum, fmt.Errorf("persisting session %s: %w", id, err)
		}
	}

	m.log.Info("session finalized", "id", id, "reps", sum.TotalReps, "points", sum.TotalPoints)
	return sum, nil
}

// Cancel discards a session and returns the partial summary. Nothing is
// persisted; a repetition in progress is not counted.
func (m *Manager) Cancel(id uuid.UUID) (models.SessionSummary, error) {
	s, err := m.Get(id)
	if err != nil {
		return models.SessionSummary{}, err
	}

	sum := s.Cancel()
	m.remove(id)
	m.log.Info("session cancelled", "id", id, "reps", sum.TotalReps)
	return sum, nil
}

func (m *Manager) remove(id uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
