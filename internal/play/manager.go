package play

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/memorymate/backend/internal/models"
)

// GameLoader fetches a stored game by id.
type GameLoader interface {
	Get(ctx context.Context, id string) (*models.Game, error)
}

// DefaultCompletedTTL is how long a finished session stays reachable for
// result views and play again.
const DefaultCompletedTTL = 30 * time.Minute

// Manager tracks live sessions by id. Completed sessions are evicted
// CompletedTTL after they finish.
type Manager struct {
	games GameLoader
	opts  Options
	newID func() string

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(games GameLoader, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.CompletedTTL <= 0 {
		opts.CompletedTTL = DefaultCompletedTTL
	}
	return &Manager{
		games:    games,
		opts:     opts,
		newID:    func() string { return "session-" + uuid.NewString() },
		sessions: make(map[string]*Session),
	}
}

// Start loads the game and begins a new play-through of it.
func (m *Manager) Start(ctx context.Context, gameID string) (*Session, error) {
	game, err := m.games.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	s, err := NewSession(m.newID(), *game, m.opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.evictLocked()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close stops the session's timer and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

// CloseGame ends every session playing gameID.
func (m *Manager) CloseGame(gameID string) {
	m.mu.Lock()
	var closing []*Session
	for id, s := range m.sessions {
		if s.GameID() == gameID {
			closing = append(closing, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range closing {
		s.Close()
	}
}

// CloseAll releases every session, for shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}

// evictLocked drops sessions that completed more than CompletedTTL ago.
func (m *Manager) evictLocked() {
	cutoff := m.opts.Clock.Now().Add(-m.opts.CompletedTTL)
	for id, s := range m.sessions {
		if s.completedBefore(cutoff) {
			delete(m.sessions, id)
			s.Close()
		}
	}
}
