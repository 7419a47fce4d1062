package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/memorymate/backend/internal/models"
	"go.uber.org/zap"
)

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrDuplicateGame = errors.New("game already exists")
)

// OperationError wraps a failed backend read or write. In-memory state held
// by callers is not rolled back when one is returned.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Backend persists the whole game collection at once.
type Backend interface {
	List(ctx context.Context) ([]models.Game, error)
	Save(ctx context.Context, games []models.Game) error
}

// GameStore implements record operations as read-entire, mutate,
// write-entire cycles over a Backend. Writes are last-write-wins.
type GameStore struct {
	backend Backend
	logger  *zap.Logger
	// mu serializes read-modify-write cycles within this process.
	mu sync.Mutex
}

func NewGameStore(backend Backend, logger *zap.Logger) *GameStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameStore{backend: backend, logger: logger}
}

func (s *GameStore) List(ctx context.Context) ([]models.Game, error) {
	games, err := s.backend.List(ctx)
	if err != nil {
		return nil, &OperationError{Op: "list", Err: err}
	}
	return games, nil
}

func (s *GameStore) Get(ctx context.Context, id string) (*models.Game, error) {
	games, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range games {
		if games[i].ID == id {
			return &games[i], nil
		}
	}
	return nil, ErrGameNotFound
}

func (s *GameStore) Add(ctx context.Context, game models.Game) error {
	return s.mutate(ctx, "add", func(games []models.Game) ([]models.Game, error) {
		for _, g := range games {
			if g.ID == game.ID {
				return nil, ErrDuplicateGame
			}
		}
		return append(games, game.Clone()), nil
	})
}

// Update applies fn to the stored game and persists the result.
func (s *GameStore) Update(ctx context.Context, id string, fn func(*models.Game) error) (*models.Game, error) {
	var updated models.Game
	err := s.mutate(ctx, "update", func(games []models.Game) ([]models.Game, error) {
		for i := range games {
			if games[i].ID != id {
				continue
			}
			if err := fn(&games[i]); err != nil {
				return nil, err
			}
			games[i].ID = id
			updated = games[i].Clone()
			return games, nil
		}
		return nil, ErrGameNotFound
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a game together with its result history.
func (s *GameStore) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete", func(games []models.Game) ([]models.Game, error) {
		out := games[:0]
		found := false
		for _, g := range games {
			if g.ID == id {
				found = true
				continue
			}
			out = append(out, g)
		}
		if !found {
			return nil, ErrGameNotFound
		}
		return out, nil
	})
}

// AppendResult records a result as the most recent entry of the game's history.
func (s *GameStore) AppendResult(ctx context.Context, gameID string, result models.Result) error {
	_, err := s.Update(ctx, gameID, func(g *models.Game) error {
		g.Results = append([]models.Result{result}, g.Results...)
		return nil
	})
	return err
}

func (s *GameStore) mutate(ctx context.Context, op string, fn func([]models.Game) ([]models.Game, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	games, err := s.backend.List(ctx)
	if err != nil {
		return &OperationError{Op: op, Err: fmt.Errorf("read: %w", err)}
	}

	next, err := fn(games)
	if err != nil {
		return err
	}

	if err := s.backend.Save(ctx, next); err != nil {
		s.logger.Error("store write failed", zap.String("op", op), zap.Error(err))
		return &OperationError{Op: op, Err: fmt.Errorf("write: %w", err)}
	}
	return nil
}
