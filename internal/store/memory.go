package store

import (
	"context"
	"sync"

	"github.com/memorymate/backend/internal/models"
)

// MemoryBackend keeps the collection in process memory.
type MemoryBackend struct {
	mu    sync.RWMutex
	games []models.Game
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) List(ctx context.Context) ([]models.Game, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneGames(b.games), nil
}

func (b *MemoryBackend) Save(ctx context.Context, games []models.Game) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.games = cloneGames(games)
	return nil
}

func cloneGames(games []models.Game) []models.Game {
	out := make([]models.Game, len(games))
	for i, g := range games {
		out[i] = g.Clone()
	}
	return out
}
