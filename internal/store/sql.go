package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/memorymate/backend/internal/models"
)

// SQLBackend stores one row per game with the game encoded as JSON. Save
// replaces every row in a single transaction.
type SQLBackend struct {
	db *sql.DB
}

func NewSQLBackend(db *sql.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

func (b *SQLBackend) List(ctx context.Context) ([]models.Game, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT data FROM games ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		var g models.Game
		if err := json.Unmarshal([]byte(data), &g); err != nil {
			return nil, fmt.Errorf("decode game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (b *SQLBackend) Save(ctx context.Context, games []models.Game) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM games`); err != nil {
		return fmt.Errorf("clear games: %w", err)
	}

	for i, g := range games {
		data, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("encode game %s: %w", g.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO games (id, position, data, updated_at) VALUES ($1, $2, $3, CURRENT_TIMESTAMP)`,
			g.ID, i, string(data),
		); err != nil {
			return fmt.Errorf("insert game %s: %w", g.ID, err)
		}
	}

	return tx.Commit()
}
