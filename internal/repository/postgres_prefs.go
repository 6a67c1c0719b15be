package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"OddsEdge/internal/domain/models"
	domrepo "OddsEdge/internal/domain/repository"
)

// PostgresPrefs reads user-scoped filtering preferences. The CRUD side of
// these tables lives in the account service; this process only consumes them.
type PostgresPrefs struct {
	db *sql.DB
}

// NewPostgresPrefs creates the preferences repository.
func NewPostgresPrefs(db *sql.DB) domrepo.UserPrefs {
	return &PostgresPrefs{db: db}
}

// OpenPostgres opens the shared Postgres pool.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return db, nil
}

func (p *PostgresPrefs) HiddenEdges(ctx context.Context, userID string) ([]models.HiddenEdge, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT edge_id, auto_unhide_at
		 FROM user_hidden_edges
		 WHERE user_id = $1 AND auto_unhide_at > now()`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("hidden edges query: %w", err)
	}
	defer rows.Close()

	var edges []models.HiddenEdge
	for rows.Next() {
		e := models.HiddenEdge{UserID: userID}
		if err := rows.Scan(&e.EdgeID, &e.AutoUnhideAt); err != nil {
			return nil, fmt.Errorf("hidden edges scan: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (p *PostgresPrefs) EVModel(ctx context.Context, userID, name string) (*models.EVModel, error) {
	var (
		sharpBooks []byte
		weights    []byte
		minBooks   int
		minEvBps   float64
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT sharp_books, book_weights, min_books, min_ev_bps
		 FROM user_ev_models
		 WHERE user_id = $1 AND name = $2`,
		userID, name,
	).Scan(&sharpBooks, &weights, &minBooks, &minEvBps)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ev model query: %w", err)
	}

	m := &models.EVModel{
		UserID:   userID,
		Name:     name,
		MinBooks: minBooks,
		MinEvBps: minEvBps,
	}
	if err := json.Unmarshal(sharpBooks, &m.SharpBooks); err != nil {
		return nil, fmt.Errorf("ev model sharp_books: %w", err)
	}
	if len(weights) > 0 {
		if err := json.Unmarshal(weights, &m.BookWeights); err != nil {
			return nil, fmt.Errorf("ev model book_weights: %w", err)
		}
	}
	return m, nil
}
