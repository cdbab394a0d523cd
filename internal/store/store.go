// Package store persists users, settings, decks and generation jobs in PostgreSQL.
package store

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deckforge/api/internal/database"
)

var (
	// ErrNotFound is returned when a row does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("email already exists")
	// ErrJobClosed is returned when a job is already completed, failed or cancelled.
	ErrJobClosed = errors.New("job already finished")
)

const uniqueViolation = "23505"

// Store wraps the connection pool with typed queries.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a store over db.
func New(db *database.Postgres) *Store {
	return &Store{pool: db.Pool()}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
