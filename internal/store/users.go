package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/deckforge/api/internal/models"
)

// CreateUser inserts a user with an already hashed password.
func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	user := &models.User{ID: uuid.New(), Email: email, Name: name}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, user.ID, email, name, passwordHash).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// UserByEmail returns the user and password hash for login.
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, string, error) {
	var user models.User
	var hash string
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.Name, &hash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, "", notFound(err)
	}
	return &user, hash, nil
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, name, created_at, updated_at FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}
