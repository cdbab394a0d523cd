package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deckforge/api/internal/models"
)

// DeckSummary is a deck without its slides, for listings.
type DeckSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SlideCount  int       `json:"slide_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateDeck persists deck, assigning an id when it has none.
func (s *Store) CreateDeck(ctx context.Context, deck *models.Deck) error {
	if deck.ID == uuid.Nil {
		deck.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO decks (id, user_id, name, description, slides, theme, logo)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, deck.ID, deck.UserID, deck.Name, deck.Description, deck.Slides, deck.Theme, deck.Logo).
		Scan(&deck.CreatedAt, &deck.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert deck: %w", err)
	}
	return nil
}

// GetDeck loads one of the user's decks.
func (s *Store) GetDeck(ctx context.Context, userID, id uuid.UUID) (*models.Deck, error) {
	var deck models.Deck
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, description, slides, theme, logo, created_at, updated_at
		FROM decks WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&deck.ID, &deck.UserID, &deck.Name, &deck.Description,
		&deck.Slides, &deck.Theme, &deck.Logo, &deck.CreatedAt, &deck.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &deck, nil
}

// ListDecks returns the user's decks, newest first.
func (s *Store) ListDecks(ctx context.Context, userID uuid.UUID, limit, offset int) ([]DeckSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, jsonb_array_length(slides), created_at, updated_at
		FROM decks WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	defer rows.Close()

	decks := []DeckSummary{}
	for rows.Next() {
		var d DeckSummary
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.SlideCount, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan deck: %w", err)
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// UpdateDeck overwrites the editable fields of one of the user's decks.
func (s *Store) UpdateDeck(ctx context.Context, deck *models.Deck) error {
	err := s.pool.QueryRow(ctx, `
		UPDATE decks SET name = $3, description = $4, slides = $5, theme = $6, logo = $7, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at
	`, deck.ID, deck.UserID, deck.Name, deck.Description, deck.Slides, deck.Theme, deck.Logo).
		Scan(&deck.CreatedAt, &deck.UpdatedAt)
	if err != nil {
		return notFound(err)
	}
	return nil
}

// DeleteDeck removes one of the user's decks.
func (s *Store) DeleteDeck(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM decks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete deck: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
