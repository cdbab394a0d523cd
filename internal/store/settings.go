package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/deckforge/api/internal/models"
)

// GetSettings returns the user's settings; a user without a row gets empty settings.
func (s *Store) GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	st := &models.UserSettings{UserID: userID}
	err := s.pool.QueryRow(ctx, `
		SELECT text_provider, text_api_key, image_api_key, icon_api_key, updated_at
		FROM user_settings WHERE user_id = $1
	`, userID).Scan(&st.TextProvider, &st.TextAPIKey, &st.ImageAPIKey, &st.IconAPIKey, &st.UpdatedAt)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return st, nil
		}
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return st, nil
}

// UpsertSettings writes the user's settings.
func (s *Store) UpsertSettings(ctx context.Context, st *models.UserSettings) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO user_settings (user_id, text_provider, text_api_key, image_api_key, icon_api_key)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			text_provider = EXCLUDED.text_provider,
			text_api_key  = EXCLUDED.text_api_key,
			image_api_key = EXCLUDED.image_api_key,
			icon_api_key  = EXCLUDED.icon_api_key,
			updated_at    = NOW()
		RETURNING updated_at
	`, st.UserID, st.TextProvider, st.TextAPIKey, st.ImageAPIKey, st.IconAPIKey).Scan(&st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
