package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/pipeline"
)

type settingsFunc func(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error)

func (f settingsFunc) GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	return f(ctx, userID)
}

var server = ServerKeys{
	DefaultProvider: "anthropic",
	TextKeys:        map[string]string{"anthropic": "server-anthropic", "openai": "server-openai"},
	ImageAPIKey:     "server-image",
}

func TestResolveUserKeysWin(t *testing.T) {
	r := NewResolver(settingsFunc(func(ctx context.Context, id uuid.UUID) (*models.UserSettings, error) {
		return &models.UserSettings{UserID: id, TextAPIKey: "user-text", IconAPIKey: "user-icon"}, nil
	}), server)

	creds, err := r.Resolve(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, pipeline.Credentials{
		TextProvider: "anthropic",
		TextAPIKey:   "user-text",
		ImageAPIKey:  "server-image",
		IconAPIKey:   "user-icon",
	}, creds)
}

func TestResolveUserProviderPicksServerKey(t *testing.T) {
	r := NewResolver(settingsFunc(func(ctx context.Context, id uuid.UUID) (*models.UserSettings, error) {
		return &models.UserSettings{TextProvider: "openai"}, nil
	}), server)

	creds, err := r.Resolve(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "openai", creds.TextProvider)
	assert.Equal(t, "server-openai", creds.TextAPIKey)
}

func TestResolveWithoutStore(t *testing.T) {
	creds, err := NewResolver(nil, ServerKeys{DefaultProvider: "anthropic"}).Resolve(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, creds.TextAPIKey)
	assert.Empty(t, creds.IconAPIKey)
}

func TestResolveStoreError(t *testing.T) {
	r := NewResolver(settingsFunc(func(ctx context.Context, id uuid.UUID) (*models.UserSettings, error) {
		return nil, errors.New("db down")
	}), server)

	_, err := r.Resolve(context.Background(), uuid.New())
	assert.ErrorContains(t, err, "db down")
}
