// Package credentials decides which API keys a generation runs with.
package credentials

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/pipeline"
)

// SettingsReader loads per-user settings.
type SettingsReader interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error)
}

// ServerKeys are the server-level fallbacks.
type ServerKeys struct {
	DefaultProvider string
	// TextKeys maps provider name to key.
	TextKeys    map[string]string
	ImageAPIKey string
	IconAPIKey  string
}

// Resolver merges user keys over server keys. User keys always win.
type Resolver struct {
	settings SettingsReader
	server   ServerKeys
}

// NewResolver creates a resolver. settings may be nil when no database is configured.
func NewResolver(settings SettingsReader, server ServerKeys) *Resolver {
	return &Resolver{settings: settings, server: server}
}

// Resolve returns the credentials for userID. A missing text key is not an error
// here; the pipeline reports it.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (pipeline.Credentials, error) {
	user := &models.UserSettings{}
	if r.settings != nil && userID != uuid.Nil {
		st, err := r.settings.GetSettings(ctx, userID)
		if err != nil {
			return pipeline.Credentials{}, fmt.Errorf("resolve credentials: %w", err)
		}
		user = st
	}

	provider := user.TextProvider
	if provider == "" {
		provider = r.server.DefaultProvider
	}
	return pipeline.Credentials{
		TextProvider: provider,
		TextAPIKey:   first(user.TextAPIKey, r.server.TextKeys[provider]),
		ImageAPIKey:  first(user.ImageAPIKey, r.server.ImageAPIKey),
		IconAPIKey:   first(user.IconAPIKey, r.server.IconAPIKey),
	}, nil
}

func first(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
