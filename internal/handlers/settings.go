package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deckforge/api/internal/middleware"
	"github.com/deckforge/api/internal/models"
)

// SettingsStore persists per-user service credentials.
type SettingsStore interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error)
	UpsertSettings(ctx context.Context, st *models.UserSettings) error
}

// SettingsHandler reads and writes the user's API keys.
type SettingsHandler struct {
	settings SettingsStore
	logger   *zap.Logger
}

func NewSettingsHandler(settings SettingsStore, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// SettingsResponse never carries a full key.
type SettingsResponse struct {
	TextProvider string    `json:"text_provider,omitempty"`
	TextAPIKey   string    `json:"text_api_key,omitempty"`
	ImageAPIKey  string    `json:"image_api_key,omitempty"`
	IconAPIKey   string    `json:"icon_api_key,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UpdateSettingsRequest changes only the fields present; an empty string clears a key.
type UpdateSettingsRequest struct {
	TextProvider *string `json:"text_provider" binding:"omitempty,oneof=anthropic openai"`
	TextAPIKey   *string `json:"text_api_key"`
	ImageAPIKey  *string `json:"image_api_key"`
	IconAPIKey   *string `json:"icon_api_key"`
}

// MaskKey keeps the last four characters of a key.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func settingsResponse(st *models.UserSettings) SettingsResponse {
	return SettingsResponse{
		TextProvider: st.TextProvider,
		TextAPIKey:   MaskKey(st.TextAPIKey),
		ImageAPIKey:  MaskKey(st.ImageAPIKey),
		IconAPIKey:   MaskKey(st.IconAPIKey),
		UpdatedAt:    st.UpdatedAt,
	}
}

// GetSettings returns the masked settings
// @Summary Get settings
// @Tags user
// @Security Bearer
// @Produce json
// @Success 200 {object} SettingsResponse
// @Router /settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	st, err := h.settings.GetSettings(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load settings", zap.Error(err))
		middleware.RespondError(c, http.StatusInternalServerError, middleware.ErrCodeDatabaseError, "failed to load settings")
		return
	}
	c.JSON(http.StatusOK, settingsResponse(st))
}

// UpdateSettings stores new keys or provider
// @Summary Update settings
// @Tags user
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body UpdateSettingsRequest true "Changes"
// @Success 200 {object} SettingsResponse
// @Router /settings [put]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	st, err := h.settings.GetSettings(ctx, userID)
	if err != nil {
		h.logger.Error("failed to load settings", zap.Error(err))
		middleware.RespondError(c, http.StatusInternalServerError, middleware.ErrCodeDatabaseError, "failed to load settings")
		return
	}

	st.UserID = userID
	apply(&st.TextProvider, req.TextProvider)
	apply(&st.TextAPIKey, req.TextAPIKey)
	apply(&st.ImageAPIKey, req.ImageAPIKey)
	apply(&st.IconAPIKey, req.IconAPIKey)

	if err := h.settings.UpsertSettings(ctx, st); err != nil {
		h.logger.Error("failed to save settings", zap.Error(err))
		middleware.RespondError(c, http.StatusInternalServerError, middleware.ErrCodeDatabaseError, "failed to save settings")
		return
	}
	c.JSON(http.StatusOK, settingsResponse(st))
}

func apply(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
