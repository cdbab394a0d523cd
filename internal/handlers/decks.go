package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deckforge/api/internal/middleware"
	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// DeckStore is the deck persistence used by DeckHandler.
type DeckStore interface {
	GetDeck(ctx context.Context, userID, id uuid.UUID) (*models.Deck, error)
	ListDecks(ctx context.Context, userID uuid.UUID, limit, offset int) ([]store.DeckSummary, error)
	UpdateDeck(ctx context.Context, deck *models.Deck) error
	DeleteDeck(ctx context.Context, userID, id uuid.UUID) error
}

// DeckHandler serves saved decks.
type DeckHandler struct {
	decks  DeckStore
	logger *zap.Logger
}

func NewDeckHandler(decks DeckStore, logger *zap.Logger) *DeckHandler {
	return &DeckHandler{decks: decks, logger: logger}
}

// UpdateDeckRequest replaces only the fields present.
type UpdateDeckRequest struct {
	Name        *string         `json:"name" binding:"omitempty,min=1"`
	Description *string         `json:"description"`
	Slides      *[]models.Slide `json:"slides"`
	Theme       *models.Theme   `json:"theme"`
}

// ListDecks returns the user's decks without slides
// @Summary List decks
// @Tags decks
// @Security Bearer
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} store.DeckSummary
// @Router /decks [get]
func (h *DeckHandler) ListDecks(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	limit := queryInt(c, "limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	decks, err := h.decks.ListDecks(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list decks", zap.Error(err))
		middleware.RespondError(c, http.StatusInternalServerError, middleware.ErrCodeDatabaseError, "failed to list decks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"decks": decks, "limit": limit, "offset": offset})
}

// GetDeck returns one deck
// @Summary Get deck
// @Tags decks
// @Security Bearer
// @Produce json
// @Param id path string true "Deck ID"
// @Success 200 {object} models.Deck
// @Router /decks/{id} [get]
func (h *DeckHandler) GetDeck(c *gin.Context) {
	userID, id, ok := ownedID(c)
	if !ok {
		return
	}

	deck, err := h.decks.GetDeck(c.Request.Context(), userID, id)
	if err != nil {
		h.storeError(c, err, "deck")
		return
	}
	c.JSON(http.StatusOK, deck)
}

// UpdateDeck edits name, description, slides or theme
// @Summary Update deck
// @Tags decks
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path string true "Deck ID"
// @Param body body UpdateDeckRequest true "Changes"
// @Success 200 {object} models.Deck
// @Router /decks/{id} [put]
func (h *DeckHandler) UpdateDeck(c *gin.Context) {
	userID, id, ok := ownedID(c)
	if !ok {
		return
	}

	var req UpdateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	deck, err := h.decks.GetDeck(ctx, userID, id)
	if err != nil {
		h.storeError(c, err, "deck")
		return
	}

	if req.Name != nil {
		deck.Name = *req.Name
	}
	if req.Description != nil {
		deck.Description = *req.Description
	}
	if req.Slides != nil {
		deck.Slides = *req.Slides
	}
	if req.Theme != nil {
		deck.Theme = *req.Theme
	}

	if err := h.decks.UpdateDeck(ctx, deck); err != nil {
		h.storeError(c, err, "deck")
		return
	}
	c.JSON(http.StatusOK, deck)
}

// DeleteDeck removes a deck
// @Summary Delete deck
// @Tags decks
// @Security Bearer
// @Param id path string true "Deck ID"
// @Success 204
// @Router /decks/{id} [delete]
func (h *DeckHandler) DeleteDeck(c *gin.Context) {
	userID, id, ok := ownedID(c)
	if !ok {
		return
	}

	if err := h.decks.DeleteDeck(c.Request.Context(), userID, id); err != nil {
		h.storeError(c, err, "deck")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DeckHandler) storeError(c *gin.Context, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		middleware.NotFound(c, what+" not found")
		return
	}
	h.logger.Error("deck store failure", zap.Error(err))
	middleware.RespondError(c, http.StatusInternalServerError, middleware.ErrCodeDatabaseError, "database error")
}

// ownedID reads the authenticated user and the :id path parameter, responding on failure.
func ownedID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.BadRequest(c, "invalid id")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
