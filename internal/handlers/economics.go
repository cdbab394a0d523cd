package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/deckforge/api/internal/middleware"
)

// EconomicsHandler reports the user's generation spend.
type EconomicsHandler struct {
	budget BudgetChecker
	logger *zap.Logger
}

func NewEconomicsHandler(budget BudgetChecker, logger *zap.Logger) *EconomicsHandler {
	return &EconomicsHandler{budget: budget, logger: logger}
}

// GetUsage returns month-to-date spend and remaining budget
// @Summary Monthly usage
// @Tags user
// @Security Bearer
// @Produce json
// @Success 200 {object} economics.BudgetStatus
// @Router /usage [get]
func (h *EconomicsHandler) GetUsage(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	status, err := h.budget.CheckBudget(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to compute usage", zap.Error(err))
		middleware.RespondError(c, http.StatusInternalServerError, middleware.ErrCodeDatabaseError, "failed to compute usage")
		return
	}
	c.JSON(http.StatusOK, status)
}
