package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deckforge/api/internal/middleware"
	"github.com/deckforge/api/internal/models"
)

// BrandExtractor previews the brand of a web page. It never fails.
type BrandExtractor interface {
	Extract(ctx context.Context, pageURL string) models.BrandAssets
}

// BrandHandler serves brand previews.
type BrandHandler struct {
	extractor BrandExtractor
}

func NewBrandHandler(extractor BrandExtractor) *BrandHandler {
	return &BrandHandler{extractor: extractor}
}

// ExtractBrandRequest names the page to inspect.
type ExtractBrandRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// ExtractBrand returns colors, logo and images for a URL; the default palette when the page is unusable
// @Summary Extract brand assets
// @Tags brand
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body ExtractBrandRequest true "Page"
// @Success 200 {object} models.BrandAssets
// @Router /brand/extract [post]
func (h *BrandHandler) ExtractBrand(c *gin.Context) {
	var req ExtractBrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, h.extractor.Extract(c.Request.Context(), req.URL))
}
