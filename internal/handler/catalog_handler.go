package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Karimk94/edms-archive-gateway/internal/models"
	"github.com/Karimk94/edms-archive-gateway/pkg/response"
)

type catalogService interface {
	Catalogs(ctx context.Context) (models.Catalogs, error)
	Invalidate(ctx context.Context) error
}

// CatalogHandler serves the cached lookup lists.
type CatalogHandler struct {
	catalogs catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(catalogs catalogService) *CatalogHandler {
	return &CatalogHandler{catalogs: catalogs}
}

// List godoc
// @Summary Get the lookup catalogs
// @Tags Catalogs
// @Produce json
// @Success 200 {object} models.Catalogs
// @Router /api/catalogs [get]
func (h *CatalogHandler) List(c *gin.Context) {
	bundle, err := h.catalogs.Catalogs(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, bundle)
}

// Refresh godoc
// @Summary Drop the cached catalogs
// @Tags Catalogs
// @Success 204
// @Router /api/catalogs/refresh [post]
func (h *CatalogHandler) Refresh(c *gin.Context) {
	if err := h.catalogs.Invalidate(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
