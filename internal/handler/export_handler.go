package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Karimk94/edms-archive-gateway/internal/dto"
	"github.com/Karimk94/edms-archive-gateway/internal/service"
	"github.com/Karimk94/edms-archive-gateway/pkg/response"
)

type exportService interface {
	Generate(ctx context.Context, filter dto.EmployeeFilter, format string) (*service.ExportResult, error)
}

// ExportHandler serves CSV and PDF downloads of the filtered dashboard list.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Export the filtered archive list
// @Tags Export
// @Param format query string true "csv or pdf"
// @Param search query string false "Free text"
// @Param status query string false "Status id"
// @Param filter query string false "Category filter"
// @Router /api/export [get]
func (h *ExportHandler) Download(c *gin.Context) {
	filter := dto.EmployeeFilter{
		Search:     c.Query("search"),
		Status:     c.Query("status"),
		FilterType: c.Query("filter"),
	}
	result, err := h.exports.Generate(c.Request.Context(), filter, c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
