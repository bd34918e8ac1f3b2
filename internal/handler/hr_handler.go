package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Karimk94/edms-archive-gateway/internal/dto"
	"github.com/Karimk94/edms-archive-gateway/internal/models"
	appErrors "github.com/Karimk94/edms-archive-gateway/pkg/errors"
	"github.com/Karimk94/edms-archive-gateway/pkg/response"
)

type hrDirectory interface {
	SearchHREmployees(ctx context.Context, search string, page int) (*dto.HRSearchResponse, error)
	GetHRProfile(ctx context.Context, id string) (*models.HRProfile, error)
}

// HRHandler serves the HR registry lookups behind the employee picker.
type HRHandler struct {
	directory hrDirectory
}

// NewHRHandler constructs the handler.
func NewHRHandler(directory hrDirectory) *HRHandler {
	return &HRHandler{directory: directory}
}

// Search godoc
// @Summary Search HR employees
// @Tags HR
// @Produce json
// @Param search query string false "Free text"
// @Param page query int false "Page number"
// @Success 200 {object} dto.HRSearchResponse
// @Router /api/hr/employees [get]
func (h *HRHandler) Search(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	result, err := h.directory.SearchHREmployees(c.Request.Context(), search, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Profile godoc
// @Summary Get one HR profile
// @Tags HR
// @Produce json
// @Param id path string true "HR employee id"
// @Success 200 {object} models.HRProfile
// @Router /api/hr/employees/{id} [get]
func (h *HRHandler) Profile(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "employee id is required"))
		return
	}
	profile, err := h.directory.GetHRProfile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}
