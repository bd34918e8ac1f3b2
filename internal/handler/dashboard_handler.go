package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Karimk94/edms-archive-gateway/internal/dto"
	"github.com/Karimk94/edms-archive-gateway/pkg/response"
)

type dashboardBackend interface {
	ListEmployees(ctx context.Context, filter dto.EmployeeFilter) (*dto.EmployeeListResponse, error)
	EmployeeCounters(ctx context.Context) (*dto.DashboardCounters, error)
}

// DashboardHandler serves the list view and its counter cards. Both refetch
// together on the client so each response reflects one generation of data.
type DashboardHandler struct {
	backend dashboardBackend
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(backend dashboardBackend) *DashboardHandler {
	return &DashboardHandler{backend: backend}
}

// List godoc
// @Summary List dashboard rows
// @Tags Dashboard
// @Produce json
// @Param search query string false "Free text"
// @Param status query string false "Status id"
// @Param filter query string false "Category filter"
// @Success 200 {object} dto.EmployeeListResponse
// @Router /api/dashboard/employees [get]
func (h *DashboardHandler) List(c *gin.Context) {
	filter := dto.EmployeeFilter{
		Search:     c.Query("search"),
		Status:     c.Query("status"),
		FilterType: c.Query("filter"),
	}
	list, err := h.backend.ListEmployees(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Counters godoc
// @Summary Get the dashboard counters
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.DashboardCounters
// @Router /api/dashboard/counters [get]
func (h *DashboardHandler) Counters(c *gin.Context) {
	counters, err := h.backend.EmployeeCounters(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, counters)
}
