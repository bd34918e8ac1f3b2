package dto

import "github.com/Karimk94/edms-archive-gateway/internal/models"

// EmployeeFilter carries the dashboard's filter state: free-text search,
// status, and the mutually-exclusive category card ("" = total).
type EmployeeFilter struct {
	Search     string `form:"search"`
	Status     string `form:"status"`
	FilterType string `form:"filter_type"`
}

// EmployeeListResponse is the dashboard list contract: one full page per
// request, no client-side pagination.
type EmployeeListResponse struct {
	Items      []models.EmployeeSummary `json:"items"`
	TotalCount int                      `json:"totalCount"`
}

// EmployeeScalars is the employee_data JSON payload of a submit.
type EmployeeScalars struct {
	EmployeeNumber string `json:"employee_number" validate:"required"`
	NameEn         string `json:"name_en" validate:"required"`
	NameAr         string `json:"name_ar"`
	JobTitle       string `json:"job_title"`
	Department     string `json:"department"`
	HireDate       string `json:"hire_date"`
	Notes          string `json:"notes"`
	StatusID       string `json:"status_id"`
}

// UpdatedDocument reconciles the legislation set of a persisted
// warrant-decision document during an update, without re-uploading the file.
type UpdatedDocument struct {
	DocumentID     string   `json:"document_id"`
	LegislationIDs []string `json:"legislation_ids"`
}
