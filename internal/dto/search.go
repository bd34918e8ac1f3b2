package dto

import "github.com/Karimk94/edms-archive-gateway/internal/models"

// HRSearchRequest binds the typeahead query parameters.
type HRSearchRequest struct {
	Search string `form:"search"`
	Page   int    `form:"page" validate:"omitempty,min=1"`
}

// HRSearchResponse is the paginated typeahead contract: append-ordered items
// plus a has-more marker, never a total count.
type HRSearchResponse struct {
	Items   []models.HRProfile `json:"items"`
	HasMore bool               `json:"hasMore"`
}
