package dto

// DashboardCounters are the four summary cards above the dashboard list.
// They are fetched independently of the filtered list and only recomputed
// when the refresh generation changes.
type DashboardCounters struct {
	Total            int `json:"total"`
	ActiveWarrants   int `json:"active_warrants"`
	InactiveWarrants int `json:"inactive_warrants"`
	ExpiringSoon     int `json:"expiring_soon"`
}

// BulkUploadResult classifies the backend's bulk-import outcome.
type BulkUploadResult struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	// Partial is true for the 422 case: some rows imported, some failed.
	Partial bool `json:"-"`
}
