package models

// HRProfile is the canonical person record returned by the HR registry. It
// seeds the archive form's scalar fields when a base identity is selected.
type HRProfile struct {
	ID             string `json:"id"`
	EmployeeNumber string `json:"employee_number"`
	NameEn         string `json:"name_en"`
	NameAr         string `json:"name_ar"`
	JobTitle       string `json:"job_title"`
	Department     string `json:"department"`
	HireDate       string `json:"hire_date"`
}

// EmployeeSummary is a row of the dashboard list.
type EmployeeSummary struct {
	ID             string `json:"id"`
	EmployeeNumber string `json:"employee_number"`
	NameEn         string `json:"name_en"`
	NameAr         string `json:"name_ar"`
	JobTitle       string `json:"job_title"`
	Department     string `json:"department"`
	StatusID       string `json:"status_id"`
	StatusName     string `json:"status_name"`
	DocumentCount  int    `json:"document_count"`
}

// EmployeeRecord is the hydrated archive record fetched in edit mode,
// including the persisted documents.
type EmployeeRecord struct {
	ID             string              `json:"id"`
	EmployeeNumber string              `json:"employee_number"`
	NameEn         string              `json:"name_en"`
	NameAr         string              `json:"name_ar"`
	JobTitle       string              `json:"job_title"`
	Department     string              `json:"department"`
	HireDate       string              `json:"hire_date"`
	Notes          string              `json:"notes"`
	StatusID       string              `json:"status_id"`
	Documents      []PersistedDocument `json:"documents"`
}

// PersistedDocument is a document already stored server-side, referenced by
// an opaque id.
type PersistedDocument struct {
	ID             string   `json:"id"`
	DocumentTypeID string   `json:"document_type_id"`
	DisplayName    string   `json:"display_name"`
	ExpiryDate     string   `json:"expiry_date,omitempty"`
	LegislationIDs []string `json:"legislation_ids,omitempty"`
}
