package models

import "time"

// Audit actions recorded by the gateway.
const (
	AuditActionArchiveCreate = "ARCHIVE_CREATE"
	AuditActionArchiveUpdate = "ARCHIVE_UPDATE"
	AuditActionBulkUpload    = "BULK_UPLOAD"
)

// AuditLog records a mutating request that passed through the gateway.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Detail     []byte    `db:"detail" json:"detail,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
