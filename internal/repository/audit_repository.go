package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Karimk94/edms-archive-gateway/internal/models"
)

// AuditRepository persists the gateway's audit trail. The archive backend
// owns the documents; the gateway only records who pushed which mutation
// through it.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create stores one audit entry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs
	(id, username, action, resource, resource_id, detail, ip_address, user_agent, created_at)
	VALUES (:id, :username, :action, :resource, :resource_id, :detail, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// AuditFilter narrows List results.
type AuditFilter struct {
	Username string
	Action   string
	Since    time.Time
	Limit    int
}

// List returns audit entries, newest first.
func (r *AuditRepository) List(ctx context.Context, filter AuditFilter) ([]models.AuditLog, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT id, username, action, resource, resource_id, detail, ip_address, user_agent, created_at
	FROM audit_logs`)
	args := make([]interface{}, 0, 3)
	conditions := make([]string, 0, 3)

	if filter.Username != "" {
		args = append(args, filter.Username)
		conditions = append(conditions, fmt.Sprintf("username = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	items := make([]models.AuditLog, 0)
	if err := r.db.SelectContext(ctx, &items, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return items, nil
}
