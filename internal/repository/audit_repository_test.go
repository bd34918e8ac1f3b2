package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karimk94/edms-archive-gateway/internal/models"
)

func newAuditRepoMock(t *testing.T) (*AuditRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAuditRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestAuditCreate(t *testing.T) {
	repo, mock := newAuditRepoMock(t)

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.AuditLog{
		Username:  "tester",
		Action:    models.AuditActionArchiveCreate,
		Resource:  "/api/employees",
		IPAddress: "10.0.0.1",
		UserAgent: "go-test",
	}
	err := repo.Create(context.Background(), entry)
	require.NoError(t, err)

	// Missing identifiers are filled in before the insert.
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditCreateKeepsProvidedID(t *testing.T) {
	repo, mock := newAuditRepoMock(t)

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.AuditLog{
		ID:       "audit-1",
		Username: "tester",
		Action:   models.AuditActionBulkUpload,
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.Equal(t, "audit-1", entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func auditRows() *sqlmock.Rows {
	detail := []byte(`{"record_id":"rec-1"}`)
	resourceID := "rec-1"
	return sqlmock.NewRows([]string{"id", "username", "action", "resource", "resource_id", "detail", "ip_address", "user_agent", "created_at"}).
		AddRow("audit-1", "tester", models.AuditActionArchiveUpdate, "/api/employees/rec-1", &resourceID, detail, "10.0.0.1", "go-test", time.Now().UTC())
}

func TestAuditListNoFilter(t *testing.T) {
	repo, mock := newAuditRepoMock(t)

	mock.ExpectQuery(`FROM audit_logs ORDER BY created_at DESC LIMIT 100`).
		WillReturnRows(auditRows())

	items, err := repo.List(context.Background(), AuditFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "tester", items[0].Username)
	assert.Equal(t, models.AuditActionArchiveUpdate, items[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListFiltered(t *testing.T) {
	repo, mock := newAuditRepoMock(t)

	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM audit_logs WHERE username = \$1 AND action = \$2 AND created_at >= \$3 ORDER BY created_at DESC LIMIT 25`).
		WithArgs("tester", models.AuditActionArchiveCreate, since).
		WillReturnRows(auditRows())

	items, err := repo.List(context.Background(), AuditFilter{
		Username: "tester",
		Action:   models.AuditActionArchiveCreate,
		Since:    since,
		Limit:    25,
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListLimitClamped(t *testing.T) {
	repo, mock := newAuditRepoMock(t)

	mock.ExpectQuery(`LIMIT 100`).WillReturnRows(auditRows())

	_, err := repo.List(context.Background(), AuditFilter{Limit: 10000})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
