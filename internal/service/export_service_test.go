package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karimk94/edms-archive-gateway/internal/dto"
	"github.com/Karimk94/edms-archive-gateway/internal/models"
)

func exportLister() *fakeLister {
	return &fakeLister{
		items: []models.EmployeeSummary{
			{EmployeeNumber: "1001", NameEn: "Ahmed Saleh", NameAr: "أحمد صالح", JobTitle: "Inspector", Department: "Field Ops", StatusName: "Active", DocumentCount: 3},
		},
		total: 1,
	}
}

func TestExportServiceCSV(t *testing.T) {
	svc := NewExportService(exportLister(), ExportConfig{Enabled: true}, nil, nil, nil)

	result, err := svc.Generate(context.Background(), dto.EmployeeFilter{}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Payload)
	// BOM keeps the Arabic columns readable in spreadsheet tools.
	assert.True(t, strings.HasPrefix(body, "\ufeff"))
	assert.Contains(t, body, "Ahmed Saleh")
	assert.Contains(t, body, "أحمد صالح")
	assert.Contains(t, body, "Name (AR)")
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(exportLister(), ExportConfig{Enabled: true, Title: "Archive"}, nil, nil, nil)

	result, err := svc.Generate(context.Background(), dto.EmployeeFilter{}, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Payload), "%PDF"))
}

func TestExportServiceForwardsFilter(t *testing.T) {
	lister := exportLister()
	svc := NewExportService(lister, ExportConfig{Enabled: true}, nil, nil, nil)

	filter := dto.EmployeeFilter{Search: "ahmed", Status: "st-1", FilterType: "expiring_soon"}
	_, err := svc.Generate(context.Background(), filter, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, filter, lister.lastFilter())
}

func TestExportServiceUnknownFormat(t *testing.T) {
	svc := NewExportService(exportLister(), ExportConfig{Enabled: true}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), dto.EmployeeFilter{}, "xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx")
}

func TestExportServiceDisabled(t *testing.T) {
	svc := NewExportService(exportLister(), ExportConfig{Enabled: false}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), dto.EmployeeFilter{}, ExportFormatCSV)
	require.Error(t, err)
}
