package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Karimk94/edms-archive-gateway/internal/dto"
	"github.com/Karimk94/edms-archive-gateway/internal/models"
	"github.com/Karimk94/edms-archive-gateway/pkg/export"
	appErrors "github.com/Karimk94/edms-archive-gateway/pkg/errors"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportResult is a rendered export served inline.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Enabled bool
	Title   string
}

// ExportService renders the dashboard list, under its current filters, as a
// downloadable CSV or PDF.
type ExportService struct {
	lister EmployeeLister
	csv    csvRenderer
	pdf    pdfRenderer
	cfg    ExportConfig
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(lister EmployeeLister, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Title == "" {
		cfg.Title = "Employee Archive"
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{lister: lister, csv: csv, pdf: pdf, cfg: cfg, logger: logger}
}

// Generate fetches the filtered list and renders it in the requested
// format. CSV carries both the English and Arabic name columns.
func (s *ExportService) Generate(ctx context.Context, filter dto.EmployeeFilter, format string) (*ExportResult, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	list, err := s.lister.ListEmployees(ctx, filter)
	if err != nil {
		return nil, err
	}
	dataset := s.buildDataset(list.Items)

	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("employee-archive-%s.csv", stamp),
			ContentType: "text/csv; charset=utf-8",
			Payload:     payload,
		}, nil
	case ExportFormatPDF:
		payload, err := s.pdf.Render(dataset, s.cfg.Title)
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("employee-archive-%s.pdf", stamp),
			ContentType: "application/pdf",
			Payload:     payload,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *ExportService) buildDataset(items []models.EmployeeSummary) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Employee Number", "Name (EN)", "Name (AR)", "Job Title", "Department", "Status", "Documents"},
	}
	for _, item := range items {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Employee Number": item.EmployeeNumber,
			"Name (EN)":       item.NameEn,
			"Name (AR)":       item.NameAr,
			"Job Title":       item.JobTitle,
			"Department":      item.Department,
			"Status":          item.StatusName,
			"Documents":       strconv.Itoa(item.DocumentCount),
		})
	}
	return dataset
}
