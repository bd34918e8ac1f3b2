package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Karimk94/edms-archive-gateway/internal/dto"
	"github.com/Karimk94/edms-archive-gateway/internal/models"
	"github.com/Karimk94/edms-archive-gateway/internal/service"
	appErrors "github.com/Karimk94/edms-archive-gateway/pkg/errors"
	"github.com/Karimk94/edms-archive-gateway/pkg/response"
)

const multipartMemoryLimit = 32 << 20

type archiveBackend interface {
	service.ProfileFetcher
	service.ArchiveSubmitter
	ListEmployees(ctx context.Context, filter dto.EmployeeFilter) (*dto.EmployeeListResponse, error)
	GetEmployee(ctx context.Context, id string) (*models.EmployeeRecord, error)
}

type catalogProvider interface {
	Catalogs(ctx context.Context) (models.Catalogs, error)
}

// EmployeeHandler serves the archive records: listing, fetching, and the
// create/update submissions. Submissions are replayed through the form
// engine so every cross-field rule is enforced before anything reaches the
// backend.
type EmployeeHandler struct {
	backend     archiveBackend
	catalogs    catalogProvider
	formCfg     service.ArchiveFormConfig
	maxFileSize int64
	logger      *zap.Logger
}

// NewEmployeeHandler constructs the handler.
func NewEmployeeHandler(backend archiveBackend, catalogs catalogProvider, formCfg service.ArchiveFormConfig, maxFileSize int64, logger *zap.Logger) *EmployeeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmployeeHandler{
		backend:     backend,
		catalogs:    catalogs,
		formCfg:     formCfg,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// List godoc
// @Summary List archive records
// @Tags Employees
// @Produce json
// @Param search query string false "Free text"
// @Param status query string false "Status id"
// @Param filter query string false "Category filter"
// @Success 200 {object} dto.EmployeeListResponse
// @Router /api/employees [get]
func (h *EmployeeHandler) List(c *gin.Context) {
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

// Get godoc
// @Summary Get one archive record
// @Tags Employees
// @Produce json
// @Param id path string true "Record id"
// @Success 200 {object} models.EmployeeRecord
// @Router /api/employees/{id} [get]
func (h *EmployeeHandler) Get(c *gin.Context) {
	record, err := h.backend.GetEmployee(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// Create godoc
// @Summary Create an archive record
// @Tags Employees
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} models.EmployeeRecord
// @Router /api/employees [post]
func (h *EmployeeHandler) Create(c *gin.Context) {
	form, err := h.newForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer form.Teardown()

	if err := c.Request.ParseMultipartForm(multipartMemoryLimit); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid submission payload"))
		return
	}
	mf := c.Request.MultipartForm

	employeeID := firstValue(mf, "employee_id")
	if err := form.SelectBaseIdentity(c.Request.Context(), employeeID); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.applyCommonFields(c, form, mf); err != nil {
		response.Error(c, err)
		return
	}

	record, err := form.Submit(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Update godoc
// @Summary Update an archive record
// @Tags Employees
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Record id"
// @Success 200 {object} models.EmployeeRecord
// @Router /api/employees/{id} [put]
func (h *EmployeeHandler) Update(c *gin.Context) {
	record, err := h.backend.GetEmployee(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	form, err := h.newForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer form.Teardown()
	form.Hydrate(record)

	if err := c.Request.ParseMultipartForm(multipartMemoryLimit); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid submission payload"))
		return
	}
	mf := c.Request.MultipartForm

	if err := h.applyRemovals(form, mf); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.applyLegislationUpdates(form, mf); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.applyCommonFields(c, form, mf); err != nil {
		response.Error(c, err)
		return
	}

	updated, err := form.Submit(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

func (h *EmployeeHandler) newForm(c *gin.Context) (*service.ArchiveFormEngine, error) {
	cats, err := h.catalogs.Catalogs(c.Request.Context())
	if err != nil {
		return nil, err
	}
	form := service.NewArchiveForm(h.backend, h.backend, h.formCfg, h.logger)
	form.SetCatalogs(cats)
	if sess := sessionFromContext(c); sess != nil {
		form.SetReadOnly(!sess.CanEdit)
	}
	return form, nil
}

// applyCommonFields replays the notes, the queued attachments and, last, an
// explicit status edit into the form.
func (h *EmployeeHandler) applyCommonFields(c *gin.Context, form *service.ArchiveFormEngine, mf *multipart.Form) error {
	if values, ok := mf.Value["notes"]; ok && len(values) > 0 {
		if err := form.SetNotes(values[0]); err != nil {
			return err
		}
	}

	for i := 0; ; i++ {
		prefix := fmt.Sprintf("new_documents[%d]", i)
		headers, ok := mf.File[prefix+"[file]"]
		if !ok || len(headers) == 0 {
			break
		}
		header := headers[0]
		if h.maxFileSize > 0 && header.Size > h.maxFileSize {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s exceeds the maximum file size", header.Filename))
		}

		index, err := form.AddAttachment()
		if err != nil {
			return err
		}
		if typeID := firstValue(mf, prefix+"[document_type_id]"); typeID != "" {
			if err := form.SetAttachmentType(index, typeID); err != nil {
				return err
			}
		}
		src, err := header.Open()
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
		}
		content, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file")
		}
		if err := form.SetAttachmentFile(index, service.FileHandle{
			Filename: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Content:  bytes.NewReader(content),
		}); err != nil {
			return err
		}
		if expiry := firstValue(mf, prefix+"[expiry_date]"); expiry != "" {
			if err := form.SetAttachmentExpiry(index, expiry); err != nil {
				return err
			}
		}
		for _, legID := range mf.Value[prefix+"[legislation_ids]"] {
			if err := form.ToggleAttachmentLegislation(index, legID); err != nil {
				return err
			}
		}
	}

	if statusID := firstValue(mf, "status_id"); statusID != "" && statusID != form.StatusID() {
		if err := form.SetStatus(statusID); err != nil {
			return err
		}
	}
	return nil
}

func (h *EmployeeHandler) applyRemovals(form *service.ArchiveFormEngine, mf *multipart.Form) error {
	raw := firstValue(mf, "deleted_documents")
	if raw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid deleted_documents payload")
	}
	for _, id := range ids {
		index := -1
		for i, row := range form.Attachments() {
			if row.Kind == service.AttachmentPersisted && row.PersistedID == id {
				index = i
				break
			}
		}
		if index < 0 {
			continue
		}
		if err := form.RemoveAttachment(index); err != nil {
			return err
		}
	}
	return nil
}

// applyLegislationUpdates reconciles the requested legislation sets of
// persisted documents by toggling the symmetric difference.
func (h *EmployeeHandler) applyLegislationUpdates(form *service.ArchiveFormEngine, mf *multipart.Form) error {
	raw := firstValue(mf, "legislation_updates")
	if raw == "" {
		return nil
	}
	var updates []dto.UpdatedDocument
	if err := json.Unmarshal([]byte(raw), &updates); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid legislation_updates payload")
	}
	for _, update := range updates {
		target := make(map[string]struct{}, len(update.LegislationIDs))
		for _, id := range update.LegislationIDs {
			target[id] = struct{}{}
		}
		var current map[string]struct{}
		for _, row := range form.Attachments() {
			if row.Kind == service.AttachmentPersisted && row.PersistedID == update.DocumentID {
				current = row.LegislationIDs
				break
			}
		}
		if current == nil {
			continue
		}
		for id := range current {
			if _, keep := target[id]; !keep {
				if err := form.ToggleExistingAttachmentLegislation(update.DocumentID, id); err != nil {
					return err
				}
			}
		}
		for id := range target {
			if _, present := current[id]; !present {
				if err := form.ToggleExistingAttachmentLegislation(update.DocumentID, id); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func firstValue(mf *multipart.Form, key string) string {
	if values, ok := mf.Value[key]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}
