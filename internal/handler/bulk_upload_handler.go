package handler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/Karimk94/edms-archive-gateway/internal/dto"
	appErrors "github.com/Karimk94/edms-archive-gateway/pkg/errors"
	"github.com/Karimk94/edms-archive-gateway/pkg/response"
)

type bulkUploader interface {
	BulkUpload(ctx context.Context, filename string, file io.Reader) (*dto.BulkUploadResult, error)
}

// BulkUploadHandler forwards roster spreadsheets to the backend importer.
// A partially imported sheet is not a failure: the per-row warnings come
// back with a 422 and the accepted rows stay imported.
type BulkUploadHandler struct {
	uploader bulkUploader
}

// NewBulkUploadHandler constructs the handler.
func NewBulkUploadHandler(uploader bulkUploader) *BulkUploadHandler {
	return &BulkUploadHandler{uploader: uploader}
}

// Upload godoc
// @Summary Bulk-import archive records from a spreadsheet
// @Tags Employees
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet"
// @Success 200 {object} dto.BulkUploadResult
// @Router /api/employees/bulk-upload [post]
func (h *BulkUploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	result, err := h.uploader.BulkUpload(c.Request.Context(), fileHeader.Filename, src)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Partial {
		response.PartialSuccess(c, result.Message, result.Errors)
		return
	}
	response.OK(c, result)
}
