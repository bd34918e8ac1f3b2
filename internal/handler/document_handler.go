package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Karimk94/edms-archive-gateway/internal/service"
	appErrors "github.com/Karimk94/edms-archive-gateway/pkg/errors"
	"github.com/Karimk94/edms-archive-gateway/pkg/response"
)

// DocumentHandler serves stored document content for the viewer overlay.
// Image content is buffered into the object registry and addressed by a
// revocable reference; other content streams straight through for inline
// embedding.
type DocumentHandler struct {
	fetcher  service.DocumentFetcher
	registry *service.ObjectRegistry
	logger   *zap.Logger
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(fetcher service.DocumentFetcher, registry *service.ObjectRegistry, logger *zap.Logger) *DocumentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentHandler{fetcher: fetcher, registry: registry, logger: logger}
}

// Content godoc
// @Summary Stream stored document content
// @Tags Documents
// @Param id path string true "Document id"
// @Router /api/documents/{id}/content [get]
func (h *DocumentHandler) Content(c *gin.Context) {
	content, err := h.fetcher.FetchDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer content.Body.Close()

	c.Header("Cache-Control", "no-store")
	c.Header("Content-Type", content.ContentType)
	if content.Size > 0 {
		c.Header("Content-Length", fmt.Sprintf("%d", content.Size))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, content.Body); err != nil {
		h.logger.Warn("document stream interrupted", zap.String("document_id", c.Param("id")), zap.Error(err))
	}
}

// Preview godoc
// @Summary Prepare a document for the viewer overlay
// @Tags Documents
// @Produce json
// @Param id path string true "Document id"
// @Success 200 {object} map[string]string
// @Router /api/documents/{id}/preview [get]
func (h *DocumentHandler) Preview(c *gin.Context) {
	id := c.Param("id")
	content, err := h.fetcher.FetchDocument(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer content.Body.Close()

	if strings.HasPrefix(content.ContentType, "image/") {
		data, err := io.ReadAll(content.Body)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "could not load the document"))
			return
		}
		ref := h.registry.Register(data)
		response.OK(c, gin.H{
			"kind":         "image",
			"object_ref":   ref,
			"content_type": content.ContentType,
			"url":          "/api/objects/" + ref,
		})
		return
	}

	response.OK(c, gin.H{
		"kind":         "embed",
		"content_type": content.ContentType,
		"url":          "/api/documents/" + id + "/content",
	})
}

// Object godoc
// @Summary Serve a buffered preview object
// @Tags Documents
// @Param ref path string true "Object reference"
// @Router /api/objects/{ref} [get]
func (h *DocumentHandler) Object(c *gin.Context) {
	data, ok := h.registry.Resolve(c.Param("ref"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "object reference expired"))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

// Revoke godoc
// @Summary Release a buffered preview object
// @Tags Documents
// @Param ref path string true "Object reference"
// @Success 204
// @Router /api/objects/{ref} [delete]
func (h *DocumentHandler) Revoke(c *gin.Context) {
	h.registry.Revoke(c.Param("ref"))
	response.NoContent(c)
}
