package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Karimk94/edms-archive-gateway/internal/middleware"
	"github.com/Karimk94/edms-archive-gateway/internal/models"
)

func sessionFromContext(c *gin.Context) *models.SessionContext {
	return middleware.SessionFrom(c)
}
