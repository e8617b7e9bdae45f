package handler

import (
	"comet-be/internal/apperr"
	"comet-be/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps an error to the {error, code} body. Internal detail is
// logged, never sent to the client.
func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= 500 {
		logger.FromCtx(c.Request.Context()).Error("request failed", zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": apperr.Message(err),
		"code":  apperr.Code(err),
	})
}
