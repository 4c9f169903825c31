// Package handler implements the HTTP edge: gin handlers, the guard adapter
// and the shared middleware. Handlers translate between the JSON wire shapes
// and the service layer; they never embed business rules.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/apperr"
)

// respondError writes the uniform error envelope:
//
//	{"error": {"message": "...", "status": 403, "code": "FORBIDDEN", ...}}
//
// Internal errors are logged with their cause and serialized with a generic
// message so nothing server-side leaks.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status := kind.Status()

	message := "internal server error"
	var fields map[string]any

	var ae *apperr.Error
	if errors.As(err, &ae) && kind != apperr.KindInternal {
		message = ae.Message
		fields = ae.Fields
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	body := gin.H{
		"message": message,
		"status":  status,
		"code":    string(kind),
	}
	for k, v := range fields {
		body[k] = v
	}

	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// respondBindError maps a gin binding failure onto the envelope
func respondBindError(c *gin.Context, logger *zap.Logger, err error) {
	respondError(c, logger, apperr.Wrap(apperr.KindInputInvalid, "invalid request body", err))
}
