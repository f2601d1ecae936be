package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"teleconsult-backend/pkg/errors"
	"teleconsult-backend/pkg/logger"

	"go.uber.org/zap"
)

// Envelope is the uniform JSON response body.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error maps err onto the envelope. Non-AppError values become opaque
// internal errors so callers never see raw failure text.
func Error(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed",
			zap.String("code", appErr.Code),
			zap.Error(appErr.Err),
		)
	}
	c.JSON(appErr.StatusCode, Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
	})
}
