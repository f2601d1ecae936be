package device

import (
	"github.com/gin-gonic/gin"

	"teleconsult-backend/internal/middleware"
	"teleconsult-backend/internal/repository"
	"teleconsult-backend/pkg/errors"
	"teleconsult-backend/pkg/push"
	"teleconsult-backend/pkg/response"
)

// Handler registers and removes device push tokens.
type Handler struct {
	tokens repository.PushTokenRepository
}

func NewHandler(tokens repository.PushTokenRepository) *Handler {
	return &Handler{tokens: tokens}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/devices", h.Register)
	r.DELETE("/devices", h.Unregister)
}

type tokenRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" binding:"required,oneof=android ios"`
}

func (h *Handler) Register(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.UnauthorizedError(""))
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.ValidationError("token and platform are required"))
		return
	}

	err := h.tokens.Save(c.Request.Context(), userID, push.DeviceToken{
		Token:    req.Token,
		Platform: push.Platform(req.Platform),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) Unregister(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.UnauthorizedError(""))
		return
	}
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.ValidationError("token is required"))
		return
	}
	if err := h.tokens.Delete(c.Request.Context(), userID, req.Token); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
