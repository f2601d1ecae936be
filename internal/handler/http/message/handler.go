package message

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teleconsult-backend/internal/middleware"
	messagesvc "teleconsult-backend/internal/service/message"
	"teleconsult-backend/pkg/constants"
	"teleconsult-backend/pkg/errors"
	"teleconsult-backend/pkg/response"
)

// Handler exposes the consultation chat over HTTP.
type Handler struct {
	messages *messagesvc.Service
}

func NewHandler(messages *messagesvc.Service) *Handler {
	return &Handler{messages: messages}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/consultations/:id/messages", h.Send)
	r.GET("/consultations/:id/messages", h.History)
	r.POST("/consultations/:id/attachments", h.Upload)
	r.GET("/consultations/:id/attachments/:messageId", h.Download)
}

type sendRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) Send(c *gin.Context) {
	userID, id, ok := h.identify(c)
	if !ok {
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.ValidationError("text is required"))
		return
	}
	m, err := h.messages.SendText(c.Request.Context(), id, userID, req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

func (h *Handler) History(c *gin.Context) {
	userID, id, ok := h.identify(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	var before time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, errors.ValidationError("before must be RFC3339"))
			return
		}
		before = parsed
	}

	history, err := h.messages.History(c.Request.Context(), id, userID, limit, before)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, history)
}

func (h *Handler) Upload(c *gin.Context) {
	userID, id, ok := h.identify(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Error(c, errors.ValidationError("file field is required"))
		return
	}
	defer file.Close()

	if header.Size > constants.MaxAttachmentSize {
		response.Error(c, errors.ValidationError("attachment too large"))
		return
	}

	m, err := h.messages.SendAttachment(
		c.Request.Context(), id, userID,
		header.Filename, header.Header.Get("Content-Type"),
		file, header.Size,
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

func (h *Handler) Download(c *gin.Context) {
	userID, id, ok := h.identify(c)
	if !ok {
		return
	}
	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		response.Error(c, errors.ValidationError("invalid message id"))
		return
	}

	url, err := h.messages.AttachmentURL(c.Request.Context(), id, userID, messageID, time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"url": url})
}

func (h *Handler) identify(c *gin.Context) (userID, id uuid.UUID, ok bool) {
	userID, ok = middleware.UserID(c)
	if !ok {
		response.Error(c, errors.UnauthorizedError(""))
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, errors.ValidationError("invalid consultation id"))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}
