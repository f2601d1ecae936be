package consultation

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teleconsult-backend/internal/domain"
	"teleconsult-backend/internal/middleware"
	callsvc "teleconsult-backend/internal/service/call"
	consultsvc "teleconsult-backend/internal/service/consultation"
	"teleconsult-backend/pkg/errors"
	"teleconsult-backend/pkg/response"
)

// Handler exposes the consultation and call lifecycle over HTTP.
type Handler struct {
	consultations *consultsvc.Service
	calls         *callsvc.Service
}

func NewHandler(consultations *consultsvc.Service, calls *callsvc.Service) *Handler {
	return &Handler{consultations: consultations, calls: calls}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/consultations", h.Create)
	r.GET("/consultations", h.List)
	r.GET("/consultations/:id", h.Get)
	r.POST("/consultations/:id/accept", h.Accept)
	r.POST("/consultations/:id/close", h.Close)
	r.POST("/consultations/:id/feedback", h.Feedback)

	r.POST("/consultations/:id/calls", h.CreateCall)
	r.GET("/consultations/:id/calls/current", h.CurrentCall)
	r.POST("/calls/:id/accept", h.AcceptCall)
	r.POST("/calls/:id/reject", h.RejectCall)
}

type createRequest struct {
	Queue           *uuid.UUID  `json:"queue"`
	Doctor          *uuid.UUID  `json:"doctor"`
	Translator      *uuid.UUID  `json:"translator"`
	Guest           *uuid.UUID  `json:"guest"`
	Experts         []uuid.UUID `json:"experts"`
	InvitationToken string      `json:"invitation_token"`
}

func (h *Handler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.UnauthorizedError(""))
		return
	}
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.ValidationError("invalid request body"))
		return
	}

	result, err := h.consultations.Create(c.Request.Context(), consultsvc.CreateInput{
		Owner:           userID,
		Queue:           req.Queue,
		Doctor:          req.Doctor,
		Translator:      req.Translator,
		Guest:           req.Guest,
		Experts:         req.Experts,
		InvitationToken: req.InvitationToken,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.UnauthorizedError(""))
		return
	}
	result, err := h.consultations.List(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func (h *Handler) Get(c *gin.Context) {
	userID, id, ok := h.identify(c)
	if !ok {
		return
	}
	result, err := h.consultations.Get(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func (h *Handler) Accept(c *gin.Context) {
	userID, id, ok := h.identify(c)
	if !ok {
		return
	}
	result, err := h.consultations.Accept(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func (h *Handler) Close(c *gin.Context) {
	userID, id, ok := h.identify(c)
	if !ok {
		return
	}
	// membership check happens on the read; close itself is idempotent
	if _, err := h.consultations.Get(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.consultations.Close(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type feedbackRequest struct {
	Rating  string `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

func (h *Handler) Feedback(c *gin.Context) {
	userID, id, ok := h.identify(c)
	if !ok {
		return
	}
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.ValidationError("rating is required"))
		return
	}
	if err := h.consultations.LeaveFeedback(c.Request.Context(), id, userID, req.Rating, req.Comment); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type createCallRequest struct {
	Kind string `json:"kind" binding:"required"`
}

func (h *Handler) CreateCall(c *gin.Context) {
	userID, id, ok := h.identify(c)
	if !ok {
		return
	}
	var req createCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.ValidationError("kind is required"))
		return
	}
	kind, ok := domain.ParseCallKind(req.Kind)
	if !ok {
		response.Error(c, errors.ValidationError("kind must be audioCall or videoCall"))
		return
	}

	result, err := h.calls.Create(c.Request.Context(), id, userID, kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

func (h *Handler) CurrentCall(c *gin.Context) {
	userID, id, ok := h.identify(c)
	if !ok {
		return
	}
	result, err := h.calls.CurrentCall(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func (h *Handler) AcceptCall(c *gin.Context) {
	userID, id, ok := h.identify(c)
	if !ok {
		return
	}
	result, err := h.calls.Accept(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func (h *Handler) RejectCall(c *gin.Context) {
	userID, id, ok := h.identify(c)
	if !ok {
		return
	}
	if err := h.calls.Reject(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// identify extracts the caller id and the :id path parameter.
func (h *Handler) identify(c *gin.Context) (userID, id uuid.UUID, ok bool) {
	userID, ok = middleware.UserID(c)
	if !ok {
		response.Error(c, errors.UnauthorizedError(""))
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, errors.ValidationError("invalid id"))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}
