package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"paperqa/internal/app"
	"paperqa/internal/transport/http/response"
)

type SessionHandler struct {
	sessions *app.SessionService
}

type CreateSessionRequest struct {
	Name string `json:"name" binding:"required,max=128"`
}

func NewSessionHandler(sessions *app.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), req.Name)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Created(c, session)
}

func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.OK(c, sessions)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	name := c.Param("name")
	if err := h.sessions.Delete(c.Request.Context(), name); err != nil {
		writeServiceError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": name})
}

func (h *SessionHandler) History(c *gin.Context) {
	name := c.Param("name")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.sessions.History(c.Request.Context(), name, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.OK(c, entries)
}
