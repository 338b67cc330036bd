package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"paperqa/internal/app"
	"paperqa/internal/model"
	"paperqa/internal/transport/http/response"
)

type AskHandler struct {
	sessions *app.SessionService
	queries  *app.QueryService
}

type AskRequest struct {
	Session  string   `json:"session" binding:"required"`
	Question string   `json:"question" binding:"required"`
	Sources  []string `json:"sources"`
	TopK     int      `json:"top_k" binding:"omitempty,min=1,max=50"`
}

type AskResponse struct {
	Answer    string           `json:"answer"`
	Citations []model.Citation `json:"citations"`
	Strategy  string           `json:"strategy"`
}

func NewAskHandler(sessions *app.SessionService, queries *app.QueryService) *AskHandler {
	return &AskHandler{sessions: sessions, queries: queries}
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, err := h.sessions.GetByName(c.Request.Context(), req.Session)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	result, err := h.queries.Ask(c.Request.Context(), app.AskInput{
		SessionID: session.ID,
		Question:  req.Question,
		Sources:   req.Sources,
		TopK:      req.TopK,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	// A grounded refusal is a successful answer, not an error.
	response.OK(c, AskResponse{
		Answer:    result.Answer,
		Citations: result.Citations,
		Strategy:  string(result.Strategy),
	})
}
