package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"paperqa/internal/repository"
	"paperqa/internal/transport/http/response"
)

type MetricsHandler struct {
	runLogs *repository.RunLogRepository
}

func NewMetricsHandler(runLogs *repository.RunLogRepository) *MetricsHandler {
	return &MetricsHandler{runLogs: runLogs}
}

// Summary reports query volume, error rate and latency over a trailing
// window of days (default 7).
func (h *MetricsHandler) Summary(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid days parameter")
		return
	}
	summary, err := h.runLogs.Summarize(days)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "summarize run logs failed")
		return
	}
	response.OK(c, summary)
}
