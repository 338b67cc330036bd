package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"paperqa/internal/app"
	"paperqa/internal/transport/http/response"
)

// writeServiceError maps service errors onto the API envelope. Infrastructure
// details never reach the client; they stay in the logs.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, app.ErrNoIndexedDocuments):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrSessionExists),
		errors.Is(err, app.ErrDocumentExists),
		errors.Is(err, app.ErrDocumentNotIndexed),
		errors.Is(err, app.ErrIngestConflict),
		errors.Is(err, app.ErrNotRetryable):
		response.Error(c, http.StatusConflict, response.CodeConflict, err.Error())
	case app.IsInfrastructure(err):
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable,
			"temporary failure, please retry")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer,
			"internal server error")
	}
}
