package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"paperqa/internal/app"
	"paperqa/internal/transport/http/response"
)

const maxPDFSize = 50 << 20 // 50 MB

type DocumentHandler struct {
	sessions  *app.SessionService
	ingest    *app.IngestService
	uploadDir string
}

func NewDocumentHandler(sessions *app.SessionService, ingest *app.IngestService, uploadDir string) *DocumentHandler {
	return &DocumentHandler{sessions: sessions, ingest: ingest, uploadDir: uploadDir}
}

// Upload accepts a multipart PDF, registers it in UPLOADED state and queues
// it for ingestion. The 202 response carries the registry row; the caller
// polls the status endpoint for progress.
func (h *DocumentHandler) Upload(c *gin.Context) {
	sessionName := c.Param("name")

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file field")
		return
	}
	if file.Size > maxPDFSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest,
			fmt.Sprintf("file exceeds %d MB limit", maxPDFSize>>20))
		return
	}
	filename := filepath.Base(file.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF files are accepted")
		return
	}

	doc, err := h.sessions.RegisterUpload(c.Request.Context(), sessionName, filename)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	path := h.documentPath(doc.SessionID, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "store upload failed")
		return
	}
	if err := c.SaveUploadedFile(file, path); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "store upload failed")
		return
	}

	if err := h.ingest.Submit(c.Request.Context(), doc.ID, path); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Accepted(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.sessions.ListDocuments(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Status(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	doc, err := h.sessions.GetDocument(c.Request.Context(), uint(id))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Reingest(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	doc, err := h.sessions.GetDocument(c.Request.Context(), uint(id))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	path := h.documentPath(doc.SessionID, doc.Filename)
	if err := h.ingest.Reingest(c.Request.Context(), doc.ID, path); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Accepted(c, gin.H{"document_id": doc.ID, "status": "queued"})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	sessionName := c.Param("name")
	filename := c.Param("filename")
	if err := h.sessions.DeleteDocument(c.Request.Context(), sessionName, filename); err != nil {
		writeServiceError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": filename})
}

func (h *DocumentHandler) documentPath(sessionID uint, filename string) string {
	return filepath.Join(h.uploadDir, fmt.Sprintf("session-%d", sessionID), filename)
}
