package http

import (
	"github.com/gin-gonic/gin"

	"paperqa/internal/bootstrap"
	"paperqa/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	sessionHandler := handler.NewSessionHandler(app.Sessions)
	documentHandler := handler.NewDocumentHandler(app.Sessions, app.Ingest, app.Config.Storage.UploadDir)
	askHandler := handler.NewAskHandler(app.Sessions, app.Queries)
	metricsHandler := handler.NewMetricsHandler(app.RunLogs)

	v1 := router.Group("/api/v1")

	v1.POST("/sessions", sessionHandler.Create)
	v1.GET("/sessions", sessionHandler.List)
	v1.DELETE("/sessions/:name", sessionHandler.Delete)
	v1.GET("/sessions/:name/questions", sessionHandler.History)

	v1.POST("/sessions/:name/documents", documentHandler.Upload)
	v1.GET("/sessions/:name/documents", documentHandler.List)
	v1.DELETE("/sessions/:name/documents/:filename", documentHandler.Delete)
	v1.GET("/documents/:id/status", documentHandler.Status)
	v1.POST("/documents/:id/reingest", documentHandler.Reingest)

	v1.POST("/ask", askHandler.Ask)
	v1.GET("/metrics", metricsHandler.Summary)

	return router
}
