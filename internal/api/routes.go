package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/gin"
)

// SetupRoutes registers the API under /api, guarded by JWT when jwtSecret
// is set, and /metrics when metrics is non-nil.
func SetupRoutes(router *gin.Engine, h *Handler, jwtSecret string, metrics http.Handler) {
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	api := infragin.ProtectedGroup(router, "/api", jwtSecret)
	{
		api.GET("/models", h.ListModels)             // GET /api/models
		api.POST("/predict", h.Predict)              // POST /api/predict
		api.POST("/classify/batch", h.ClassifyBatch) // POST /api/classify/batch
	}
}
