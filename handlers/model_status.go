package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"maize-resilience-api/model"
	"maize-resilience-api/services"

	"github.com/gin-gonic/gin"
)

const modelStatusCacheKey = "model:status"

type ModelHandler struct {
	shared  *model.Shared
	cache   *services.CacheService
	version string
}

func NewModelHandler(shared *model.Shared, cache *services.CacheService, version string) *ModelHandler {
	return &ModelHandler{shared: shared, cache: cache, version: version}
}

type ModelStatusResponse struct {
	IsTrained          bool                   `json:"is_trained"`
	Algorithm          string                 `json:"algorithm"`
	FeatureNames       []string               `json:"feature_names"`
	ModelParams        model.ForestParams     `json:"model_params"`
	Version            string                 `json:"version"`
	BenchmarkYield     float64                `json:"benchmark_yield"`
	PerformanceMetrics *model.TrainingMetrics `json:"performance_metrics,omitempty"`
}

func (h *ModelHandler) Status(c *gin.Context) {
	m := h.shared.Get()
	if m == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model not initialized"})
		return
	}

	var cached ModelStatusResponse
	if err := h.cache.Get(c.Request.Context(), modelStatusCacheKey, &cached); err == nil && cached.Algorithm != "" {
		c.JSON(http.StatusOK, cached)
		return
	}

	resp := ModelStatusResponse{
		IsTrained:      m.IsTrained(),
		Algorithm:      model.Algorithm,
		FeatureNames:   m.FeatureNames(),
		ModelParams:    m.Params(),
		Version:        h.version,
		BenchmarkYield: m.BenchmarkYield(),
	}
	if tm, ok := m.Metrics(); ok {
		resp.PerformanceMetrics = &tm
	}

	go func() {
		if err := h.cache.Set(context.Background(), modelStatusCacheKey, resp, 30*time.Second); err != nil {
			log.Printf("failed to cache model status: %v", err)
		}
	}()

	c.JSON(http.StatusOK, resp)
}

func (h *ModelHandler) FeatureImportance(c *gin.Context) {
	m := h.shared.Get()
	if m == nil || !m.IsTrained() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model not trained"})
		return
	}

	weights, err := m.FeatureImportance()
	if err != nil {
		log.Printf("failed to get feature importance: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve feature importance"})
		return
	}

	// Ordered list preserves the descending ranking; the map shape matches
	// the per-prediction model_info payload.
	asMap := make(map[string]float64, len(weights))
	for _, w := range weights {
		asMap[w.Feature] = w.Weight
	}

	c.JSON(http.StatusOK, gin.H{
		"feature_importance": asMap,
		"ranking":            weights,
		"timestamp":          time.Now().UTC(),
	})
}
