package handlers

import (
	"context"
	"net/http"
	"time"

	"maize-resilience-api/metrics"
	"maize-resilience-api/model"
	"maize-resilience-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type MetaHandler struct {
	shared    *model.Shared
	collector *metrics.Collector
	cache     *services.CacheService
	db        *gorm.DB
	counties  []string
	version   string
}

func NewMetaHandler(shared *model.Shared, collector *metrics.Collector, cache *services.CacheService, db *gorm.DB, counties []string, version string) *MetaHandler {
	return &MetaHandler{
		shared:    shared,
		collector: collector,
		cache:     cache,
		db:        db,
		counties:  counties,
		version:   version,
	}
}

func (h *MetaHandler) Root(c *gin.Context) {
	m := h.shared.Get()
	modelStatus := "not_trained"
	if m != nil && m.IsTrained() {
		modelStatus = "trained"
	}

	c.JSON(http.StatusOK, gin.H{
		"service":      "Maize Resilience API",
		"version":      h.version,
		"status":       "operational",
		"model_status": modelStatus,
		"endpoints": gin.H{
			"health":             "/health",
			"counties":           "/api/counties",
			"predict":            "/api/predict",
			"batch_predict":      "/api/predict/batch",
			"model_status":       "/api/model/status",
			"feature_importance": "/api/model/feature-importance",
			"metrics":            "/api/metrics",
			"prometheus":         "/metrics",
			"live":               "/ws/live",
		},
	})
}

func (h *MetaHandler) Health(c *gin.Context) {
	m := h.shared.Get()
	modelHealthy := m != nil && m.IsTrained()

	dbHealthy := false
	if sqlDB, err := h.db.DB(); err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		dbHealthy = sqlDB.PingContext(ctx) == nil
		cancel()
	}

	components := gin.H{
		"model":    healthWord(modelHealthy),
		"database": healthWord(dbHealthy),
		"cache":    healthWord(h.cache.Available()),
		"metrics":  healthWord(h.collector != nil),
	}

	status := "healthy"
	switch {
	case !modelHealthy && !dbHealthy:
		status = "unhealthy"
	case !modelHealthy || !dbHealthy || !h.cache.Available():
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"service":    "Maize Resilience API",
		"version":    h.version,
		"components": components,
		"timestamp":  time.Now().UTC(),
	})
}

func (h *MetaHandler) Counties(c *gin.Context) {
	const cacheKey = "counties:all"

	var cached struct {
		Counties []string `json:"counties"`
		Count    int      `json:"count"`
	}
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.Counties != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	resp := gin.H{"counties": h.counties, "count": len(h.counties)}
	go h.cache.Set(context.Background(), cacheKey, resp, time.Hour)

	c.JSON(http.StatusOK, resp)
}

func (h *MetaHandler) Metrics(c *gin.Context) {
	if h.collector == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics collector not available"})
		return
	}
	c.JSON(http.StatusOK, h.collector.Snapshot())
}

func healthWord(ok bool) string {
	if ok {
		return "healthy"
	}
	return "unhealthy"
}
