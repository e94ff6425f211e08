package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"maize-resilience-api/config"
	"maize-resilience-api/metrics"
	"maize-resilience-api/model"
	"maize-resilience-api/models"
	"maize-resilience-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AdminHandler serves the operator-only out-of-band operations: retraining
// the model from the configured dataset and resetting the metrics
// collector. Retraining builds a fresh model instance and swaps the shared
// reference, so in-flight predictions keep using the old one.
type AdminHandler struct {
	shared    *model.Shared
	collector *metrics.Collector
	cache     *services.CacheService
	db        *gorm.DB
	cfg       config.ModelConfig
}

func NewAdminHandler(shared *model.Shared, collector *metrics.Collector, cache *services.CacheService, db *gorm.DB, cfg config.ModelConfig) *AdminHandler {
	return &AdminHandler{shared: shared, collector: collector, cache: cache, db: db, cfg: cfg}
}

type TrainRequest struct {
	DataPath string  `json:"data_path,omitempty"`
	TestSize float64 `json:"test_size,omitempty"`
	Seed     *int64  `json:"seed,omitempty"`
}

func (h *AdminHandler) TrainModel(c *gin.Context) {
	var req TrainRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	dataPath := req.DataPath
	if dataPath == "" {
		dataPath = h.cfg.TrainingData
	}
	testSize := req.TestSize
	if testSize == 0 {
		testSize = h.cfg.TestSize
	}
	seed := h.cfg.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}

	ds, err := model.LoadCSV(dataPath)
	if err != nil {
		log.Printf("training data load failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to load training data"})
		return
	}

	X, y, _, err := model.PrepareFeatures(ds)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := model.ForestParams{
		NEstimators:    h.cfg.NEstimators,
		MaxDepth:       h.cfg.MaxDepth,
		MinSamplesLeaf: h.cfg.MinSamplesLeaf,
		Seed:           seed,
	}
	fresh := model.NewResilienceModel(params, h.cfg.BenchmarkYield)

	tm, err := fresh.Train(X, y, testSize, seed)
	if err != nil {
		log.Printf("training failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "training failed"})
		return
	}

	if err := fresh.Save(h.cfg.ArtifactPath); err != nil {
		log.Printf("failed to save model artifact: %v", err)
	}

	h.shared.Replace(fresh)
	if err := h.cache.Delete(c.Request.Context(), modelStatusCacheKey); err != nil {
		log.Printf("failed to invalidate model status cache: %v", err)
	}

	version := models.ModelVersion{
		Version:      h.cfg.Version,
		Algorithm:    model.Algorithm,
		R2Score:      tm.R2,
		RMSE:         tm.RMSE,
		CVR2Mean:     tm.CVR2Mean,
		CVR2Std:      tm.CVR2Std,
		SampleCount:  ds.Len(),
		ArtifactPath: h.cfg.ArtifactPath,
		TrainedAt:    time.Now().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.db.WithContext(ctx).Create(&version).Error; err != nil {
		log.Printf("failed to record model version: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "model trained and swapped in",
		"samples":          ds.Len(),
		"training_metrics": tm,
		"timestamp":        time.Now().UTC(),
	})
}

func (h *AdminHandler) ResetMetrics(c *gin.Context) {
	h.collector.Reset()
	log.Printf("metrics collector reset by operator")
	c.JSON(http.StatusOK, gin.H{"message": "metrics reset", "timestamp": time.Now().UTC()})
}
