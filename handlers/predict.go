package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"maize-resilience-api/metrics"
	"maize-resilience-api/model"
	"maize-resilience-api/models"

	"github.com/gin-gonic/gin"
)

// RecordStore receives the deferred audit write of a served prediction.
// Implemented by services.PredictionStore.
type RecordStore interface {
	Enqueue(models.PredictionRecord)
}

type PredictionHandler struct {
	shared    *model.Shared
	collector *metrics.Collector
	store     RecordStore
	version   string
}

func NewPredictionHandler(shared *model.Shared, collector *metrics.Collector, store RecordStore, version string) *PredictionHandler {
	return &PredictionHandler{shared: shared, collector: collector, store: store, version: version}
}

func (h *PredictionHandler) Predict(c *gin.Context) {
	start := time.Now()
	h.collector.RecordRequest("/api/predict")

	m := h.shared.Get()
	if m == nil || !m.IsTrained() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model not trained, run an out-of-band training step first"})
		return
	}

	var req PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := m.PredictResilienceScore(req.Rainfall, req.SoilPH, req.OrganicCarbon)
	if err != nil {
		elapsed := time.Since(start)
		h.collector.RecordPrediction(nil, req.County, "", elapsed, false)
		metrics.ObservePrediction("/api/predict", 0, elapsed, false)
		log.Printf("prediction failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error during prediction"})
		return
	}

	risk := RiskLevel(result.ResilienceScore)
	resp := PredictionResponse{
		Prediction: PredictionPayload{
			ResilienceScore: result.ResilienceScore,
			YieldPrediction: result.PredictedYield,
			ConfidenceScore: result.Confidence,
			BenchmarkYield:  result.BenchmarkYield,
			RiskLevel:       risk,
			Recommendations: Recommendations(risk),
		},
		InputParameters: req,
		ModelInfo: ModelInfo{
			Algorithm:         model.Algorithm,
			Features:          m.FeatureNames(),
			FeatureImportance: result.FeatureImportance,
			Version:           h.version,
		},
		Timestamp: time.Now().UTC(),
	}

	elapsed := time.Since(start)
	h.recordSuccess(req, result.ResilienceScore, result.PredictedYield, result.Confidence, risk, elapsed)

	c.JSON(http.StatusOK, resp)
}

func (h *PredictionHandler) PredictBatch(c *gin.Context) {
	start := time.Now()
	h.collector.RecordRequest("/api/predict/batch")

	m := h.shared.Get()
	if m == nil || !m.IsTrained() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model not trained, run an out-of-band training step first"})
		return
	}

	var req BatchPredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Predictions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch must contain at least one prediction"})
		return
	}
	if len(req.Predictions) > MaxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("batch size %d exceeds maximum of %d", len(req.Predictions), MaxBatchSize),
		})
		return
	}
	metrics.ObserveBatch(len(req.Predictions))

	results := make([]BatchItemResult, 0, len(req.Predictions))
	successful := 0

	type accepted struct {
		req    PredictionRequest
		result model.PredictionResult
		risk   string
	}
	var ok []accepted

	for i, item := range req.Predictions {
		if err := item.Validate(); err != nil {
			results = append(results, BatchItemResult{
				Input:  item,
				Status: "error",
				Error:  fmt.Sprintf("item %d: %v", i+1, err),
			})
			continue
		}

		result, err := m.PredictResilienceScore(item.Rainfall, item.SoilPH, item.OrganicCarbon)
		if err != nil {
			log.Printf("batch item %d prediction failed: %v", i+1, err)
			results = append(results, BatchItemResult{
				Input:  item,
				Status: "error",
				Error:  fmt.Sprintf("item %d: prediction failed", i+1),
			})
			continue
		}

		risk := RiskLevel(result.ResilienceScore)
		results = append(results, BatchItemResult{
			Input: item,
			Prediction: &PredictionPayload{
				ResilienceScore: result.ResilienceScore,
				YieldPrediction: result.PredictedYield,
				ConfidenceScore: result.Confidence,
				BenchmarkYield:  result.BenchmarkYield,
				RiskLevel:       risk,
				Recommendations: Recommendations(risk),
			},
			Status: "success",
		})
		ok = append(ok, accepted{req: item, result: result, risk: risk})
		successful++
	}

	// Each item is attributed an equal share of the batch latency.
	share := time.Since(start) / time.Duration(len(req.Predictions))
	for _, a := range ok {
		h.recordSuccess(a.req, a.result.ResilienceScore, a.result.PredictedYield, a.result.Confidence, a.risk, share)
	}
	for i := 0; i < len(req.Predictions)-successful; i++ {
		h.collector.RecordPrediction(nil, "", "", share, false)
		metrics.ObservePrediction("/api/predict/batch", 0, share, false)
	}

	c.JSON(http.StatusOK, BatchPredictionResponse{
		Results:         results,
		TotalProcessed:  len(results),
		SuccessfulCount: successful,
		FailedCount:     len(results) - successful,
		Timestamp:       time.Now().UTC(),
	})
}

// recordSuccess emits the deferred side effects of a served prediction:
// collector and prometheus updates plus an async audit record. None of them
// can fail the response.
func (h *PredictionHandler) recordSuccess(req PredictionRequest, score, yield, confidence float64, risk string, elapsed time.Duration) {
	h.collector.RecordPrediction(map[string]float64{
		"rainfall":       req.Rainfall,
		"soil_ph":        req.SoilPH,
		"organic_carbon": req.OrganicCarbon,
	}, req.County, risk, elapsed, true)
	metrics.ObservePrediction("/api/predict", score, elapsed, true)

	county := req.County
	if county == "" {
		county = "Unknown"
	}
	h.store.Enqueue(models.PredictionRecord{
		Rainfall:         req.Rainfall,
		SoilPH:           req.SoilPH,
		OrganicCarbon:    req.OrganicCarbon,
		County:           county,
		ResilienceScore:  score,
		YieldPrediction:  yield,
		ConfidenceScore:  confidence,
		ProcessingTimeMS: float64(elapsed.Microseconds()) / 1000,
		ModelVersion:     h.version,
		CreatedAt:        time.Now().UTC(),
	})
}
