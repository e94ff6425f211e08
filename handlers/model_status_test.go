package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"maize-resilience-api/model"
	"maize-resilience-api/services"

	"github.com/gin-gonic/gin"
)

func newModelRouter(shared *model.Shared) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewModelHandler(shared, services.NewDisabledCache(), "2.0.0")
	router := gin.New()
	router.GET("/api/model/status", h.Status)
	router.GET("/api/model/feature-importance", h.FeatureImportance)
	return router
}

func getJSON(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestModelStatusTrained(t *testing.T) {
	router := newModelRouter(newTrainedShared(t))

	w := getJSON(router, "/api/model/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp ModelStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if !resp.IsTrained {
		t.Error("is_trained should be true")
	}
	if resp.Algorithm != "Random Forest" {
		t.Errorf("algorithm = %q", resp.Algorithm)
	}
	if len(resp.FeatureNames) != 3 {
		t.Errorf("feature names = %v, want 3 entries", resp.FeatureNames)
	}
	if resp.PerformanceMetrics == nil {
		t.Error("performance metrics missing for a trained model")
	}
	if resp.BenchmarkYield != 5.0 {
		t.Errorf("benchmark yield = %v, want 5.0", resp.BenchmarkYield)
	}
}

func TestModelStatusUntrained(t *testing.T) {
	untrained := model.NewShared(model.NewResilienceModel(model.DefaultForestParams(), 5.0))
	router := newModelRouter(untrained)

	w := getJSON(router, "/api/model/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp ModelStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.IsTrained {
		t.Error("is_trained should be false before training")
	}
	if resp.PerformanceMetrics != nil {
		t.Error("performance metrics should be absent before training")
	}
}

func TestFeatureImportanceEndpoint(t *testing.T) {
	router := newModelRouter(newTrainedShared(t))

	w := getJSON(router, "/api/model/feature-importance")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		FeatureImportance map[string]float64    `json:"feature_importance"`
		Ranking           []model.FeatureWeight `json:"ranking"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.FeatureImportance) != 3 {
		t.Errorf("feature_importance = %v, want 3 entries", resp.FeatureImportance)
	}
	if len(resp.Ranking) != 3 {
		t.Fatalf("ranking = %v, want 3 entries", resp.Ranking)
	}
	for i := 1; i < len(resp.Ranking); i++ {
		if resp.Ranking[i-1].Weight < resp.Ranking[i].Weight {
			t.Errorf("ranking not sorted descending at %d", i)
		}
	}
}

func TestFeatureImportanceUntrained(t *testing.T) {
	untrained := model.NewShared(model.NewResilienceModel(model.DefaultForestParams(), 5.0))
	router := newModelRouter(untrained)

	w := getJSON(router, "/api/model/feature-importance")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}
