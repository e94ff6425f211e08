package handlers

import (
	"fmt"
	"time"
)

// Physical validation bounds for prediction inputs.
const (
	MinRainfall      = 0.0
	MaxRainfall      = 3000.0
	MinSoilPH        = 4.0
	MaxSoilPH        = 10.0
	MinOrganicCarbon = 0.1
	MaxOrganicCarbon = 10.0

	// MaxBatchSize bounds a batch request; larger batches are rejected
	// before any item is scored.
	MaxBatchSize = 1000
)

type PredictionRequest struct {
	Rainfall      float64 `json:"rainfall"`
	SoilPH        float64 `json:"soil_ph"`
	OrganicCarbon float64 `json:"organic_carbon"`
	County        string  `json:"county,omitempty"`
}

// Validate checks each field against its physical bounds and reports the
// offending field together with the allowed range.
func (r PredictionRequest) Validate() error {
	if r.Rainfall < MinRainfall || r.Rainfall > MaxRainfall {
		return fmt.Errorf("rainfall must be between %g and %g mm", MinRainfall, MaxRainfall)
	}
	if r.SoilPH < MinSoilPH || r.SoilPH > MaxSoilPH {
		return fmt.Errorf("soil_ph must be between %g and %g", MinSoilPH, MaxSoilPH)
	}
	if r.OrganicCarbon < MinOrganicCarbon || r.OrganicCarbon > MaxOrganicCarbon {
		return fmt.Errorf("organic_carbon must be between %g and %g%%", MinOrganicCarbon, MaxOrganicCarbon)
	}
	return nil
}

type PredictionPayload struct {
	ResilienceScore float64  `json:"resilience_score"`
	YieldPrediction float64  `json:"yield_prediction"`
	ConfidenceScore float64  `json:"confidence_score"`
	BenchmarkYield  float64  `json:"benchmark_yield"`
	RiskLevel       string   `json:"risk_level"`
	Recommendations []string `json:"recommendations"`
}

type ModelInfo struct {
	Algorithm         string             `json:"algorithm"`
	Features          []string           `json:"features"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	Version           string             `json:"version"`
}

type PredictionResponse struct {
	Prediction      PredictionPayload `json:"prediction"`
	InputParameters PredictionRequest `json:"input_parameters"`
	ModelInfo       ModelInfo         `json:"model_info"`
	Timestamp       time.Time         `json:"timestamp"`
}

type BatchPredictionRequest struct {
	Predictions []PredictionRequest `json:"predictions"`
}

type BatchItemResult struct {
	Input      PredictionRequest  `json:"input"`
	Prediction *PredictionPayload `json:"prediction,omitempty"`
	Status     string             `json:"status"`
	Error      string             `json:"error,omitempty"`
}

type BatchPredictionResponse struct {
	Results         []BatchItemResult `json:"results"`
	TotalProcessed  int               `json:"total_processed"`
	SuccessfulCount int               `json:"successful_count"`
	FailedCount     int               `json:"failed_count"`
	Timestamp       time.Time         `json:"timestamp"`
}

// RiskLevel maps a resilience score onto the three-tier classification.
func RiskLevel(score float64) string {
	switch {
	case score > 70:
		return "Low"
	case score > 50:
		return "Medium"
	default:
		return "High"
	}
}

// Recommendations returns the fixed guidance strings for a risk tier.
func Recommendations(riskLevel string) []string {
	switch riskLevel {
	case "Low":
		return []string{
			"Maintain current soil management practices",
			"Monitor rainfall patterns",
			"Consider crop rotation",
		}
	case "Medium":
		return []string{
			"Consider soil improvement strategies",
			"Monitor rainfall patterns",
			"Consider crop rotation",
			"Optimize irrigation if available",
		}
	default:
		return []string{
			"Consider soil improvement strategies",
			"Prioritize drought-tolerant maize varieties",
			"Optimize irrigation if available",
			"Monitor rainfall patterns",
		}
	}
}
