package models

import "time"

// PredictionRecord is the append-only audit entry for one served
// prediction. Written asynchronously after the response has been returned;
// never mutated or deleted by the service.
type PredictionRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Rainfall         float64   `gorm:"column:rainfall" json:"rainfall"`
	SoilPH           float64   `gorm:"column:soil_ph" json:"soil_ph"`
	OrganicCarbon    float64   `gorm:"column:organic_carbon" json:"organic_carbon"`
	County           string    `gorm:"column:county;default:Unknown" json:"county"`
	ResilienceScore  float64   `gorm:"column:resilience_score" json:"resilience_score"`
	YieldPrediction  float64   `gorm:"column:yield_prediction" json:"yield_prediction"`
	ConfidenceScore  float64   `gorm:"column:confidence_score" json:"confidence_score"`
	ProcessingTimeMS float64   `gorm:"column:processing_time_ms" json:"processing_time_ms"`
	ModelVersion     string    `gorm:"column:model_version" json:"model_version"`
	CreatedAt        time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (PredictionRecord) TableName() string { return "prediction_records" }
