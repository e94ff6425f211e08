package models

import "time"

// ModelVersion records one out-of-band training run and where its artifact
// was written.
type ModelVersion struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Version      string    `gorm:"column:version" json:"version"`
	Algorithm    string    `gorm:"column:algorithm" json:"algorithm"`
	R2Score      float64   `gorm:"column:r2_score" json:"r2_score"`
	RMSE         float64   `gorm:"column:rmse" json:"rmse"`
	CVR2Mean     float64   `gorm:"column:cv_r2_mean" json:"cv_r2_mean"`
	CVR2Std      float64   `gorm:"column:cv_r2_std" json:"cv_r2_std"`
	SampleCount  int       `gorm:"column:sample_count" json:"sample_count"`
	ArtifactPath string    `gorm:"column:artifact_path" json:"artifact_path"`
	TrainedAt    time.Time `gorm:"column:trained_at" json:"trained_at"`
}

func (ModelVersion) TableName() string { return "model_versions" }
