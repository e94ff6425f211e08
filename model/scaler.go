package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each feature on its mean and divides by its
// standard deviation. Fit on the training split only; Transform is a pure
// function of the fitted parameters, so repeated calls over the same input
// produce bit-identical output.
type StandardScaler struct {
	Means []float64
	Stds  []float64
}

// Fit computes per-column mean and standard deviation over X.
func (s *StandardScaler) Fit(X *mat.Dense) error {
	rows, cols := X.Dims()
	if rows == 0 {
		return fmt.Errorf("cannot fit scaler on empty matrix")
	}

	s.Means = make([]float64, cols)
	s.Stds = make([]float64, cols)

	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, X)
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 {
			// Constant feature: leave it centered but unscaled.
			std = 1
		}
		s.Means[j] = mean
		s.Stds[j] = std
	}
	return nil
}

// Fitted reports whether Fit has run.
func (s *StandardScaler) Fitted() bool { return len(s.Means) > 0 }

// Transform scales a single feature vector.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if !s.Fitted() {
		return nil, fmt.Errorf("scaler is not fitted")
	}
	if len(x) != len(s.Means) {
		return nil, fmt.Errorf("feature vector has %d values, scaler expects %d", len(x), len(s.Means))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Means[j]) / s.Stds[j]
	}
	return out, nil
}

// TransformMatrix scales every row of X into a new matrix.
func (s *StandardScaler) TransformMatrix(X *mat.Dense) (*mat.Dense, error) {
	if !s.Fitted() {
		return nil, fmt.Errorf("scaler is not fitted")
	}
	rows, cols := X.Dims()
	if cols != len(s.Means) {
		return nil, fmt.Errorf("matrix has %d columns, scaler expects %d", cols, len(s.Means))
	}
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, (X.At(i, j)-s.Means[j])/s.Stds[j])
		}
	}
	return out, nil
}
