package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotTrained is returned by any operation that requires a fitted
// estimator when the model has not been trained or loaded.
var ErrNotTrained = errors.New("model must be trained before use")

// MissingColumnError names every required column absent from a dataset.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// ShapeMismatchError reports feature matrix / target vector dimensions that
// do not line up with what training expects.
type ShapeMismatchError struct {
	Rows     int
	Targets  int
	Cols     int
	WantCols int
}

func (e *ShapeMismatchError) Error() string {
	if e.Cols != e.WantCols {
		return fmt.Sprintf("feature matrix has %d columns, want %d", e.Cols, e.WantCols)
	}
	return fmt.Sprintf("feature matrix has %d rows but target vector has %d", e.Rows, e.Targets)
}
