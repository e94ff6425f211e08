package model

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Predictor and target column names expected in the source table.
const (
	ColRainfall      = "Annual_Rainfall_mm"
	ColSoilPH        = "Soil_pH"
	ColOrganicCarbon = "Soil_Organic_Carbon"
	ColYield         = "Maize_Yield_tonnes_ha"
)

// FeatureColumns is the fixed predictor order used at fit and predict time.
var FeatureColumns = []string{ColRainfall, ColSoilPH, ColOrganicCarbon}

// Dataset is an immutable tabular snapshot read from a CSV source.
type Dataset struct {
	columns []string
	records [][]string
}

// Columns returns the header of the source table.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// Len returns the number of data rows.
func (d *Dataset) Len() int { return len(d.records) }

// LoadCSV reads a headered CSV file into a Dataset.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset %s is empty", path)
	}

	return &Dataset{columns: rows[0], records: rows[1:]}, nil
}

// NewDataset builds a Dataset from an in-memory header and rows.
func NewDataset(columns []string, records [][]string) *Dataset {
	return &Dataset{columns: columns, records: records}
}

// PrepareFeatures selects the three predictor columns and the target column
// in fixed order. It returns a (n, 3) feature matrix, a target vector of
// length n and the predictor names in the order the matrix columns use.
// Every required column absent from the dataset is reported in a single
// MissingColumnError.
func PrepareFeatures(ds *Dataset) (*mat.Dense, []float64, []string, error) {
	index := make(map[string]int, len(ds.columns))
	for i, name := range ds.columns {
		index[name] = i
	}

	var missing []string
	required := append(append([]string{}, FeatureColumns...), ColYield)
	for _, name := range required {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, nil, &MissingColumnError{Columns: missing}
	}

	n := len(ds.records)
	X := mat.NewDense(n, len(FeatureColumns), nil)
	y := make([]float64, n)

	for row, record := range ds.records {
		for col, name := range FeatureColumns {
			v, err := parseCell(record, index[name], name, row)
			if err != nil {
				return nil, nil, nil, err
			}
			X.Set(row, col, v)
		}
		v, err := parseCell(record, index[ColYield], ColYield, row)
		if err != nil {
			return nil, nil, nil, err
		}
		y[row] = v
	}

	names := make([]string, len(FeatureColumns))
	copy(names, FeatureColumns)
	return X, y, names, nil
}

func parseCell(record []string, idx int, column string, row int) (float64, error) {
	if idx >= len(record) {
		return 0, fmt.Errorf("row %d is short: no value for column %s", row+1, column)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("row %d column %s: invalid numeric value %q", row+1, column, record[idx])
	}
	return v, nil
}
