package model

import (
	"encoding/gob"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func testParams() ForestParams {
	return ForestParams{NEstimators: 20, MaxDepth: 6, MinSamplesLeaf: 2, Seed: 42}
}

// syntheticData generates rows whose yield is a smooth function of the
// three predictors, covering realistic ranges.
func syntheticData(n int) (*mat.Dense, []float64) {
	X := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		rain := 200 + float64(i%50)*22
		ph := 4.5 + float64(i%30)*0.1
		oc := 0.5 + float64(i%25)*0.12
		X.Set(i, 0, rain)
		X.Set(i, 1, ph)
		X.Set(i, 2, oc)
		y[i] = 0.003*rain + 0.25*ph + 0.4*oc
	}
	return X, y
}

func trainedModel(t *testing.T) *ResilienceModel {
	t.Helper()
	m := NewResilienceModel(testParams(), 5.0)
	X, y := syntheticData(100)
	if _, err := m.Train(X, y, 0.2, 42); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	return m
}

// stubModel builds a trained model whose forest always predicts rawYield,
// with an identity scaler, to pin down the score arithmetic.
func stubModel(rawYield float64) *ResilienceModel {
	return &ResilienceModel{
		benchmark: 5.0,
		forest: &Forest{
			Params:     ForestParams{NEstimators: 1},
			NFeatures:  3,
			Trees:      []*TreeNode{{Leaf: true, Value: rawYield}},
			Importance: []float64{1, 0, 0},
		},
		scaler:       &StandardScaler{Means: []float64{0, 0, 0}, Stds: []float64{1, 1, 1}},
		featureNames: append([]string{}, FeatureColumns...),
		trained:      true,
	}
}

func TestPredictBeforeTraining(t *testing.T) {
	m := NewResilienceModel(testParams(), 5.0)

	if _, err := m.PredictResilienceScore(800, 6.5, 2.1); !errors.Is(err, ErrNotTrained) {
		t.Errorf("predict on untrained model: err = %v, want ErrNotTrained", err)
	}
	if _, err := m.FeatureImportance(); !errors.Is(err, ErrNotTrained) {
		t.Errorf("feature importance on untrained model: err = %v, want ErrNotTrained", err)
	}
}

func TestTrainTransitionsToTrained(t *testing.T) {
	m := NewResilienceModel(testParams(), 5.0)
	if m.IsTrained() {
		t.Fatal("new model should be untrained")
	}

	X, y := syntheticData(100)
	tm, err := m.Train(X, y, 0.2, 42)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if !m.IsTrained() {
		t.Fatal("model should be trained after Train")
	}
	if tm.RMSE < 0 {
		t.Errorf("rmse = %v, want non-negative", tm.RMSE)
	}
	if got, ok := m.Metrics(); !ok || got != tm {
		t.Errorf("Metrics() = %v, %v; want %v, true", got, ok, tm)
	}

	// The same call that failed before training now succeeds.
	if _, err := m.PredictResilienceScore(800, 6.5, 2.1); err != nil {
		t.Errorf("predict after training failed: %v", err)
	}
}

func TestTrainShapeMismatch(t *testing.T) {
	m := NewResilienceModel(testParams(), 5.0)

	var shapeErr *ShapeMismatchError

	_, err := m.Train(mat.NewDense(20, 2, nil), make([]float64, 20), 0.2, 42)
	if !errors.As(err, &shapeErr) {
		t.Errorf("wrong column count: err = %v, want ShapeMismatchError", err)
	}

	_, err = m.Train(mat.NewDense(20, 3, nil), make([]float64, 15), 0.2, 42)
	if !errors.As(err, &shapeErr) {
		t.Errorf("row/target mismatch: err = %v, want ShapeMismatchError", err)
	}
}

func TestScoreBounds(t *testing.T) {
	m := trainedModel(t)

	for _, tc := range []struct {
		rainfall, ph, oc float64
	}{
		{0, 4.0, 0.1},
		{150, 4.8, 0.5},
		{800, 6.5, 2.1},
		{1500, 7.2, 4.0},
		{3000, 10.0, 10.0},
	} {
		res, err := m.PredictResilienceScore(tc.rainfall, tc.ph, tc.oc)
		if err != nil {
			t.Fatalf("predict(%v) failed: %v", tc, err)
		}
		if res.ResilienceScore < 0 || res.ResilienceScore > 100 {
			t.Errorf("score for %v = %v, want [0, 100]", tc, res.ResilienceScore)
		}
		if res.PredictedYield < 0 {
			t.Errorf("yield for %v = %v, want >= 0", tc, res.PredictedYield)
		}
		if res.Confidence <= 0 || res.Confidence > 1 {
			t.Errorf("confidence for %v = %v, want (0, 1]", tc, res.Confidence)
		}
	}
}

func TestPredictDeterministic(t *testing.T) {
	m := trainedModel(t)

	first, err := m.PredictResilienceScore(800, 6.5, 2.1)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	second, err := m.PredictResilienceScore(800, 6.5, 2.1)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	if first.ResilienceScore != second.ResilienceScore ||
		first.PredictedYield != second.PredictedYield ||
		first.Confidence != second.Confidence {
		t.Errorf("identical inputs diverged: %+v vs %+v", first, second)
	}
}

func TestScoreNormalization(t *testing.T) {
	tests := []struct {
		name      string
		rawYield  float64
		wantScore float64
	}{
		{"benchmark fraction", 4.2, 84.0},
		{"low yield", 0.1, 2.0},
		{"clamps at 100", 20.0, 100.0},
		{"exact benchmark", 5.0, 100.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := stubModel(tt.rawYield)
			res, err := m.PredictResilienceScore(800, 6.5, 2.1)
			if err != nil {
				t.Fatalf("predict failed: %v", err)
			}
			if res.ResilienceScore != tt.wantScore {
				t.Errorf("score = %v, want %v", res.ResilienceScore, tt.wantScore)
			}
			if res.BenchmarkYield != 5.0 {
				t.Errorf("benchmark = %v, want 5.0", res.BenchmarkYield)
			}
		})
	}
}

func TestFeatureImportanceProperties(t *testing.T) {
	m := trainedModel(t)

	weights, err := m.FeatureImportance()
	if err != nil {
		t.Fatalf("FeatureImportance failed: %v", err)
	}
	if len(weights) != 3 {
		t.Fatalf("importance entries = %d, want 3", len(weights))
	}

	sum := 0.0
	for i, w := range weights {
		if w.Weight < 0 {
			t.Errorf("importance %q = %v, want non-negative", w.Feature, w.Weight)
		}
		if i > 0 && weights[i-1].Weight < w.Weight {
			t.Errorf("importance not sorted descending at %d", i)
		}
		sum += w.Weight
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("importances sum = %v, want 1.0", sum)
	}
}

func TestSaveUntrained(t *testing.T) {
	m := NewResilienceModel(testParams(), 5.0)
	path := filepath.Join(t.TempDir(), "model.gob")

	if err := m.Save(path); !errors.Is(err, ErrNotTrained) {
		t.Errorf("save untrained: err = %v, want ErrNotTrained", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no artifact should be written for an untrained model")
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	m := trainedModel(t)
	path := filepath.Join(t.TempDir(), "model.gob")

	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restored := NewResilienceModel(testParams(), 5.0)
	if err := restored.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !restored.IsTrained() {
		t.Fatal("restored model should be trained")
	}

	want, err := m.PredictResilienceScore(800, 6.5, 2.1)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	got, err := restored.PredictResilienceScore(800, 6.5, 2.1)
	if err != nil {
		t.Fatalf("predict on restored model failed: %v", err)
	}
	if got.ResilienceScore != want.ResilienceScore || got.PredictedYield != want.PredictedYield {
		t.Errorf("restored model diverged: %+v vs %+v", got, want)
	}
}

func TestLoadInfersMissingTrainedFlag(t *testing.T) {
	m := trainedModel(t)
	path := filepath.Join(t.TempDir(), "legacy.gob")

	// A legacy artifact carries no trained flag.
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	art := artifact{
		Forest:       m.forest,
		Scaler:       m.scaler,
		FeatureNames: m.featureNames,
		Trained:      nil,
	}
	if err := gob.NewEncoder(f).Encode(&art); err != nil {
		t.Fatal(err)
	}
	f.Close()

	restored := NewResilienceModel(testParams(), 5.0)
	if err := restored.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !restored.IsTrained() {
		t.Error("trained flag should be inferred from the fitted estimator")
	}
}
