package model

import (
	"encoding/gob"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Algorithm names the estimator family reported by the status endpoints.
const Algorithm = "Random Forest"

// DefaultBenchmarkYield is the reference yield (tonnes/ha) a resilience
// score of 100 corresponds to.
const DefaultBenchmarkYield = 5.0

const cvFolds = 5

// TrainingMetrics summarizes a training run: holdout fit quality plus
// k-fold cross-validation spread on the training split.
type TrainingMetrics struct {
	R2       float64 `json:"r2_score"`
	RMSE     float64 `json:"rmse"`
	CVR2Mean float64 `json:"cv_r2_mean"`
	CVR2Std  float64 `json:"cv_r2_std"`
}

// FeatureWeight is one entry of a descending feature-importance ranking.
type FeatureWeight struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"importance"`
}

// PredictionResult is the outcome of scoring one set of environmental
// inputs. It is recomputed per request and never stored as authoritative
// state.
type PredictionResult struct {
	ResilienceScore float64 `json:"resilience_score"`
	PredictedYield  float64 `json:"predicted_yield"`
	// Confidence is derived from the spread of the per-tree predictions,
	// 1/(1+stddev): a tight ensemble approaches 1, a scattered one 0.
	Confidence        float64            `json:"confidence_score"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	BenchmarkYield    float64            `json:"benchmark_yield"`
}

// ResilienceModel owns the estimator and scaler behind the drought
// resilience score. It starts Untrained; Train or Load transition it to
// Trained. A trained model is read-only: retraining happens out of band on a
// fresh instance which then replaces the shared reference.
type ResilienceModel struct {
	params       ForestParams
	benchmark    float64
	forest       *Forest
	scaler       *StandardScaler
	featureNames []string
	trained      bool
	metrics      *TrainingMetrics
}

// NewResilienceModel returns an untrained model. A benchmarkYield of zero
// falls back to DefaultBenchmarkYield.
func NewResilienceModel(params ForestParams, benchmarkYield float64) *ResilienceModel {
	if benchmarkYield <= 0 {
		benchmarkYield = DefaultBenchmarkYield
	}
	return &ResilienceModel{params: params, benchmark: benchmarkYield}
}

// IsTrained reports whether prediction is valid.
func (m *ResilienceModel) IsTrained() bool { return m.trained }

// Params returns the configured hyperparameters.
func (m *ResilienceModel) Params() ForestParams { return m.params }

// BenchmarkYield returns the normalization constant.
func (m *ResilienceModel) BenchmarkYield() float64 { return m.benchmark }

// FeatureNames returns the predictor order recorded at fit time.
func (m *ResilienceModel) FeatureNames() []string {
	out := make([]string, len(m.featureNames))
	copy(out, m.featureNames)
	return out
}

// Metrics returns the metrics of the last training run, if any.
func (m *ResilienceModel) Metrics() (TrainingMetrics, bool) {
	if m.metrics == nil {
		return TrainingMetrics{}, false
	}
	return *m.metrics, true
}

// Train splits X/y, fits the scaler on the training rows only, grows the
// forest on the scaled training rows, evaluates on the holdout and runs
// 5-fold cross-validation on the training split. seed drives both the
// shuffle and the bootstrap sampling, so a given (data, seed) pair trains
// reproducibly.
func (m *ResilienceModel) Train(X *mat.Dense, y []float64, testSize float64, seed int64) (TrainingMetrics, error) {
	rows, cols := X.Dims()
	if cols != len(FeatureColumns) {
		return TrainingMetrics{}, &ShapeMismatchError{Rows: rows, Targets: len(y), Cols: cols, WantCols: len(FeatureColumns)}
	}
	if rows != len(y) {
		return TrainingMetrics{}, &ShapeMismatchError{Rows: rows, Targets: len(y), Cols: cols, WantCols: cols}
	}
	if rows < 2*cvFolds {
		return TrainingMetrics{}, fmt.Errorf("need at least %d samples to train, got %d", 2*cvFolds, rows)
	}
	if testSize <= 0 || testSize >= 1 {
		return TrainingMetrics{}, fmt.Errorf("test size must be in (0, 1), got %g", testSize)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(rows)
	nTest := int(math.Round(float64(rows) * testSize))
	if nTest < 1 {
		nTest = 1
	}
	testIdx, trainIdx := perm[:nTest], perm[nTest:]

	XTrain, yTrain := subset(X, y, trainIdx)
	XTest, yTest := subset(X, y, testIdx)

	scaler := &StandardScaler{}
	if err := scaler.Fit(XTrain); err != nil {
		return TrainingMetrics{}, err
	}
	XTrainScaled, err := scaler.TransformMatrix(XTrain)
	if err != nil {
		return TrainingMetrics{}, err
	}
	XTestScaled, err := scaler.TransformMatrix(XTest)
	if err != nil {
		return TrainingMetrics{}, err
	}

	params := m.params
	params.Seed = seed
	forest := &Forest{Params: params}
	if err := forest.Fit(XTrainScaled, yTrain); err != nil {
		return TrainingMetrics{}, err
	}

	estimates := make([]float64, len(yTest))
	for i := range yTest {
		estimates[i] = forest.Predict(mat.Row(nil, i, XTestScaled))
	}
	r2 := stat.RSquaredFrom(estimates, yTest, nil)
	rmse := rootMeanSquaredError(estimates, yTest)

	cvMean, cvStd := crossValidate(XTrainScaled, yTrain, params)

	m.scaler = scaler
	m.forest = forest
	m.featureNames = append([]string{}, FeatureColumns...)
	m.trained = true
	m.metrics = &TrainingMetrics{R2: r2, RMSE: rmse, CVR2Mean: cvMean, CVR2Std: cvStd}

	log.Printf("model trained: r2=%.4f rmse=%.4f cv_r2=%.4f (+/- %.4f)", r2, rmse, cvMean, cvStd*2)
	return *m.metrics, nil
}

// PredictResilienceScore scales the three inputs with the fitted scaler,
// obtains a raw yield from the forest and normalizes it against the
// benchmark yield into a score clamped to [0, 100].
func (m *ResilienceModel) PredictResilienceScore(rainfall, soilPH, organicCarbon float64) (PredictionResult, error) {
	if !m.trained {
		return PredictionResult{}, ErrNotTrained
	}

	scaled, err := m.scaler.Transform([]float64{rainfall, soilPH, organicCarbon})
	if err != nil {
		return PredictionResult{}, err
	}

	perTree := m.forest.PredictAll(scaled)
	yield := stat.Mean(perTree, nil)
	spread := stat.PopStdDev(perTree, nil)

	score := yield / m.benchmark * 100
	score = math.Max(0, math.Min(100, score))

	importance := make(map[string]float64, len(m.featureNames))
	for i, w := range m.forest.FeatureImportances() {
		importance[m.featureNames[i]] = w
	}

	return PredictionResult{
		ResilienceScore:   round(score, 1),
		PredictedYield:    round(math.Max(0, yield), 2),
		Confidence:        round(1/(1+spread), 2),
		FeatureImportance: importance,
		BenchmarkYield:    m.benchmark,
	}, nil
}

// FeatureImportance returns the fitted importances sorted descending.
func (m *ResilienceModel) FeatureImportance() ([]FeatureWeight, error) {
	if !m.trained {
		return nil, ErrNotTrained
	}
	weights := m.forest.FeatureImportances()
	out := make([]FeatureWeight, len(weights))
	for i, w := range weights {
		out[i] = FeatureWeight{Feature: m.featureNames[i], Weight: w}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Weight > out[b].Weight })
	return out, nil
}

// artifact is the on-disk shape of a saved model. Trained is a pointer so
// that artifacts written before the flag existed decode as nil and the
// loader can infer trained-ness from the estimator instead.
type artifact struct {
	Forest       *Forest
	Scaler       *StandardScaler
	FeatureNames []string
	Trained      *bool
}

// Save persists the estimator, scaler, feature order and trained flag as an
// opaque gob blob. Saving an untrained model is an error.
func (m *ResilienceModel) Save(path string) error {
	if !m.trained {
		return ErrNotTrained
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer f.Close()

	trained := m.trained
	art := artifact{
		Forest:       m.forest,
		Scaler:       m.scaler,
		FeatureNames: m.featureNames,
		Trained:      &trained,
	}
	if err := gob.NewEncoder(f).Encode(&art); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	log.Printf("model saved to %s", path)
	return nil
}

// Load restores a saved artifact into this instance.
func (m *ResilienceModel) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	var art artifact
	if err := gob.NewDecoder(f).Decode(&art); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}

	m.forest = art.Forest
	m.scaler = art.Scaler
	m.featureNames = art.FeatureNames
	if art.Trained != nil {
		m.trained = *art.Trained
	} else {
		m.trained = art.Forest != nil && art.Forest.Fitted() && len(art.FeatureNames) > 0
	}
	if m.forest != nil {
		m.params = m.forest.Params
	}
	m.metrics = nil

	log.Printf("model loaded from %s (trained=%v, features=%v)", path, m.trained, m.featureNames)
	return nil
}

func subset(X *mat.Dense, y []float64, idx []int) (*mat.Dense, []float64) {
	_, cols := X.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	outY := make([]float64, len(idx))
	for row, i := range idx {
		for j := 0; j < cols; j++ {
			out.Set(row, j, X.At(i, j))
		}
		outY[row] = y[i]
	}
	return out, outY
}

func crossValidate(X *mat.Dense, y []float64, params ForestParams) (mean, std float64) {
	rows, _ := X.Dims()
	scores := make([]float64, 0, cvFolds)

	for fold := 0; fold < cvFolds; fold++ {
		lo := fold * rows / cvFolds
		hi := (fold + 1) * rows / cvFolds
		if hi <= lo {
			continue
		}

		var trainIdx, testIdx []int
		for i := 0; i < rows; i++ {
			if i >= lo && i < hi {
				testIdx = append(testIdx, i)
			} else {
				trainIdx = append(trainIdx, i)
			}
		}

		XTrain, yTrain := subset(X, y, trainIdx)
		XTest, yTest := subset(X, y, testIdx)

		forest := &Forest{Params: params}
		if err := forest.Fit(XTrain, yTrain); err != nil {
			continue
		}

		estimates := make([]float64, len(yTest))
		for i := range yTest {
			estimates[i] = forest.Predict(mat.Row(nil, i, XTest))
		}
		scores = append(scores, stat.RSquaredFrom(estimates, yTest, nil))
	}

	if len(scores) == 0 {
		return 0, 0
	}
	mean = stat.Mean(scores, nil)
	std = stat.PopStdDev(scores, nil)
	return mean, std
}

func rootMeanSquaredError(estimates, values []float64) float64 {
	var sum float64
	for i := range values {
		d := estimates[i] - values[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
