package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	predictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agriadapt_predictions_total",
		Help: "Total number of resilience predictions by outcome.",
	}, []string{"status"})
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agriadapt_request_duration_seconds",
		Help:    "Duration of prediction request handling.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"endpoint"})
	resilienceScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agriadapt_resilience_score",
		Help:    "Distribution of predicted resilience scores.",
		Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})
	batchSizes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agriadapt_batch_size",
		Help:    "Distribution of batch prediction sizes.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
)

// ObservePrediction feeds the prometheus side of a scoring attempt.
func ObservePrediction(endpoint string, score float64, d time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	predictionsTotal.WithLabelValues(status).Inc()
	requestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
	if success {
		resilienceScores.Observe(score)
	}
}

// ObserveBatch records the size of an accepted batch request.
func ObserveBatch(size int) {
	batchSizes.Observe(float64(size))
}
