package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

// recentWindow bounds the in-memory response-time window.
const recentWindow = 1000

// FeatureStats tracks the observed distribution of one input feature.
type FeatureStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Count int64   `json:"count"`
	sum   float64
}

// Snapshot is a point-in-time copy of the collector state.
type Snapshot struct {
	TotalPredictions      int64                   `json:"total_predictions"`
	SuccessfulPredictions int64                   `json:"successful_predictions"`
	FailedPredictions     int64                   `json:"failed_predictions"`
	AverageResponseTime   float64                 `json:"average_response_time_seconds"`
	MedianResponseTime    float64                 `json:"median_response_time_seconds"`
	P95ResponseTime       float64                 `json:"p95_response_time_seconds"`
	PredictionsPerHour    float64                 `json:"predictions_per_hour"`
	RiskLevels            map[string]int64        `json:"risk_level_distribution"`
	Counties              map[string]int64        `json:"county_distribution"`
	Endpoints             map[string]int64        `json:"endpoint_usage"`
	Features              map[string]FeatureStats `json:"feature_distributions"`
	UptimeSeconds         float64                 `json:"uptime_seconds"`
	Timestamp             time.Time               `json:"timestamp"`
}

// Collector aggregates request volume, latency and feature distributions
// for the life of the process. It is shared by all requests; every method
// is safe for concurrent use. State is lost on restart and reset only by
// explicit operator action.
type Collector struct {
	mu         sync.Mutex
	startTime  time.Time
	total      int64
	successful int64
	failed     int64
	procTotal  float64
	recent     []float64
	riskLevels map[string]int64
	counties   map[string]int64
	endpoints  map[string]int64
	features   map[string]*FeatureStats
}

func NewCollector() *Collector {
	c := &Collector{}
	c.reset()
	return c
}

func (c *Collector) reset() {
	c.startTime = time.Now()
	c.total, c.successful, c.failed = 0, 0, 0
	c.procTotal = 0
	c.recent = nil
	c.riskLevels = make(map[string]int64)
	c.counties = make(map[string]int64)
	c.endpoints = make(map[string]int64)
	c.features = make(map[string]*FeatureStats)
}

// Reset clears all aggregates. Operator-only.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// RecordRequest counts one hit on an endpoint.
func (c *Collector) RecordRequest(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoints[endpoint]++
}

// RecordPrediction records one scoring attempt. Failed attempts contribute
// to volume and latency but not to the feature or risk distributions.
func (c *Collector) RecordPrediction(features map[string]float64, county, riskLevel string, processingTime time.Duration, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	if success {
		c.successful++
	} else {
		c.failed++
	}

	secs := processingTime.Seconds()
	c.procTotal += secs
	c.recent = append(c.recent, secs)
	if len(c.recent) > recentWindow {
		c.recent = c.recent[len(c.recent)-recentWindow:]
	}

	if !success {
		return
	}

	if county == "" {
		county = "Unknown"
	}
	c.counties[county]++
	if riskLevel != "" {
		c.riskLevels[riskLevel]++
	}
	for name, v := range features {
		fs, ok := c.features[name]
		if !ok {
			fs = &FeatureStats{Min: math.Inf(1), Max: math.Inf(-1)}
			c.features[name] = fs
		}
		fs.Count++
		fs.sum += v
		fs.Min = math.Min(fs.Min, v)
		fs.Max = math.Max(fs.Max, v)
	}
}

// Snapshot returns a point-in-time copy of all aggregates.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	uptime := now.Sub(c.startTime).Seconds()

	snap := Snapshot{
		TotalPredictions:      c.total,
		SuccessfulPredictions: c.successful,
		FailedPredictions:     c.failed,
		RiskLevels:            copyCounts(c.riskLevels),
		Counties:              copyCounts(c.counties),
		Endpoints:             copyCounts(c.endpoints),
		Features:              make(map[string]FeatureStats, len(c.features)),
		UptimeSeconds:         uptime,
		Timestamp:             now.UTC(),
	}

	if c.total > 0 {
		snap.AverageResponseTime = c.procTotal / float64(c.total)
	}
	if uptime > 0 {
		snap.PredictionsPerHour = float64(c.total) / uptime * 3600
	}
	if len(c.recent) > 0 {
		if median, err := stats.Median(c.recent); err == nil {
			snap.MedianResponseTime = median
		}
		if p95, err := stats.Percentile(c.recent, 95); err == nil {
			snap.P95ResponseTime = p95
		}
	}
	for name, fs := range c.features {
		out := *fs
		if fs.Count > 0 {
			out.Mean = fs.sum / float64(fs.Count)
		}
		snap.Features[name] = out
	}
	return snap
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
