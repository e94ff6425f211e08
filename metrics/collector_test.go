package metrics

import (
	"sync"
	"testing"
	"time"
)

func record(c *Collector, county, risk string, d time.Duration, success bool) {
	c.RecordPrediction(map[string]float64{
		"rainfall":       800,
		"soil_ph":        6.5,
		"organic_carbon": 2.1,
	}, county, risk, d, success)
}

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()

	record(c, "Nakuru", "Low", 10*time.Millisecond, true)
	record(c, "Kitui", "High", 30*time.Millisecond, true)
	record(c, "", "", 20*time.Millisecond, false)

	snap := c.Snapshot()
	if snap.TotalPredictions != 3 {
		t.Errorf("total = %d, want 3", snap.TotalPredictions)
	}
	if snap.SuccessfulPredictions != 2 {
		t.Errorf("successful = %d, want 2", snap.SuccessfulPredictions)
	}
	if snap.FailedPredictions != 1 {
		t.Errorf("failed = %d, want 1", snap.FailedPredictions)
	}

	wantAvg := 0.02
	if diff := snap.AverageResponseTime - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("average response time = %v, want %v", snap.AverageResponseTime, wantAvg)
	}
}

func TestCollectorCountyDistribution(t *testing.T) {
	c := NewCollector()

	record(c, "Nakuru", "Low", time.Millisecond, true)
	record(c, "Nakuru", "Medium", time.Millisecond, true)
	record(c, "", "Low", time.Millisecond, true)

	snap := c.Snapshot()
	if snap.Counties["Nakuru"] != 2 {
		t.Errorf("Nakuru count = %d, want 2", snap.Counties["Nakuru"])
	}
	if snap.Counties["Unknown"] != 1 {
		t.Errorf("Unknown count = %d, want 1", snap.Counties["Unknown"])
	}
}

func TestCollectorFailuresSkipDistributions(t *testing.T) {
	c := NewCollector()

	record(c, "Nakuru", "Low", time.Millisecond, false)

	snap := c.Snapshot()
	if len(snap.Counties) != 0 {
		t.Errorf("failed predictions should not count counties, got %v", snap.Counties)
	}
	if len(snap.Features) != 0 {
		t.Errorf("failed predictions should not feed feature stats, got %v", snap.Features)
	}
}

func TestCollectorFeatureStats(t *testing.T) {
	c := NewCollector()

	c.RecordPrediction(map[string]float64{"rainfall": 400}, "", "Low", time.Millisecond, true)
	c.RecordPrediction(map[string]float64{"rainfall": 1200}, "", "Low", time.Millisecond, true)

	snap := c.Snapshot()
	fs, ok := snap.Features["rainfall"]
	if !ok {
		t.Fatal("rainfall stats missing")
	}
	if fs.Min != 400 || fs.Max != 1200 {
		t.Errorf("min/max = %v/%v, want 400/1200", fs.Min, fs.Max)
	}
	if fs.Mean != 800 {
		t.Errorf("mean = %v, want 800", fs.Mean)
	}
	if fs.Count != 2 {
		t.Errorf("count = %d, want 2", fs.Count)
	}
}

func TestCollectorEndpointsAndWindow(t *testing.T) {
	c := NewCollector()

	c.RecordRequest("/api/predict")
	c.RecordRequest("/api/predict")
	c.RecordRequest("/api/predict/batch")

	for i := 0; i < 20; i++ {
		record(c, "Nakuru", "Low", time.Duration(i+1)*time.Millisecond, true)
	}

	snap := c.Snapshot()
	if snap.Endpoints["/api/predict"] != 2 || snap.Endpoints["/api/predict/batch"] != 1 {
		t.Errorf("endpoint counts = %v", snap.Endpoints)
	}
	if snap.MedianResponseTime <= 0 {
		t.Errorf("median = %v, want > 0", snap.MedianResponseTime)
	}
	if snap.P95ResponseTime < snap.MedianResponseTime {
		t.Errorf("p95 %v should be >= median %v", snap.P95ResponseTime, snap.MedianResponseTime)
	}
}

func TestCollectorReset(t *testing.T) {
	c := NewCollector()

	record(c, "Nakuru", "Low", time.Millisecond, true)
	c.RecordRequest("/api/predict")
	c.Reset()

	snap := c.Snapshot()
	if snap.TotalPredictions != 0 || snap.SuccessfulPredictions != 0 || snap.FailedPredictions != 0 {
		t.Errorf("counts should be zero after reset, got %+v", snap)
	}
	if len(snap.Counties) != 0 || len(snap.Endpoints) != 0 {
		t.Errorf("distributions should be empty after reset")
	}
}

func TestCollectorConcurrentAccess(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				record(c, "Nakuru", "Low", time.Millisecond, true)
				c.RecordRequest("/api/predict")
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	if snap.TotalPredictions != 800 {
		t.Errorf("total = %d, want 800", snap.TotalPredictions)
	}
	if snap.Endpoints["/api/predict"] != 800 {
		t.Errorf("endpoint count = %d, want 800", snap.Endpoints["/api/predict"])
	}
}
