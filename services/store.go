package services

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"maize-resilience-api/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	recordsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agriadapt_records_stored_total",
		Help: "Total number of prediction records written to the database.",
	})
	recordsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agriadapt_records_dropped_total",
		Help: "Total number of prediction records dropped (queue full or store closed).",
	})
	storeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agriadapt_store_failures_total",
		Help: "Total number of failed prediction record writes.",
	})
)

const storeQueueSize = 256

// PredictionStore writes prediction records after the response has been
// returned. Writes go through a bounded queue drained by a single worker;
// they never block request handling and their failures are logged and
// dropped, never retried and never surfaced to the client. The audit log
// trades durability for prediction availability.
type PredictionStore struct {
	db     *gorm.DB
	cache  *CacheService
	queue  chan models.PredictionRecord
	done   chan struct{}
	closed atomic.Bool
}

func NewPredictionStore(db *gorm.DB, cache *CacheService) *PredictionStore {
	s := &PredictionStore{
		db:    db,
		cache: cache,
		queue: make(chan models.PredictionRecord, storeQueueSize),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

// Enqueue hands a record to the writer. It never blocks: when the queue is
// full the record is dropped and counted.
func (s *PredictionStore) Enqueue(rec models.PredictionRecord) {
	if s.closed.Load() {
		recordsDropped.Inc()
		return
	}
	select {
	case s.queue <- rec:
	default:
		recordsDropped.Inc()
		log.Printf("prediction store queue full, dropping record (county=%s)", rec.County)
	}
}

func (s *PredictionStore) run() {
	defer close(s.done)
	for rec := range s.queue {
		s.write(rec)
	}
}

func (s *PredictionStore) write(rec models.PredictionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		storeFailures.Inc()
		log.Printf("failed to store prediction record: %v", err)
		return
	}
	recordsStored.Inc()

	if err := s.cache.Publish(ctx, PredictionChannel, rec); err != nil {
		log.Printf("failed to publish prediction event: %v", err)
	}
}

// Close stops intake and waits briefly for the worker to drain the queue.
func (s *PredictionStore) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.queue)
	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		log.Printf("prediction store drain timed out")
	}
}
