package model

import "sync/atomic"

// Shared is the process-wide handle to the serving model. Request handlers
// read through it; out-of-band retraining builds a fresh ResilienceModel and
// swaps it in atomically, so a model is never mutated while serving.
type Shared struct {
	ptr atomic.Pointer[ResilienceModel]
}

// NewShared wraps an initial model instance.
func NewShared(m *ResilienceModel) *Shared {
	s := &Shared{}
	s.ptr.Store(m)
	return s
}

// Get returns the current serving model.
func (s *Shared) Get() *ResilienceModel {
	return s.ptr.Load()
}

// Replace swaps the serving model for a newly trained instance.
func (s *Shared) Replace(m *ResilienceModel) {
	s.ptr.Store(m)
}
