package memory

import (
	"context"
	"sync"
)

// AttemptRegistry is an in-memory implementation of app.AttemptRegistry.
type AttemptRegistry struct {
	mu   sync.RWMutex
	open map[string]struct{}
}

func NewAttemptRegistry() *AttemptRegistry {
	return &AttemptRegistry{open: make(map[string]struct{})}
}

func (r *AttemptRegistry) Open(_ context.Context, recordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open[recordID] = struct{}{}
	return nil
}

func (r *AttemptRegistry) Close(_ context.Context, recordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.open, recordID)
	return nil
}

func (r *AttemptRegistry) Active(_ context.Context, recordID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.open[recordID]
	return ok, nil
}
