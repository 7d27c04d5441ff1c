package memory

import (
	"context"
	"fmt"
	"sync"
)

// DocumentStore fakes the external document service: it mints deterministic
// artifact paths and remembers releases. Useful for tests and demo mode.
type DocumentStore struct {
	mu        sync.Mutex
	generated int
	Released  []string
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{}
}

func (d *DocumentStore) GenerateArtifact(_ context.Context, recordID, questionKey, _ string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generated++
	return fmt.Sprintf("/artifacts/%s/%s.pdf", recordID, questionKey), nil
}

func (d *DocumentStore) Release(_ context.Context, ref string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Released = append(d.Released, ref)
	return nil
}

// Generated reports how many artifacts have been produced.
func (d *DocumentStore) Generated() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.generated
}
