package router

import (
	"slices"
	"sync"

	"github.com/nao1215/seocheck/internal/model"
)

// PageStore is the ordered, append-only list of pages accepted during one
// crawl run. It is safe for concurrent use.
type PageStore struct {
	mu      sync.RWMutex
	records []model.PageRecord
}

// NewPageStore returns an empty store.
func NewPageStore() *PageStore {
	return &PageStore{records: make([]model.PageRecord, 0)}
}

// Append adds a record at the end of the store.
func (s *PageStore) Append(r model.PageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

// Records returns a copy of the stored records in insertion order.
func (s *PageStore) Records() []model.PageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Len returns the number of stored records.
func (s *PageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
