// Package memory provides the in-memory CompanyStore used by default and in
// tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

// Store keeps company records in memory, keyed by URL.
type Store struct {
	mu      sync.RWMutex
	records map[string]extraction.CompanyRecord
	nextID  int64
	ids     map[string]int64
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		records: make(map[string]extraction.CompanyRecord),
		ids:     make(map[string]int64),
	}
}

// Store upserts the record by URL and returns its numeric id.
func (s *Store) Store(_ context.Context, record extraction.CompanyRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ids[record.URL]
	if !ok {
		s.nextID++
		id = s.nextID
		s.ids[record.URL] = id
	}
	s.records[record.URL] = record
	return id, nil
}

// UpdateStatus sets the status for the URL, creating a stub record when none
// exists yet.
func (s *Store) UpdateStatus(_ context.Context, url string, status extraction.RecordStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[url]
	if !ok {
		rec = extraction.CompanyRecord{URL: url}
		s.nextID++
		s.ids[url] = s.nextID
	}
	rec.Status = status
	s.records[url] = rec
	return nil
}

// Get returns the record for the URL or ErrNotFound.
func (s *Store) Get(_ context.Context, url string) (extraction.CompanyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[url]
	if !ok {
		return extraction.CompanyRecord{}, extraction.ErrNotFound
	}
	return rec, nil
}

// GetRecent returns up to limit records, most recently extracted first.
func (s *Store) GetRecent(_ context.Context, limit int) ([]extraction.CompanyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]extraction.CompanyRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExtractedAt.After(out[j].ExtractedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Search returns records matching every set field of the query.
func (s *Store) Search(_ context.Context, query extraction.StoreQuery) ([]extraction.CompanyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []extraction.CompanyRecord
	for _, rec := range s.records {
		if !matches(rec, query) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExtractedAt.After(out[j].ExtractedAt)
	})
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func matches(rec extraction.CompanyRecord, query extraction.StoreQuery) bool {
	if query.Name != "" && !strings.Contains(strings.ToLower(rec.Name), strings.ToLower(query.Name)) {
		return false
	}
	if query.Type != "" && !strings.EqualFold(rec.Type, query.Type) {
		return false
	}
	if query.Status != "" && rec.Status != query.Status {
		return false
	}
	if query.HasEmail && len(rec.Emails) == 0 {
		return false
	}
	if query.HasProducts && len(rec.Products) == 0 {
		return false
	}
	return true
}
