// Package logstore holds the record dataset owned by the caller and answers
// filtered, paged queries over it.
package logstore

import (
	"errors"
	"sync"

	"github.com/telhawk-systems/lognorm/internal/metrics"
	"github.com/telhawk-systems/lognorm/internal/model"
)

// DefaultPerPage is the page size used when a query does not set one.
const DefaultPerPage = 10

var ErrRecordNotFound = errors.New("record not found")

// Store is an in-memory, ordered record dataset. New batches are prepended so
// the most recent upload comes first.
type Store struct {
	records []model.LogRecord
	byID    map[string]int
	mu      sync.RWMutex
}

// New creates a store seeded with records in the given order.
func New(records ...model.LogRecord) *Store {
	s := &Store{}
	s.replace(append([]model.LogRecord(nil), records...))
	return s
}

func (s *Store) replace(records []model.LogRecord) {
	s.records = records
	s.byID = make(map[string]int, len(records))
	for i, r := range records {
		if r.ID != "" {
			s.byID[r.ID] = i
		}
	}
	metrics.StoredRecords.Set(float64(len(records)))
}

// Prepend places batch, in its own order, ahead of the existing records.
func (s *Store) Prepend(batch []model.LogRecord) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]model.LogRecord, 0, len(batch)+len(s.records))
	merged = append(merged, batch...)
	merged = append(merged, s.records...)
	s.replace(merged)
}

// All returns a copy of every record in dataset order.
func (s *Store) All() []model.LogRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.LogRecord(nil), s.records...)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns the record with the given ID.
func (s *Store) Get(id string) (model.LogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return model.LogRecord{}, ErrRecordNotFound
	}
	return s.records[i], nil
}

// Reset removes every record.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(nil)
}

// Page is one page of query results.
type Page struct {
	Records    []model.LogRecord `json:"records" yaml:"records"`
	Page       int               `json:"page" yaml:"page"`
	PerPage    int               `json:"per_page" yaml:"per_page"`
	Total      int               `json:"total" yaml:"total"`
	TotalPages int               `json:"total_pages" yaml:"total_pages"`
}

// Query returns the 1-based page of records matching f, in dataset order.
// Pages out of range are empty but still report totals.
func (s *Store) Query(f Filter, page, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page <= 0 {
		page = 1
	}

	s.mu.RLock()
	matched := make([]model.LogRecord, 0)
	for _, r := range s.records {
		if f.Match(r) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	p := Page{
		Records:    []model.LogRecord{},
		Page:       page,
		PerPage:    perPage,
		Total:      len(matched),
		TotalPages: (len(matched) + perPage - 1) / perPage,
	}

	if page > p.TotalPages {
		return p
	}
	start := (page - 1) * perPage
	end := min(start+perPage, len(matched))
	p.Records = matched[start:end]
	return p
}

// Summary counts records per severity and event type.
type Summary struct {
	Total       int                     `json:"total" yaml:"total"`
	Uploaded    int                     `json:"uploaded" yaml:"uploaded"`
	BySeverity  map[model.Severity]int  `json:"by_severity" yaml:"by_severity"`
	ByEventType map[model.EventType]int `json:"by_event_type" yaml:"by_event_type"`
}

// Summarize computes a Summary over the records matching f.
func (s *Store) Summarize(f Filter) Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{
		BySeverity:  make(map[model.Severity]int, len(model.Severities)),
		ByEventType: make(map[model.EventType]int, len(model.EventTypes)),
	}
	for _, r := range s.records {
		if !f.Match(r) {
			continue
		}
		sum.Total++
		if r.IsUploaded {
			sum.Uploaded++
		}
		sum.BySeverity[r.Severity]++
		sum.ByEventType[r.EventType]++
	}
	return sum
}
