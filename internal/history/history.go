package history

import (
	"context"
	"fmt"
	"time"

	"github.com/telhawk-systems/lognorm/internal/logging"
	"github.com/telhawk-systems/lognorm/internal/metrics"
)

// History is the in-memory ring of recent scans backed by a Store.
type History struct {
	ring   *Ring[ScanRecord]
	store  Store
	logger *logging.Logger
	now    func() time.Time
}

// Open loads the persisted history into a ring of the given capacity.
func Open(ctx context.Context, store Store, capacity int, logger *logging.Logger) (*History, error) {
	if logger == nil {
		logger = logging.Default()
	}
	h := &History{
		ring:   NewRing[ScanRecord](capacity),
		store:  store,
		logger: logger.With(logging.Component("history")),
		now:    time.Now,
	}

	records, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	for _, rec := range records {
		h.ring.Push(rec)
	}
	metrics.HistoryEntries.Set(float64(h.ring.Len()))
	return h, nil
}

// Add validates and records a scan, persisting it.
func (h *History) Add(ctx context.Context, rawURL string, results []CheckResult) (ScanRecord, error) {
	rec, err := NewScanRecord(rawURL, results, h.now())
	if err != nil {
		return ScanRecord{}, err
	}

	if err := h.store.Append(ctx, rec); err != nil {
		return ScanRecord{}, fmt.Errorf("failed to persist scan: %w", err)
	}

	if evicted, ok := h.ring.Push(rec); ok {
		h.logger.DebugContext(ctx, "evicted oldest scan", "scan_id", evicted.ID, "url", evicted.URL)
	}
	metrics.HistoryEntries.Set(float64(h.ring.Len()))
	h.logger.InfoContext(ctx, "scan recorded", "scan_id", rec.ID, "url", rec.URL, "score", rec.OverallScore)
	return rec, nil
}

// Recent returns up to n scans, newest first.
func (h *History) Recent(n int) []ScanRecord {
	return h.ring.Recent(n)
}

// Get finds a scan by ID.
func (h *History) Get(id string) (ScanRecord, error) {
	for _, rec := range h.ring.Items() {
		if rec.ID == id {
			return rec, nil
		}
	}
	return ScanRecord{}, ErrScanNotFound
}

// Len returns the number of scans held.
func (h *History) Len() int {
	return h.ring.Len()
}

// Clear empties the ring and the store.
func (h *History) Clear(ctx context.Context) error {
	h.ring.Clear()
	metrics.HistoryEntries.Set(0)
	if err := h.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
