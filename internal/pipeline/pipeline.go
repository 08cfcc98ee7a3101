// Package pipeline ingests uploaded files: it normalizes them, applies the
// batch to the record store and forwards it to the configured sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/telhawk-systems/lognorm/internal/logging"
	"github.com/telhawk-systems/lognorm/internal/logstore"
	"github.com/telhawk-systems/lognorm/internal/metrics"
	"github.com/telhawk-systems/lognorm/internal/model"
	"github.com/telhawk-systems/lognorm/internal/normalizer"
)

// ErrNoInput is returned when IngestFiles is called without paths.
var ErrNoInput = errors.New("no input files")

// Sink receives every batch applied to the store.
type Sink interface {
	Name() string
	Send(ctx context.Context, records []model.LogRecord) error
}

// SinkError reports a sink that failed to accept a batch.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Pipeline orchestrates normalization, storage and forwarding of uploads.
type Pipeline struct {
	normalizer *normalizer.Normalizer
	store      *logstore.Store
	sinks      []Sink
	logger     *logging.Logger
	newBatchID func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSinks adds downstream sinks.
func WithSinks(sinks ...Sink) Option {
	return func(p *Pipeline) { p.sinks = append(p.sinks, sinks...) }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithBatchIDGenerator overrides batch ID generation.
func WithBatchIDGenerator(gen func() string) Option {
	return func(p *Pipeline) { p.newBatchID = gen }
}

// New creates a pipeline instance.
func New(n *normalizer.Normalizer, store *logstore.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		normalizer: n,
		store:      store,
		logger:     logging.Default(),
		newBatchID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logging.Component("pipeline"))
	return p
}

// Store returns the record store the pipeline writes to.
func (p *Pipeline) Store() *logstore.Store {
	return p.store
}

// IngestFiles reads and normalizes each file in turn. If any file cannot be
// read nothing is applied to the store. Sink failures are returned after the
// store has been updated.
func (p *Pipeline) IngestFiles(ctx context.Context, format model.Format, paths ...string) (model.BatchResult, error) {
	if len(paths) == 0 {
		return model.BatchResult{}, ErrNoInput
	}

	batches := make([]model.RawBatch, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return model.BatchResult{}, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			metrics.FilesFailed.Inc()
			metrics.BatchesTotal.WithLabelValues("failed").Inc()
			p.logger.ErrorContext(ctx, "failed to read input file", logging.File(path), logging.Error(err))
			return model.BatchResult{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		batches = append(batches, model.RawBatch{
			Name:       path,
			Format:     format,
			Content:    string(data),
			ReceivedAt: time.Now().UTC(),
		})
	}

	return p.ingest(ctx, format, batches)
}

// IngestReader normalizes a single stream such as stdin.
func (p *Pipeline) IngestReader(ctx context.Context, format model.Format, name string, r io.Reader) (model.BatchResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		metrics.FilesFailed.Inc()
		metrics.BatchesTotal.WithLabelValues("failed").Inc()
		return model.BatchResult{}, fmt.Errorf("failed to read %s: %w", name, err)
	}

	return p.ingest(ctx, format, []model.RawBatch{{
		Name:       name,
		Format:     format,
		Content:    string(data),
		ReceivedAt: time.Now().UTC(),
	}})
}

func (p *Pipeline) ingest(ctx context.Context, format model.Format, batches []model.RawBatch) (model.BatchResult, error) {
	start := time.Now()
	batchID := p.newBatchID()
	ctx = logging.ContextWithBatchID(ctx, batchID)

	result := model.BatchResult{
		BatchID: batchID,
		Format:  format,
		Files:   make([]model.FileResult, 0, len(batches)),
	}
	var records []model.LogRecord

	for _, b := range batches {
		fileStart := time.Now()
		res := p.normalizer.Normalize(ctx, b.Content, format)
		p.observe(format, b, res, time.Since(fileStart))

		result.Files = append(result.Files, model.FileResult{
			Name:    b.Name,
			Lines:   res.Lines,
			Records: len(res.Records),
			Dropped: res.Dropped,
		})
		result.Lines += res.Lines
		result.Dropped += res.Dropped
		records = append(records, res.Records...)
	}

	// positions run across the whole batch, not per file
	for i := range records {
		records[i].Seq = i
	}
	result.Records = len(records)

	p.store.Prepend(records)
	metrics.BatchesTotal.WithLabelValues("success").Inc()
	result.Elapsed = time.Since(start)

	p.logger.WithContext(ctx).Info("batch ingested",
		logging.Format(string(format)),
		logging.Records(result.Records),
		logging.Dropped(result.Dropped),
		logging.Duration(result.Elapsed.Milliseconds()),
	)

	return result, p.forward(ctx, records)
}

func (p *Pipeline) observe(format model.Format, b model.RawBatch, res normalizer.Result, elapsed time.Duration) {
	tag := string(format)
	metrics.InputBytesTotal.Add(float64(len(b.Content)))
	metrics.NormalizationDuration.WithLabelValues(tag).Observe(elapsed.Seconds())
	metrics.LinesTotal.WithLabelValues(tag, metrics.OutcomeParsed).Add(float64(len(res.Records)))
	metrics.LinesTotal.WithLabelValues(tag, metrics.OutcomeSkipped).Add(float64(res.Skipped))
	metrics.LinesTotal.WithLabelValues(tag, metrics.OutcomeDropped).Add(float64(res.Dropped))
	for _, rec := range res.Records {
		metrics.RecordsTotal.WithLabelValues(tag, string(rec.EventType), string(rec.Severity)).Inc()
	}
}

func (p *Pipeline) forward(ctx context.Context, records []model.LogRecord) error {
	if len(records) == 0 || len(p.sinks) == 0 {
		return nil
	}

	var errs []error
	for _, sink := range p.sinks {
		name := sink.Name()
		if err := sink.Send(ctx, records); err != nil {
			metrics.SinkErrors.WithLabelValues(name).Inc()
			metrics.SinkRecordsTotal.WithLabelValues(name, "failed").Add(float64(len(records)))
			p.logger.WithContext(ctx).Error("sink rejected batch", logging.Sink(name), logging.Error(err))
			errs = append(errs, &SinkError{Sink: name, Err: err})
			continue
		}
		metrics.SinkRecordsTotal.WithLabelValues(name, "success").Add(float64(len(records)))
		p.logger.WithContext(ctx).Debug("batch forwarded", logging.Sink(name), logging.Records(len(records)))
	}
	return errors.Join(errs...)
}
