package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/lognorm/internal/logging"
	"github.com/telhawk-systems/lognorm/internal/logstore"
	"github.com/telhawk-systems/lognorm/internal/metrics"
	"github.com/telhawk-systems/lognorm/internal/model"
	"github.com/telhawk-systems/lognorm/internal/normalizer"
)

type recordingSink struct {
	name    string
	err     error
	batches [][]model.LogRecord
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Send(_ context.Context, records []model.LogRecord) error {
	s.batches = append(s.batches, records)
	return s.err
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	n := 0
	norm := normalizer.New(
		normalizer.WithClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }),
		normalizer.WithIDGenerator(func() string { n++; return fmt.Sprintf("rec-%d", n) }),
		normalizer.WithLogger(logging.Discard()),
	)
	opts = append([]Option{
		WithLogger(logging.Discard()),
		WithBatchIDGenerator(func() string { return "batch-1" }),
	}, opts...)
	return New(norm, logstore.New(), opts...)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIngestFiles_MultipleFiles(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.log", "2024-01-10 13:55:36 ERROR login failed from 10.0.0.1\n\nplain line\n")
	second := writeFile(t, dir, "b.log", "malware detected on 10.0.0.9\n")

	p := newTestPipeline(t)
	res, err := p.IngestFiles(context.Background(), model.FormatGeneric, first, second)
	require.NoError(t, err)

	assert.Equal(t, "batch-1", res.BatchID)
	assert.Equal(t, 3, res.Lines)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 0, res.Dropped)
	require.Len(t, res.Files, 2)
	assert.Equal(t, first, res.Files[0].Name)
	assert.Equal(t, 2, res.Files[0].Records)
	assert.Equal(t, 1, res.Files[1].Records)

	all := p.Store().All()
	require.Len(t, all, 3)
	for i, rec := range all {
		assert.Equal(t, i, rec.Seq)
		assert.True(t, rec.IsUploaded)
	}
	assert.Equal(t, model.EventMalware, all[2].EventType)
}

func TestIngestFiles_PrependsNewBatch(t *testing.T) {
	dir := t.TempDir()
	p := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.IngestFiles(ctx, model.FormatGeneric, writeFile(t, dir, "old.log", "old entry\n"))
	require.NoError(t, err)
	_, err = p.IngestFiles(ctx, model.FormatGeneric, writeFile(t, dir, "new.log", "new entry\n"))
	require.NoError(t, err)

	all := p.Store().All()
	require.Len(t, all, 2)
	assert.Equal(t, "new entry", all[0].Description)
	assert.Equal(t, "old entry", all[1].Description)
}

func TestIngestFiles_UnreadableFileAppliesNothing(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.log", "fine\n")
	missing := filepath.Join(dir, "missing.log")

	sink := &recordingSink{name: "fake"}
	p := newTestPipeline(t, WithSinks(sink))
	before := testutil.ToFloat64(metrics.FilesFailed)

	_, err := p.IngestFiles(context.Background(), model.FormatGeneric, good, missing)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), missing)

	assert.Equal(t, 0, p.Store().Len())
	assert.Empty(t, sink.batches)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.FilesFailed))
}

func TestIngestFiles_NoPaths(t *testing.T) {
	_, err := newTestPipeline(t).IngestFiles(context.Background(), model.FormatJSON)
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestIngestFiles_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(t)
	_, err := p.IngestFiles(ctx, model.FormatGeneric, writeFile(t, t.TempDir(), "a.log", "x\n"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, p.Store().Len())
}

func TestIngestReader(t *testing.T) {
	input := strings.Join([]string{
		`{"eventType":"xss","severity":"high","source":"10.1.1.1","description":"script tag"}`,
		`{broken`,
		`{"message":"ok"}`,
	}, "\n")

	p := newTestPipeline(t)
	res, err := p.IngestReader(context.Background(), model.FormatJSON, "stdin", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Lines)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 1, res.Dropped)

	all := p.Store().All()
	require.Len(t, all, 2)
	assert.Equal(t, model.EventXSS, all[0].EventType)
	assert.Equal(t, "ok", all[1].Description)
}

func TestIngestReader_ReadError(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.IngestReader(context.Background(), model.FormatGeneric, "stdin", failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stdin")
	assert.Equal(t, 0, p.Store().Len())
}

func TestIngest_ForwardsToSinks(t *testing.T) {
	ok := &recordingSink{name: "ok"}
	broken := &recordingSink{name: "broken", err: errors.New("connection refused")}
	p := newTestPipeline(t, WithSinks(ok, broken))

	res, err := p.IngestReader(context.Background(), model.FormatGeneric, "stdin", strings.NewReader("a\nb\n"))
	require.Error(t, err)

	var sinkErr *SinkError
	require.ErrorAs(t, err, &sinkErr)
	assert.Equal(t, "broken", sinkErr.Sink)

	// the store is updated even though a sink failed
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 2, p.Store().Len())

	require.Len(t, ok.batches, 1)
	assert.Len(t, ok.batches[0], 2)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SinkErrors.WithLabelValues("broken")))
}

func TestIngest_EmptyBatchSkipsSinks(t *testing.T) {
	sink := &recordingSink{name: "ok"}
	p := newTestPipeline(t, WithSinks(sink))

	res, err := p.IngestReader(context.Background(), model.FormatGeneric, "stdin", strings.NewReader("\n\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Records)
	assert.Empty(t, sink.batches)
}

func TestIngest_RecordsLineMetrics(t *testing.T) {
	parsed := metrics.LinesTotal.WithLabelValues("csv", metrics.OutcomeParsed)
	skipped := metrics.LinesTotal.WithLabelValues("csv", metrics.OutcomeSkipped)
	parsedBefore := testutil.ToFloat64(parsed)
	skippedBefore := testutil.ToFloat64(skipped)

	input := "timestamp,eventType,source\n2024-01-10 13:55:36,login,10.0.0.1\n2024-01-10 13:56:00,ddos,10.0.0.2\n"
	_, err := newTestPipeline(t).IngestReader(context.Background(), model.FormatCSV, "upload.csv", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, parsedBefore+2, testutil.ToFloat64(parsed))
	assert.Equal(t, skippedBefore+1, testutil.ToFloat64(skipped))
}
