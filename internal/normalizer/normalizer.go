// Package normalizer turns raw uploaded log text into model.LogRecord values.
//
// Each supported format tag has a LineParser. Lines are parsed independently:
// a line that fails to parse is dropped and counted, it never aborts the batch.
package normalizer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/telhawk-systems/lognorm/internal/logging"
	"github.com/telhawk-systems/lognorm/internal/model"
)

// Line is one non-blank input line.
type Line struct {
	Text   string
	Number int // 1-based line number in the original text
	Index  int // 0-based position among non-blank lines
}

// LineParser converts a single line into a record.
//
// ok=false with a nil error means the line is intentionally excluded (a CSV
// header, a line not shaped like the format). A non-nil error means the line
// was malformed and is dropped.
type LineParser interface {
	Supports(format model.Format) bool
	ParseLine(line Line, now time.Time) (rec model.LogRecord, ok bool, err error)
}

// Registry holds ordered parsers and finds a match for a format tag.
type Registry struct {
	items []LineParser
}

// NewRegistry constructs a registry with provided parsers.
func NewRegistry(items ...LineParser) *Registry {
	return &Registry{items: items}
}

// Find returns the first parser that supports the format.
func (r *Registry) Find(format model.Format) LineParser {
	if r == nil {
		return nil
	}
	for _, p := range r.items {
		if p.Supports(format) {
			return p
		}
	}
	return nil
}

// Result is the outcome of normalizing one text buffer.
type Result struct {
	Records []model.LogRecord
	Lines   int // non-blank lines considered
	Skipped int // lines excluded by design (header rows, non-matching access-log lines)
	Dropped int // malformed lines
}

// Normalizer applies the parser registered for a format tag to every line of a
// text buffer. Unknown tags use the generic parser.
type Normalizer struct {
	registry *Registry
	fallback LineParser
	clock    func() time.Time
	newID    func() string
	logger   *logging.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock overrides the time source used for defaulted timestamps.
func WithClock(clock func() time.Time) Option {
	return func(n *Normalizer) { n.clock = clock }
}

// WithIDGenerator overrides record ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(n *Normalizer) { n.newID = gen }
}

// WithLogger sets the logger used for dropped-line warnings.
func WithLogger(l *logging.Logger) Option {
	return func(n *Normalizer) { n.logger = l }
}

// WithRegistry replaces the default parser registry.
func WithRegistry(r *Registry) Option {
	return func(n *Normalizer) { n.registry = r }
}

// New creates a Normalizer with the JSON, CSV and web access log parsers
// registered and the generic parser as fallback.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		registry: NewRegistry(JSONParser{}, CSVParser{}, WebParser{}),
		fallback: GenericParser{},
		clock:    time.Now,
		newID:    newRecordID,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Parser returns the parser used for format.
func (n *Normalizer) Parser(format model.Format) LineParser {
	if p := n.registry.Find(format); p != nil {
		return p
	}
	return n.fallback
}

// Normalize parses content line by line using the parser for format.
// It never fails: malformed lines are dropped and counted in the result.
func (n *Normalizer) Normalize(ctx context.Context, content string, format model.Format) Result {
	now := n.clock().UTC()
	parser := n.Parser(format)
	lines := SplitLines(content)

	res := Result{
		Records: make([]model.LogRecord, 0, len(lines)),
		Lines:   len(lines),
	}

	for _, line := range lines {
		rec, ok, err := parser.ParseLine(line, now)
		if err != nil {
			res.Dropped++
			n.logger.WarnContext(ctx, "failed to parse line",
				logging.Line(line.Number),
				logging.Format(string(format)),
				logging.Error(err),
			)
			continue
		}
		if !ok {
			res.Skipped++
			n.logger.DebugContext(ctx, "line excluded",
				logging.Line(line.Number),
				logging.Format(string(format)),
			)
			continue
		}

		rec.ID = n.newID()
		rec.Seq = len(res.Records)
		rec.IsUploaded = true
		res.Records = append(res.Records, rec)
	}

	return res
}

// SplitLines splits content into non-blank lines, accepting LF and CRLF endings.
func SplitLines(content string) []Line {
	raw := strings.Split(content, "\n")
	lines := make([]Line, 0, len(raw))
	for i, text := range raw {
		text = strings.TrimSuffix(text, "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		lines = append(lines, Line{Text: text, Number: i + 1, Index: len(lines)})
	}
	return lines
}
