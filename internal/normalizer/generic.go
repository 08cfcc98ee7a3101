package normalizer

import (
	"regexp"
	"time"

	"github.com/telhawk-systems/lognorm/internal/model"
)

var (
	isoTimePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}[T\s]\d{2}:\d{2}:\d{2})`)
	ipv4Pattern    = regexp.MustCompile(`(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	// A three digit token followed by whitespace, not part of a longer number
	// or a dotted address.
	statusPattern = regexp.MustCompile(`(?:^|[^\d.])(\d{3})\s`)
)

// GenericParser extracts what it can from free-form lines. It is the fallback
// for unrecognized format tags and never fails.
type GenericParser struct{}

// Supports reports true for the generic tag only; the normalizer also uses it
// for any tag no other parser claims.
func (GenericParser) Supports(format model.Format) bool {
	return format == model.FormatGeneric
}

// ParseLine extracts a timestamp, an IPv4 address and a status code when present
// and classifies the line with EventTypeRules and SeverityRules.
func (GenericParser) ParseLine(line Line, now time.Time) (model.LogRecord, bool, error) {
	text := line.Text
	rec := model.LogRecord{
		Timestamp:   now,
		Source:      model.UnknownSource,
		Description: model.Truncate(text, model.MaxDescriptionLen),
		EventType:   EventTypeRules.Match(text),
		Severity:    SeverityRules.Match(text),
	}

	if m := isoTimePattern.FindStringSubmatch(text); m != nil {
		iso := m[1][:10] + "T" + m[1][11:]
		if ts, err := time.Parse("2006-01-02T15:04:05", iso); err == nil {
			rec.Timestamp = ts
		}
	}
	if m := ipv4Pattern.FindStringSubmatch(text); m != nil {
		rec.Source = m[1]
	}
	if m := statusPattern.FindStringSubmatch(text); m != nil {
		if code := parseStatus(m[1]); code != 0 {
			rec.StatusCode = model.IntPtr(code)
		}
	}
	return rec, true, nil
}
