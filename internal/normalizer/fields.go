package normalizer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/telhawk-systems/lognorm/internal/model"
)

// fields holds the optional values extracted from a structured line before
// defaults are applied. Zero values mean "absent".
type fields struct {
	Timestamp   time.Time
	EventType   string
	Source      string
	Description string
	Severity    string
	StatusCode  int
	UserAgent   string
}

// resolve applies the documented defaults:
//
//	timestamp   -> now
//	eventType   -> system (also for values outside the vocabulary)
//	source      -> "Unknown"
//	description -> first RawDescriptionLen characters of the raw line
//	severity    -> info (also for values outside the vocabulary)
//	statusCode  -> absent
//	userAgent   -> absent
func (f fields) resolve(raw string, now time.Time) model.LogRecord {
	rec := model.LogRecord{
		Timestamp: now,
		EventType: model.EventSystem,
		Source:    model.UnknownSource,
		Severity:  model.SeverityInfo,
	}

	if !f.Timestamp.IsZero() {
		rec.Timestamp = f.Timestamp
	}
	if et, ok := model.ParseEventType(f.EventType); ok {
		rec.EventType = et
	}
	if f.Source != "" {
		rec.Source = f.Source
	}
	if f.Description != "" {
		rec.Description = model.Truncate(f.Description, model.MaxDescriptionLen)
	} else {
		rec.Description = model.Truncate(raw, model.RawDescriptionLen)
	}
	if sev, ok := model.ParseSeverity(f.Severity); ok {
		rec.Severity = sev
	}
	if f.StatusCode != 0 {
		rec.StatusCode = model.IntPtr(f.StatusCode)
	}
	if f.UserAgent != "" {
		rec.UserAgent = model.StringPtr(f.UserAgent)
	}
	return rec
}

// firstNonEmpty returns the first non-empty value, implementing key fallback
// chains such as source -> ip.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05.000",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// parseTimestamp accepts the layouts above. Values without a zone are UTC.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	// Numeric strings are epoch milliseconds.
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

// parseStatus accepts a decimal status code; anything else is absent.
func parseStatus(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if code, err := strconv.Atoi(s); err == nil && code > 0 {
		return code
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f == float64(int(f)) {
		return int(f)
	}
	return 0
}

// parseEpochMillis reads a JSON number as epoch milliseconds, accepting
// fractions and exponents.
func parseEpochMillis(s string) (time.Time, bool) {
	ms, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || ms <= 0 || math.IsInf(ms, 0) || ms > maxEpochMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

// maxEpochMillis is the largest instant a JavaScript Date can hold.
const maxEpochMillis = 8.64e15
