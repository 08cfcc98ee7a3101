package logstore

import (
	"strings"
	"time"

	"github.com/telhawk-systems/lognorm/internal/model"
)

// Filter selects records. Zero-valued fields do not constrain the result.
type Filter struct {
	Severity   model.Severity
	EventType  model.EventType
	SearchText string // case-insensitive, over description, source, event type and user agent
	Source     string // case-insensitive substring of the source
	StatusCode int
	Start      time.Time // inclusive
	End        time.Time // inclusive
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Match reports whether r satisfies every set constraint.
func (f Filter) Match(r model.LogRecord) bool {
	if f.Severity != "" && r.Severity != f.Severity {
		return false
	}
	if f.EventType != "" && r.EventType != f.EventType {
		return false
	}
	if f.SearchText != "" {
		haystack := strings.ToLower(strings.Join(
			[]string{r.Description, r.Source, string(r.EventType), r.Agent()}, " "))
		if !strings.Contains(haystack, strings.ToLower(f.SearchText)) {
			return false
		}
	}
	if f.Source != "" && !strings.Contains(strings.ToLower(r.Source), strings.ToLower(f.Source)) {
		return false
	}
	if f.StatusCode != 0 && r.Status() != f.StatusCode {
		return false
	}
	if !f.Start.IsZero() && r.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && r.Timestamp.After(f.End) {
		return false
	}
	return true
}
