package model

import "time"

// Description bounds. Descriptions derived from the raw text of a structured
// line are cut at RawDescriptionLen; every other description at MaxDescriptionLen.
const (
	MaxDescriptionLen = 200
	RawDescriptionLen = 100
)

// UnknownSource is the source recorded when a line carries no origin.
const UnknownSource = "Unknown"

// LogRecord is a single normalized log entry.
type LogRecord struct {
	ID          string    `json:"id" yaml:"id"`
	Seq         int       `json:"seq" yaml:"seq"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	EventType   EventType `json:"event_type" yaml:"event_type"`
	Source      string    `json:"source" yaml:"source"`
	Description string    `json:"description" yaml:"description"`
	Severity    Severity  `json:"severity" yaml:"severity"`
	StatusCode  *int      `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	UserAgent   *string   `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	Bytes       *int64    `json:"bytes,omitempty" yaml:"bytes,omitempty"`
	IsUploaded  bool      `json:"is_uploaded" yaml:"is_uploaded"`
}

// HasStatus reports whether the record carries a status code.
func (r LogRecord) HasStatus() bool {
	return r.StatusCode != nil
}

// Status returns the status code or 0 when absent.
func (r LogRecord) Status() int {
	if r.StatusCode == nil {
		return 0
	}
	return *r.StatusCode
}

// Agent returns the user agent or "" when absent.
func (r LogRecord) Agent() string {
	if r.UserAgent == nil {
		return ""
	}
	return *r.UserAgent
}

// Truncate cuts s to at most n characters without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }
