package normalizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/telhawk-systems/lognorm/internal/model"
)

var (
	// host [ident authuser] [timestamp] "request" status bytes ["referrer" "user-agent"]
	accessLogPattern = regexp.MustCompile(`(.*?)(?: - -)? \[(.*?)\] "(.*?)" (\d+) (\d+|-)(?: "(.*?)" "(.*?)")?`)
	requestPattern   = regexp.MustCompile(`(\w+) (.+?) (HTTP/\d+\.\d+)`)
	clfTimePattern   = regexp.MustCompile(`(\d{2})/(\w{3})/(\d{4}):(\d{2}):(\d{2}):(\d{2})`)
)

var monthNumbers = map[string]string{
	"Jan": "01", "Feb": "02", "Mar": "03", "Apr": "04", "May": "05", "Jun": "06",
	"Jul": "07", "Aug": "08", "Sep": "09", "Oct": "10", "Nov": "11", "Dec": "12",
}

const (
	defaultMethod   = "GET"
	defaultPath     = "/"
	defaultProtocol = "HTTP/1.0"
)

// AccessLogEntry is the decomposed form of one access log line.
type AccessLogEntry struct {
	Host      string
	Time      string
	Method    string
	Path      string
	Protocol  string
	Status    int
	Bytes     int64
	Referrer  string
	UserAgent string
}

// ParseAccessLog decomposes an Apache combined log line. ok is false when the
// line does not have the access log shape.
func ParseAccessLog(line string) (entry AccessLogEntry, ok bool, err error) {
	m := accessLogPattern.FindStringSubmatch(line)
	if m == nil {
		return AccessLogEntry{}, false, nil
	}

	entry = AccessLogEntry{
		Host:      strings.TrimSpace(m[1]),
		Time:      m[2],
		Method:    defaultMethod,
		Path:      defaultPath,
		Protocol:  defaultProtocol,
		Referrer:  m[6],
		UserAgent: m[7],
	}

	if rm := requestPattern.FindStringSubmatch(m[3]); rm != nil {
		entry.Method, entry.Path, entry.Protocol = rm[1], rm[2], rm[3]
	}

	entry.Status, err = strconv.Atoi(m[4])
	if err != nil {
		return AccessLogEntry{}, false, fmt.Errorf("parse status %q: %w", m[4], err)
	}
	if m[5] != "-" {
		entry.Bytes, err = strconv.ParseInt(m[5], 10, 64)
		if err != nil {
			return AccessLogEntry{}, false, fmt.Errorf("parse bytes %q: %w", m[5], err)
		}
	}

	return entry, true, nil
}

// Timestamp converts the bracketed access log time to UTC. The zone offset is
// ignored. ok is false when the time cannot be read.
func (e AccessLogEntry) Timestamp() (time.Time, bool) {
	m := clfTimePattern.FindStringSubmatch(e.Time)
	if m == nil {
		return time.Time{}, false
	}
	month, known := monthNumbers[m[2]]
	if !known {
		return time.Time{}, false
	}
	iso := fmt.Sprintf("%s-%s-%sT%s:%s:%sZ", m[3], month, m[1], m[4], m[5], m[6])
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Summary renders the canonical request summary:
//
//	"METHOD PATH PROTOCOL" STATUS BYTES "REFERRER" "USERAGENT"
func (e AccessLogEntry) Summary() string {
	return fmt.Sprintf(`"%s %s %s" %d %d "%s" "%s"`,
		e.Method, e.Path, e.Protocol, e.Status, e.Bytes, orDash(e.Referrer), orDash(e.UserAgent))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// WebParser handles Apache combined access log lines.
type WebParser struct{}

// Supports reports whether format is the web access log format.
func (WebParser) Supports(format model.Format) bool {
	return format == model.FormatWeb
}

// ParseLine converts an access log line. Lines without the access log shape
// are excluded without error.
func (WebParser) ParseLine(line Line, now time.Time) (model.LogRecord, bool, error) {
	entry, ok, err := ParseAccessLog(line.Text)
	if err != nil || !ok {
		return model.LogRecord{}, false, err
	}

	rec := model.LogRecord{
		Timestamp:   now,
		EventType:   EventTypeForRequest(entry.Status, entry.Path),
		Source:      entry.Host,
		Description: model.Truncate(entry.Summary(), model.MaxDescriptionLen),
		Severity:    SeverityForStatus(entry.Status),
		StatusCode:  model.IntPtr(entry.Status),
		Bytes:       model.Int64Ptr(entry.Bytes),
	}
	if ts, ok := entry.Timestamp(); ok {
		rec.Timestamp = ts
	}
	if rec.Source == "" {
		rec.Source = model.UnknownSource
	}
	if entry.UserAgent != "" && entry.UserAgent != "-" {
		rec.UserAgent = model.StringPtr(entry.UserAgent)
	}
	return rec, true, nil
}
