package normalizer

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/telhawk-systems/lognorm/internal/model"
)

// CSVColumns is the positional column order of data rows.
var CSVColumns = []string{"timestamp", "eventType", "source", "description", "severity", "statusCode", "userAgent"}

const (
	colTimestamp = iota
	colEventType
	colSource
	colDescription
	colSeverity
	colStatusCode
	colUserAgent
)

// CSVParser handles comma separated lines. The first non-blank line is a
// header and is skipped without inspecting its content.
type CSVParser struct{}

// Supports reports whether format is the delimited-with-header format.
func (CSVParser) Supports(format model.Format) bool {
	return format == model.FormatCSV
}

// ParseLine decodes one CSV row using CSVColumns. Missing trailing columns take
// the same defaults as JSON lines.
func (CSVParser) ParseLine(line Line, now time.Time) (model.LogRecord, bool, error) {
	if line.Index == 0 {
		return model.LogRecord{}, false, nil
	}

	r := csv.NewReader(strings.NewReader(line.Text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	row, err := r.Read()
	if err != nil {
		return model.LogRecord{}, false, fmt.Errorf("decode csv row: %w", err)
	}

	col := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	f := fields{
		EventType:   col(colEventType),
		Source:      col(colSource),
		Description: col(colDescription),
		Severity:    col(colSeverity),
		StatusCode:  parseStatus(col(colStatusCode)),
		UserAgent:   col(colUserAgent),
	}
	if ts, ok := parseTimestamp(col(colTimestamp)); ok {
		f.Timestamp = ts
	}
	return f.resolve(line.Text, now), true, nil
}
