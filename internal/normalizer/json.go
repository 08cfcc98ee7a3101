package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/telhawk-systems/lognorm/internal/model"
)

// scalar is a JSON scalar decoded leniently: strings, numbers and booleans are
// kept as text; null, nested objects, arrays and absent keys are empty.
type scalar struct {
	text    string
	numeric bool
}

func (s *scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &s.text)
	case '{', '[':
		// Nested values are not scalars; the key counts as absent.
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		s.text = strconv.FormatBool(b)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		s.text = n.String()
		s.numeric = true
		return nil
	}
}

// structuredLine is the explicit set of keys recognized on a JSON line.
// Fallback chains resolve left to right: source -> ip, description -> message,
// statusCode -> status, userAgent -> agent.
type structuredLine struct {
	Timestamp   scalar `json:"timestamp"`
	EventType   scalar `json:"eventType"`
	Source      scalar `json:"source"`
	IP          scalar `json:"ip"`
	Description scalar `json:"description"`
	Message     scalar `json:"message"`
	Severity    scalar `json:"severity"`
	StatusCode  scalar `json:"statusCode"`
	Status      scalar `json:"status"`
	UserAgent   scalar `json:"userAgent"`
	Agent       scalar `json:"agent"`
}

func (l structuredLine) fields() fields {
	f := fields{
		EventType:   l.EventType.text,
		Source:      firstNonEmpty(l.Source.text, l.IP.text),
		Description: firstNonEmpty(l.Description.text, l.Message.text),
		Severity:    l.Severity.text,
		UserAgent:   firstNonEmpty(l.UserAgent.text, l.Agent.text),
	}
	if code := parseStatus(l.StatusCode.text); code != 0 {
		f.StatusCode = code
	} else {
		f.StatusCode = parseStatus(l.Status.text)
	}
	if l.Timestamp.numeric {
		if ts, ok := parseEpochMillis(l.Timestamp.text); ok {
			f.Timestamp = ts
		}
	} else if ts, ok := parseTimestamp(l.Timestamp.text); ok {
		f.Timestamp = ts
	}
	return f
}

// JSONParser handles one JSON object per line.
type JSONParser struct{}

// Supports reports whether format is the structured-object-per-line format.
func (JSONParser) Supports(format model.Format) bool {
	return format == model.FormatJSON
}

// ParseLine decodes one JSON object. Lines that are not JSON objects are errors;
// a literal null is excluded.
func (JSONParser) ParseLine(line Line, now time.Time) (model.LogRecord, bool, error) {
	text := strings.TrimSpace(line.Text)
	if text == "null" {
		return model.LogRecord{}, false, nil
	}
	if !strings.HasPrefix(text, "{") {
		return model.LogRecord{}, false, fmt.Errorf("decode json line: not an object")
	}

	var sl structuredLine
	if err := json.Unmarshal([]byte(text), &sl); err != nil {
		return model.LogRecord{}, false, fmt.Errorf("decode json line: %w", err)
	}
	return sl.fields().resolve(line.Text, now), true, nil
}
