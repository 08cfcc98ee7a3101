package model

import "strings"

// EventType is the closed vocabulary of inferred event categories.
type EventType string

const (
	EventLogin     EventType = "login"
	EventXSS       EventType = "xss"
	EventMalware   EventType = "malware"
	EventDDoS      EventType = "ddos"
	EventSystem    EventType = "system"
	EventFirewall  EventType = "firewall"
	EventIntrusion EventType = "intrusion"
)

// EventTypes lists every event type in display order.
var EventTypes = []EventType{
	EventLogin, EventXSS, EventMalware, EventDDoS, EventSystem, EventFirewall, EventIntrusion,
}

var eventLabels = map[EventType]string{
	EventLogin:     "Login",
	EventXSS:       "XSS",
	EventMalware:   "Malware",
	EventDDoS:      "DDoS",
	EventSystem:    "System",
	EventFirewall:  "Firewall",
	EventIntrusion: "Intrusion",
}

// Valid reports whether e belongs to the vocabulary.
func (e EventType) Valid() bool {
	_, ok := eventLabels[e]
	return ok
}

// Label returns the display label.
func (e EventType) Label() string {
	if l, ok := eventLabels[e]; ok {
		return l
	}
	return strings.ToUpper(string(e))
}

// ParseEventType maps s onto the vocabulary (case-insensitive).
// ok is false when s is not a known event type.
func ParseEventType(s string) (EventType, bool) {
	e := EventType(strings.ToLower(strings.TrimSpace(s)))
	if e.Valid() {
		return e, true
	}
	return "", false
}

// Severity is the closed vocabulary of severities.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityInfo   Severity = "info"
)

// Severities lists every severity from most to least severe.
var Severities = []Severity{SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// Valid reports whether s belongs to the vocabulary.
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// ParseSeverity maps s onto the vocabulary (case-insensitive).
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.Valid() {
		return sev, true
	}
	return "", false
}

// Format is the caller-supplied hint selecting a parsing strategy.
type Format string

const (
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatWeb     Format = "web"
	FormatGeneric Format = "generic"
)

// Formats lists the recognized format tags.
var Formats = []Format{FormatJSON, FormatCSV, FormatWeb, FormatGeneric}

// ParseFormat maps a tag to a Format. Unrecognized tags resolve to FormatGeneric.
func ParseFormat(tag string) Format {
	switch f := Format(strings.ToLower(strings.TrimSpace(tag))); f {
	case FormatJSON, FormatCSV, FormatWeb:
		return f
	default:
		return FormatGeneric
	}
}
