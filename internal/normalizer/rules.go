package normalizer

import (
	"strings"

	"github.com/telhawk-systems/lognorm/internal/model"
)

// KeywordRule maps any of its keywords to a value.
type KeywordRule[T any] struct {
	Keywords []string
	Value    T
}

// RuleTable is an ordered list of keyword rules. The first rule with a keyword
// contained in the input wins; Default applies when no rule matches.
// Matching is case-insensitive; keywords must be lower case.
type RuleTable[T any] struct {
	Rules   []KeywordRule[T]
	Default T
}

// Match returns the value of the first matching rule.
func (t RuleTable[T]) Match(text string) T {
	lower := strings.ToLower(text)
	for _, rule := range t.Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Value
			}
		}
	}
	return t.Default
}

// EventTypeRules infers the event type of free-form text.
var EventTypeRules = RuleTable[model.EventType]{
	Rules: []KeywordRule[model.EventType]{
		{Keywords: []string{"login", "auth"}, Value: model.EventLogin},
		{Keywords: []string{"xss", "script"}, Value: model.EventXSS},
		{Keywords: []string{"malware", "virus"}, Value: model.EventMalware},
		{Keywords: []string{"ddos", "flood"}, Value: model.EventDDoS},
		{Keywords: []string{"firewall", "block"}, Value: model.EventFirewall},
	},
	Default: model.EventSystem,
}

// SeverityRules infers the severity of free-form text.
var SeverityRules = RuleTable[model.Severity]{
	Rules: []KeywordRule[model.Severity]{
		{Keywords: []string{"critical", "error", "fail"}, Value: model.SeverityHigh},
		{Keywords: []string{"warning", "warn"}, Value: model.SeverityMedium},
		{Keywords: []string{"info", "notice"}, Value: model.SeverityInfo},
	},
	Default: model.SeverityLow,
}

// StatusBand maps status codes at or above Min to a severity.
type StatusBand struct {
	Min      int
	Severity model.Severity
}

// StatusSeverityBands is checked top to bottom; codes below every band are info.
var StatusSeverityBands = []StatusBand{
	{Min: 500, Severity: model.SeverityHigh},
	{Min: 400, Severity: model.SeverityMedium},
	{Min: 300, Severity: model.SeverityLow},
}

// SeverityForStatus returns the severity implied by an HTTP status code.
func SeverityForStatus(status int) model.Severity {
	for _, band := range StatusSeverityBands {
		if status >= band.Min {
			return band.Severity
		}
	}
	return model.SeverityInfo
}

// EventTypeForRequest infers the event type of an access log request.
// Client errors are firewall events and server errors system events; only
// successful or redirected requests are classified by path.
func EventTypeForRequest(status int, path string) model.EventType {
	switch {
	case status >= 400 && status < 500:
		return model.EventFirewall
	case status >= 500:
		return model.EventSystem
	case strings.Contains(path, "login") || strings.Contains(path, "auth"):
		return model.EventLogin
	default:
		return model.EventSystem
	}
}
