package history

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidURL   = errors.New("invalid URL: must be an absolute http or https URL")
	ErrInvalidScore = errors.New("score must be between 0 and 100")
	ErrScanNotFound = errors.New("scan not found")
)

// CheckResult is the outcome of one check within a scan.
type CheckResult struct {
	Title  string `json:"title" yaml:"title"`
	Status string `json:"status" yaml:"status"`
	Score  int    `json:"score" yaml:"score"`
}

// ScanRecord is one entry of the scan history.
type ScanRecord struct {
	ID           string        `json:"id" yaml:"id"`
	URL          string        `json:"url" yaml:"url"`
	Timestamp    time.Time     `json:"timestamp" yaml:"timestamp"`
	OverallScore int           `json:"overall_score" yaml:"overall_score"`
	Results      []CheckResult `json:"results,omitempty" yaml:"results,omitempty"`
}

// NewScanRecord validates the URL and scores and builds a record whose overall
// score is the rounded mean of the check scores.
func NewScanRecord(rawURL string, results []CheckResult, now time.Time) (ScanRecord, error) {
	if err := ValidateURL(rawURL); err != nil {
		return ScanRecord{}, err
	}
	for _, r := range results {
		if r.Score < 0 || r.Score > 100 {
			return ScanRecord{}, fmt.Errorf("check %q: %w", r.Title, ErrInvalidScore)
		}
	}
	return ScanRecord{
		ID:           uuid.NewString(),
		URL:          rawURL,
		Timestamp:    now.UTC(),
		OverallScore: OverallScore(results),
		Results:      results,
	}, nil
}

// Level returns the security level of the overall score.
func (s ScanRecord) Level() string {
	return SecurityLevel(s.OverallScore)
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// OverallScore is the mean check score rounded half away from zero; 0 when
// there are no results.
func OverallScore(results []CheckResult) int {
	if len(results) == 0 {
		return 0
	}
	total := 0
	for _, r := range results {
		total += r.Score
	}
	return int(math.Round(float64(total) / float64(len(results))))
}

// SecurityLevel grades a 0-100 score.
func SecurityLevel(score int) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 80:
		return "Good"
	case score >= 70:
		return "Fair"
	case score >= 60:
		return "Poor"
	default:
		return "Critical"
	}
}
