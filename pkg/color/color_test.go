package color

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withColor(t *testing.T, enabled bool) {
	t.Helper()
	old := NoColor
	NoColor = !enabled
	t.Cleanup(func() { NoColor = old })
}

func TestNew(t *testing.T) {
	c := New(FgRed, Bold)
	assert.NotNil(t, c)
	assert.Equal(t, []int{FgRed, Bold}, c.params)
}

func TestFormat(t *testing.T) {
	withColor(t, true)

	tests := []struct {
		name     string
		params   []int
		expected string
	}{
		{name: "single color", params: []int{FgRed}, expected: "\033[31m"},
		{name: "color with bold", params: []int{FgGreen, Bold}, expected: "\033[32;1m"},
		{name: "multiple attributes", params: []int{FgYellow, Bold, Underline}, expected: "\033[33;1;4m"},
		{name: "no params", params: []int{}, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.params...).format())
		})
	}
}

func TestSprintf(t *testing.T) {
	withColor(t, true)

	got := New(FgCyan).Sprintf("%d records", 3)
	assert.Equal(t, "\033[36m3 records\033[0m", got)
	assert.Equal(t, "3 records", Strip(got))
}

func TestNoColor(t *testing.T) {
	withColor(t, false)

	assert.Equal(t, "plain", New(FgRed, Bold).Sprint("plain"))

	var buf bytes.Buffer
	New(FgGreen).Fprintf(&buf, "ok %s", "done")
	assert.Equal(t, "ok done", buf.String())
}

func TestSeverity(t *testing.T) {
	withColor(t, true)

	assert.Equal(t, "\033[31;1mhigh\033[0m", Severity("high").Sprint("high"))
	assert.Equal(t, "\033[33mmedium\033[0m", Severity("MEDIUM").Sprint("medium"))
	assert.Equal(t, "other", Severity("other").Sprint("other"))
}

func TestScore(t *testing.T) {
	withColor(t, true)

	assert.Contains(t, Score(95).Sprint("95"), "\033[32m")
	assert.Contains(t, Score(65).Sprint("65"), "\033[33m")
	assert.Contains(t, Score(10).Sprint("10"), "\033[31;1m")
}
