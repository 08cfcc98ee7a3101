// Package color wraps text in ANSI escape sequences for terminal output.
package color

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ANSI color codes
const (
	reset = "\033[0m"

	// Foreground colors
	FgBlack   = 30
	FgRed     = 31
	FgGreen   = 32
	FgYellow  = 33
	FgBlue    = 34
	FgMagenta = 35
	FgCyan    = 36
	FgWhite   = 37

	// Attributes
	Bold      = 1
	Dim       = 2
	Underline = 4
)

// NoColor disables escape sequences globally (--no-color, NO_COLOR, pipes).
var NoColor = false

var escapePattern = regexp.MustCompile("\033\\[[0-9;]*m")

// Color represents a text color configuration
type Color struct {
	params []int
}

// New creates a new Color with the given attributes
func New(attrs ...int) *Color {
	return &Color{params: attrs}
}

// format returns the ANSI escape sequence for this color
func (c *Color) format() string {
	if NoColor || len(c.params) == 0 {
		return ""
	}

	parts := make([]string, len(c.params))
	for i, param := range c.params {
		parts[i] = strconv.Itoa(param)
	}
	return "\033[" + strings.Join(parts, ";") + "m"
}

func (c *Color) wrap(s string) string {
	seq := c.format()
	if seq == "" {
		return s
	}
	return seq + s + reset
}

// Fprintf prints formatted output with color to the given writer
func (c *Color) Fprintf(w io.Writer, format string, a ...interface{}) {
	fmt.Fprint(w, c.wrap(fmt.Sprintf(format, a...)))
}

// Sprint returns a colored string
func (c *Color) Sprint(a ...interface{}) string {
	return c.wrap(fmt.Sprint(a...))
}

// Sprintf returns a formatted colored string
func (c *Color) Sprintf(format string, a ...interface{}) string {
	return c.wrap(fmt.Sprintf(format, a...))
}

// Strip removes escape sequences from s.
func Strip(s string) string {
	return escapePattern.ReplaceAllString(s, "")
}

var (
	high   = New(FgRed, Bold)
	medium = New(FgYellow)
	low    = New(FgBlue)
	info   = New(FgCyan)
	plain  = New()
)

// Severity returns the color used for a severity label.
func Severity(severity string) *Color {
	switch strings.ToLower(severity) {
	case "high", "critical":
		return high
	case "medium":
		return medium
	case "low":
		return low
	case "info":
		return info
	default:
		return plain
	}
}

// Score returns the color for a 0-100 security score.
func Score(score int) *Color {
	switch {
	case score >= 80:
		return New(FgGreen)
	case score >= 60:
		return medium
	default:
		return high
	}
}
