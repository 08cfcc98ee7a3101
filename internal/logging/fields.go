package logging

import "log/slog"

// Common field names for consistent logging across packages.
const (
	FieldComponent = "component"
	FieldBatchID   = "batch_id"
	FieldFile      = "file"
	FieldFormat    = "format"
	FieldLine      = "line"
	FieldRecords   = "records"
	FieldDropped   = "dropped"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldSink      = "sink"
)

// Component returns a slog attribute for the component name.
func Component(name string) slog.Attr {
	return slog.String(FieldComponent, name)
}

// File returns a slog attribute for a file path.
func File(path string) slog.Attr {
	return slog.String(FieldFile, path)
}

// Format returns a slog attribute for a format tag.
func Format(format string) slog.Attr {
	return slog.String(FieldFormat, format)
}

// Line returns a slog attribute for a 1-based input line number.
func Line(n int) slog.Attr {
	return slog.Int(FieldLine, n)
}

// Records returns a slog attribute for a record count.
func Records(n int) slog.Attr {
	return slog.Int(FieldRecords, n)
}

// Dropped returns a slog attribute for a dropped-line count.
func Dropped(n int) slog.Attr {
	return slog.Int(FieldDropped, n)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Sink returns a slog attribute for a sink name.
func Sink(name string) slog.Attr {
	return slog.String(FieldSink, name)
}
