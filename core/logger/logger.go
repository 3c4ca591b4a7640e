// Package logger declares the logging contract shared by the engines. Engines
// never depend on a concrete logging library; infra/logger provides the
// zerolog-backed implementation and a no-op variant for tests.
package logger

// Logger exposes logging methods for common severity levels.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// StructuredLogger can log structured debug information.
type StructuredLogger interface {
	Debugw(msg string, fields map[string]any)
}

// FieldLogger returns a child logger carrying extra fields on every entry,
// e.g. the mission id of an assignment in progress.
type FieldLogger interface {
	With(fields map[string]any) Logger
}

// With attaches fields to l when it supports it and returns l unchanged
// otherwise.
func With(l Logger, fields map[string]any) Logger {
	if fl, ok := l.(FieldLogger); ok {
		return fl.With(fields)
	}
	return l
}
