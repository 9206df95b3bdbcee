// Package observability is the structured logging contract shared by the
// loader, exporter, work-file store, task runner and HTTP API.
package observability

import "time"

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Field is one typed key/value pair attached to a log record.
type Field interface {
	Key() string
	Value() interface{}
}

type field[T any] struct {
	key string
	val T
}

func (f field[T]) Key() string        { return f.key }
func (f field[T]) Value() interface{} { return f.val }

func String(key, value string) Field        { return field[string]{key, value} }
func Int(key string, value int) Field       { return field[int]{key, value} }
func Float(key string, value float64) Field { return field[float64]{key, value} }
func Bool(key string, value bool) Field     { return field[bool]{key, value} }
func Error(key string, err error) Field     { return field[error]{key, err} }

// Duration logs d in milliseconds.
func Duration(key string, d time.Duration) Field {
	return field[float64]{key, float64(d.Microseconds()) / 1000}
}

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// OrNop returns l, or NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
