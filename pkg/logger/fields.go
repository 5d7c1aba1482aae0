package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// Field types for structured logging.
type Field interface {
	AddTo(event *zerolog.Event)
	addToContext(ctx zerolog.Context) zerolog.Context
}

type stringField struct {
	key   string
	value string
}

func (f stringField) AddTo(event *zerolog.Event) { event.Str(f.key, f.value) }
func (f stringField) addToContext(ctx zerolog.Context) zerolog.Context {
	return ctx.Str(f.key, f.value)
}

type intField struct {
	key   string
	value int
}

func (f intField) AddTo(event *zerolog.Event) { event.Int(f.key, f.value) }
func (f intField) addToContext(ctx zerolog.Context) zerolog.Context {
	return ctx.Int(f.key, f.value)
}

type floatField struct {
	key   string
	value float64
}

func (f floatField) AddTo(event *zerolog.Event) { event.Float64(f.key, f.value) }
func (f floatField) addToContext(ctx zerolog.Context) zerolog.Context {
	return ctx.Float64(f.key, f.value)
}

type boolField struct {
	key   string
	value bool
}

func (f boolField) AddTo(event *zerolog.Event) { event.Bool(f.key, f.value) }
func (f boolField) addToContext(ctx zerolog.Context) zerolog.Context {
	return ctx.Bool(f.key, f.value)
}

type durationField struct {
	key   string
	value time.Duration
}

func (f durationField) AddTo(event *zerolog.Event) { event.Dur(f.key, f.value) }
func (f durationField) addToContext(ctx zerolog.Context) zerolog.Context {
	return ctx.Dur(f.key, f.value)
}

type errorField struct {
	value error
}

func (f errorField) AddTo(event *zerolog.Event) { event.Err(f.value) }
func (f errorField) addToContext(ctx zerolog.Context) zerolog.Context {
	return ctx.Err(f.value)
}

// Field constructors

func String(key, value string) Field { return stringField{key, value} }

func Int(key string, value int) Field { return intField{key, value} }

func Float(key string, value float64) Field { return floatField{key, value} }

func Bool(key string, value bool) Field { return boolField{key, value} }

func Duration(key string, value time.Duration) Field { return durationField{key, value} }

func Error(err error) Field { return errorField{err} }
