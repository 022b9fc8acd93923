package logger

import (
	"time"

	"go.uber.org/zap"
)

// HTTP

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Identity

func Username(v string) zap.Field      { return zap.String("username", v) }
func Provider(v string) zap.Field      { return zap.String("provider", v) }
func SchemaVersion(v string) zap.Field { return zap.String("schema_version", v) }
func Scheme(v string) zap.Field        { return zap.String("scheme", v) }
func EmailMasked(v string) zap.Field   { return zap.String("email", v) }

// Structure

func Component(v string) zap.Field { return zap.String("component", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }

// Err names the field "error" so every layer logs failures under the same key.
func Err(err error) zap.Field { return zap.Error(err) }

func String(k, v string) zap.Field { return zap.String(k, v) }
