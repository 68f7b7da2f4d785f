// Package logger builds the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// New returns a JSON logger at info level for production and staging,
// and a text logger at debug level for everything else.
func New(env, service string) *slog.Logger {
	return NewWithOutput(os.Stdout, env, service)
}

func NewWithOutput(w io.Writer, env, service string) *slog.Logger {
	env = normalizeEnv(env)

	var handler slog.Handler
	switch env {
	case EnvProduction, EnvStaging:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	return slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", service),
		slog.String("env", env),
	}))
}

func normalizeEnv(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case EnvProduction, "prod":
		return EnvProduction
	case EnvStaging, "stage":
		return EnvStaging
	default:
		return EnvDevelopment
	}
}
