// Package logging connects pgx to zap.
package logging

import (
	"strconv"

	zapadapter "github.com/jackc/pgx-zap"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
)

// NewTracer returns a pgx query tracer that writes to l at the given level.
func NewTracer(l *zap.Logger, level tracelog.LogLevel) *tracelog.TraceLog {
	return &tracelog.TraceLog{
		Logger:   zapadapter.NewLogger(l.Named("pgx")),
		LogLevel: level,
	}
}

// ConnFields describes the connection target of cfg.
// The password is never included.
func ConnFields(cfg *pgx.ConnConfig) []zap.Field {
	if cfg == nil {
		return nil
	}
	return []zap.Field{
		zap.String("host", cfg.Host),
		zap.String("port", strconv.Itoa(int(cfg.Port))),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
	}
}
