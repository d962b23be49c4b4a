// Package admin issues database-level DDL through short-lived
// administrative connection pools.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/yuku/pgcontext/internal/logging"
)

const (
	// dropAttempts bounds DROP DATABASE retries while the server still
	// reports sessions on a database whose client pool was just closed.
	dropAttempts   = 5
	dropRetryDelay = 20 * time.Millisecond
)

// Admin runs CREATE/DROP DATABASE statements.
// Each operation opens its own pool and closes it before returning.
type Admin struct {
	// cfg is the configuration of the administrative connection.
	cfg *pgxpool.Config

	logger *zap.Logger
}

// New returns an Admin connecting with a copy of cfg.
func New(cfg *pgxpool.Config, l *zap.Logger) *Admin {
	if l == nil {
		l = zap.NewNop()
	}
	return &Admin{
		cfg:    cfg.Copy(),
		logger: l.Named("admin"),
	}
}

// Create drops the database if it exists and creates it again.
func (a *Admin) Create(ctx context.Context, name string) error {
	ident := pgx.Identifier{name}.Sanitize()

	return a.withPool(ctx, func(p *pgxpool.Pool) error {
		if _, err := p.Exec(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS %s`, ident)); err != nil {
			return fmt.Errorf("failed to drop stale database %s: %w", name, err)
		}
		if _, err := p.Exec(ctx, fmt.Sprintf(`CREATE DATABASE %s`, ident)); err != nil {
			return fmt.Errorf("failed to create database %s: %w", name, err)
		}
		a.logger.Debug("database created", zap.String("database", name))
		return nil
	})
}

// Drop drops the database. It fails if the database does not exist.
func (a *Admin) Drop(ctx context.Context, name string) error {
	q := fmt.Sprintf(`DROP DATABASE %s`, pgx.Identifier{name}.Sanitize())

	return a.withPool(ctx, func(p *pgxpool.Pool) error {
		var err error
		for attempt := 1; attempt <= dropAttempts; attempt++ {
			if _, err = p.Exec(ctx, q); err == nil {
				a.logger.Debug("database dropped", zap.String("database", name))
				return nil
			}
			if !isObjectInUse(err) || attempt == dropAttempts {
				break
			}

			a.logger.Debug("database still in use, retrying drop",
				zap.String("database", name), zap.Int("attempt", attempt))

			select {
			case <-ctx.Done():
				return fmt.Errorf("failed to drop database %s: %w", name, ctx.Err())
			case <-time.After(dropRetryDelay):
			}
		}
		return fmt.Errorf("failed to drop database %s: %w", name, err)
	})
}

// DropForce terminates other sessions on the database and drops it if it exists.
// It is meant for orphaned databases only.
func (a *Admin) DropForce(ctx context.Context, name string) error {
	return a.withPool(ctx, func(p *pgxpool.Pool) error {
		_, err := p.Exec(ctx,
			`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()`,
			name,
		)
		if err != nil {
			return fmt.Errorf("failed to terminate sessions on %s: %w", name, err)
		}

		q := fmt.Sprintf(`DROP DATABASE IF EXISTS %s`, pgx.Identifier{name}.Sanitize())
		if _, err := p.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to drop database %s: %w", name, err)
		}
		return nil
	})
}

// Exists reports whether the database exists.
func (a *Admin) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := a.withPool(ctx, func(p *pgxpool.Pool) error {
		return p.
			QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, name).
			Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check if database %s exists: %w", name, err)
	}
	return exists, nil
}

// List returns the names of databases starting with prefix, sorted.
func (a *Admin) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := a.withPool(ctx, func(p *pgxpool.Pool) error {
		rows, err := p.Query(ctx,
			`SELECT datname FROM pg_database WHERE datname LIKE $1 ESCAPE '\' ORDER BY datname`,
			escapeLike(prefix)+"%",
		)
		if err != nil {
			return err
		}
		names, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	return names, nil
}

func (a *Admin) withPool(ctx context.Context, fn func(*pgxpool.Pool) error) error {
	cfg := a.cfg.Copy()
	cfg.MaxConns = 1
	cfg.MinConns = 0

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		a.logger.Warn("failed to open administrative pool", logging.ConnFields(cfg.ConnConfig)...)
		return fmt.Errorf("failed to open administrative pool: %w", err)
	}
	defer p.Close()

	return fn(p)
}

func isObjectInUse(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ObjectInUse
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
