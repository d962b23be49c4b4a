package pgcontext

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/yuku/pgcontext/internal/admin"
	"github.com/yuku/pgcontext/internal/disposer"
	"github.com/yuku/pgcontext/internal/logging"
)

// Context owns one ephemeral database and the pool connected to it.
// It is usable only when returned without error by Create, until Close.
type Context struct {
	// name is the generated database name.
	name string

	// pool is connected to the database that name represents.
	pool *pgxpool.Pool

	// connConfig is the connection configuration of pool.
	connConfig *pgx.ConnConfig

	admin  *admin.Admin
	stack  *disposer.Stack
	logger *zap.Logger
}

func newContext(name string, a *admin.Admin, l *zap.Logger) *Context {
	l = l.With(zap.String("database", name))
	return &Context{
		name:   name,
		admin:  a,
		stack:  disposer.New(l),
		logger: l,
	}
}

// initialize acquires the database and the pool, registering a release
// action right after each acquisition, then applies the script.
func (c *Context) initialize(ctx context.Context, cfg *Config, sql string) error {
	if err := c.admin.Create(ctx, c.name); err != nil {
		return c.fail(StageCreate, err)
	}
	if err := c.stack.Defer("drop database", func(ctx context.Context) error {
		return c.admin.Drop(ctx, c.name)
	}); err != nil {
		return c.fail(StageCreate, err)
	}

	poolConfig := cfg.PoolConfig.Copy()
	poolConfig.ConnConfig.Database = c.name
	if cfg.LogQueries {
		poolConfig.ConnConfig.Tracer = logging.NewTracer(c.logger, tracelog.LogLevelDebug)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return c.fail(StagePool, err)
	}
	if err := c.stack.Defer("close pool", func(context.Context) error {
		pool.Close()
		return nil
	}); err != nil {
		pool.Close()
		return c.fail(StagePool, err)
	}
	if err := pool.Ping(ctx); err != nil {
		return c.fail(StagePool, err)
	}

	if sql != "" {
		if _, err := pool.Exec(ctx, sql); err != nil {
			return c.fail(StageScript, err)
		}
	}

	if cfg.Migrations != nil {
		if err := migrate(ctx, pool, cfg.Migrations, c.logger); err != nil {
			return c.fail(StageMigrate, err)
		}
	}

	c.pool = pool
	c.connConfig = poolConfig.ConnConfig
	return nil
}

func (c *Context) fail(stage Stage, err error) error {
	return &StageError{Stage: stage, Database: c.name, Err: err}
}

// DatabaseName returns the generated database name.
func (c *Context) DatabaseName() string {
	return c.name
}

// Pool returns the pool connected to the database.
// It returns nil once the context is closed.
func (c *Context) Pool() *pgxpool.Pool {
	if c.stack.Disposed() {
		return nil
	}
	return c.pool
}

// ConnConfig returns a copy of the connection configuration of the pool,
// for callers that need their own connections to the database.
func (c *Context) ConnConfig() *pgx.ConnConfig {
	if c.connConfig == nil {
		return nil
	}
	return c.connConfig.Copy()
}

// Close closes the pool and then drops the database.
// All release actions run even if one fails; their errors are combined.
// Calling Close more than once is safe.
func (c *Context) Close(ctx context.Context) error {
	if err := c.stack.Dispose(ctx); err != nil {
		return c.fail(StageTeardown, err)
	}
	c.logger.Debug("database context closed")
	return nil
}

// combine reports a setup failure together with the failure to undo it.
// The setup error comes first so StageOf reports the failed setup step.
func combine(setupErr, teardownErr error) error {
	return multierr.Append(setupErr, teardownErr)
}
