package pgcontext

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yuku/pgcontext/internal/admin"
	"github.com/yuku/pgcontext/internal/logging"
)

// Factory creates database contexts sharing one configuration and name generator.
type Factory struct {
	cfg    *Config
	names  *NameGenerator
	admin  *admin.Admin
	logger *zap.Logger
}

// NewFactory creates a new Factory.
func NewFactory(cfg *Config) (*Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	l := cfg.logger().Named("pgcontext")
	return &Factory{
		cfg:    cfg,
		names:  cfg.names(),
		admin:  admin.New(cfg.PoolConfig, l),
		logger: l,
	}, nil
}

// Create creates a database with a generated name, opens a pool bound to it
// and executes sql against that pool.
//
// On failure nothing is left behind: the steps completed so far are undone
// before the error is returned.
func (f *Factory) Create(ctx context.Context, sql string) (*Context, error) {
	name := f.names.Next(f.cfg.baseName())

	c := newContext(name, f.admin, f.logger)
	c.logger.Debug("creating database context", logging.ConnFields(f.cfg.PoolConfig.ConnConfig)...)

	if err := c.initialize(ctx, f.cfg, sql); err != nil {
		c.logger.Warn("database context setup failed", zap.Error(err))
		if derr := c.Close(context.WithoutCancel(ctx)); derr != nil {
			return nil, combine(err, derr)
		}
		return nil, err
	}

	c.logger.Info("database context ready")
	return c, nil
}

// Create is a shorthand for NewFactory(cfg) followed by Create.
func Create(ctx context.Context, sql string, cfg *Config) (*Context, error) {
	f, err := NewFactory(cfg)
	if err != nil {
		return nil, err
	}
	return f.Create(ctx, sql)
}
