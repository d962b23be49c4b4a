package pgcontext

import (
	"fmt"
	"io/fs"
	"math"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/yuku/pgcontext/internal/pgconst"
)

// maxBaseNameLength leaves room for "_" and the longest base36 counter value.
var maxBaseNameLength = pgconst.MaxDatabaseNameLength - len(longestName(""))

// Config holds the configuration for creating database contexts.
type Config struct {
	// PoolConfig holds the connection parameters. Its ConnConfig.Database is
	// used for administrative connections and as the base name of generated
	// databases. Every context pool is a copy of it targeting the generated
	// database.
	PoolConfig *pgxpool.Config

	// Names generates database names. If nil, the process-wide generator is used.
	Names *NameGenerator

	// Logger receives lifecycle events. If nil, nothing is logged.
	Logger *zap.Logger

	// LogQueries enables pgx query logging on context pools at debug level.
	LogQueries bool

	// Migrations, if set, holds goose migrations applied after the SQL script.
	Migrations fs.FS
}

// ParseConfig creates a Config from a connection string.
// An empty string uses the libpq environment variables (PGHOST, PGUSER, ...).
func ParseConfig(connString string) (*Config, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	return &Config{PoolConfig: poolConfig}, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.PoolConfig == nil {
		return fmt.Errorf("PoolConfig is required")
	}

	if base := c.baseName(); len(base) > maxBaseNameLength {
		return fmt.Errorf("base database name must be at most %d characters, got %d", maxBaseNameLength, len(base))
	}

	// Check the longest name the generator can produce for this base.
	if err := pgconst.ValidateDatabaseName(longestName(c.baseName())); err != nil {
		return fmt.Errorf("invalid base database name: %w", err)
	}

	return nil
}

func longestName(base string) string {
	return base + "_" + strconv.FormatInt(math.MaxInt64, 36)
}

func (c *Config) baseName() string {
	return c.PoolConfig.ConnConfig.Database
}

func (c *Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Config) names() *NameGenerator {
	if c.Names == nil {
		return processNames
	}
	return c.Names
}
