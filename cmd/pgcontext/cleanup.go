package main

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/yuku/pgcontext"
	"github.com/yuku/pgcontext/internal/admin"
)

// generatedSuffix matches the base 36 counter of generated database names.
var generatedSuffix = regexp.MustCompile(`^[0-9a-z]+$`)

// Generated counters start at the process start time in Unix milliseconds.
// Counters outside [counterFloor, now+counterSlack] are not ours.
var counterFloor = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

const counterSlack = 24 * time.Hour

// isGeneratedSuffix reports whether suffix looks like a name counter issued
// no earlier than counterFloor and no later than now plus counterSlack.
func isGeneratedSuffix(suffix string, now time.Time) bool {
	if !generatedSuffix.MatchString(suffix) {
		return false
	}
	n, err := strconv.ParseInt(suffix, 36, 64)
	if err != nil {
		return false
	}
	return n >= counterFloor && n <= now.Add(counterSlack).UnixMilli()
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop databases left behind by interrupted runs",
	Long: `cleanup drops every database whose name starts with the prefix.
Sessions connected to those databases are terminated first.
The default prefix is "<base>_", where base is the database of the connection.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		l, err := s.logger()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer func() { _ = l.Sync() }()

		return runCleanup(cmd.Context(), s, l)
	},
}

func init() {
	cleanupCmd.Flags().String("prefix", "", `database name prefix (default "<base>_")`)
	cleanupCmd.Flags().Bool("dry-run", false, "only list the databases that would be dropped")
}

func runCleanup(ctx context.Context, s *settings, l *zap.Logger) error {
	cfg, err := pgcontext.ParseConfig(s.DSN)
	if err != nil {
		return err
	}

	// Without an explicit prefix only names shaped like generated ones are
	// considered, so that "postgres_" does not match unrelated databases.
	prefix, generatedOnly := s.Prefix, false
	if prefix == "" {
		prefix, generatedOnly = cfg.PoolConfig.ConnConfig.Database+"_", true
	}
	if prefix == "_" {
		return fmt.Errorf("refusing to clean up without a prefix; pass --prefix")
	}

	a := admin.New(cfg.PoolConfig, l)
	names, err := a.List(ctx, prefix)
	if err != nil {
		return err
	}
	if generatedOnly {
		now := time.Now()
		names = slices.DeleteFunc(names, func(name string) bool {
			return !isGeneratedSuffix(strings.TrimPrefix(name, prefix), now)
		})
	}

	var errs error
	for _, name := range names {
		if s.DryRun {
			fmt.Printf("would drop %s\n", name)
			continue
		}
		if err := a.DropForce(ctx, name); err != nil {
			l.Warn("failed to drop database", zap.String("database", name), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		fmt.Printf("dropped %s\n", name)
	}

	if errs != nil {
		return fmt.Errorf("cleanup completed with %d errors: %w", len(multierr.Errors(errs)), errs)
	}
	return nil
}
