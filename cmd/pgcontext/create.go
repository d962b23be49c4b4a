package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yuku/pgcontext"
)

const closeTimeout = 30 * time.Second

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a database, apply a script and keep it until interrupted",
	Long: `create makes a new uniquely named database, applies the SQL script and
optional goose migrations, prints its name and connection string, then waits
for SIGINT or SIGTERM and drops the database.`,
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

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runCreate(ctx, s, l)
	},
}

func init() {
	createCmd.Flags().String("sql", "", "path of the SQL script to apply")
	createCmd.Flags().String("migrations", "", "directory of goose migrations applied after the script")
	createCmd.Flags().Bool("log-queries", false, "log every query sent to the new database")
}

func runCreate(ctx context.Context, s *settings, l *zap.Logger) error {
	var script string
	if s.SQL != "" {
		b, err := os.ReadFile(s.SQL)
		if err != nil {
			return fmt.Errorf("failed to read SQL script: %w", err)
		}
		script = string(b)
	}

	cfg, err := pgcontext.ParseConfig(s.DSN)
	if err != nil {
		return err
	}
	cfg.Logger = l
	cfg.LogQueries = s.LogQueries
	if s.Migrations != "" {
		cfg.Migrations = os.DirFS(s.Migrations)
	}

	db, err := pgcontext.Create(ctx, script, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("database: %s\n", db.DatabaseName())
	fmt.Printf("dsn:      %s\n", dsnFor(s.DSN, db.DatabaseName()))

	<-ctx.Done()
	l.Info("shutting down", zap.String("database", db.DatabaseName()))

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	return db.Close(closeCtx)
}
