package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// settings are the resolved command options.
type settings struct {
	DSN        string `mapstructure:"dsn"`
	Verbose    bool   `mapstructure:"verbose"`
	SQL        string `mapstructure:"sql"`
	Migrations string `mapstructure:"migrations"`
	LogQueries bool   `mapstructure:"log-queries"`
	Prefix     string `mapstructure:"prefix"`
	DryRun     bool   `mapstructure:"dry-run"`
}

// loadSettings merges flags, PGCONTEXT_* environment variables and the optional
// pgcontext config file, in that order of precedence.
func loadSettings(cmd *cobra.Command) (*settings, error) {
	v := viper.New()
	v.SetConfigName("pgcontext")
	v.AddConfigPath(".")
	v.SetEnvPrefix("PGCONTEXT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := v.BindPFlags(cmd.InheritedFlags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return &s, nil
}

func (s *settings) logger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if s.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// dsnFor returns a connection string for database based on the given one.
func dsnFor(dsn, database string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err == nil {
			u.Path = "/" + database
			u.RawPath = ""
			return u.String()
		}
	}

	kv := "dbname=" + quoteKeywordValue(database)
	if strings.TrimSpace(dsn) == "" {
		return kv
	}
	return dsn + " " + kv
}

var keywordValueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quoteKeywordValue(s string) string {
	return "'" + keywordValueEscaper.Replace(s) + "'"
}
