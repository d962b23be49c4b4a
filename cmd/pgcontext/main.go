// Command pgcontext creates disposable PostgreSQL databases and removes leftovers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pgcontext",
	Short: "Disposable PostgreSQL databases for tests",
	Long: `pgcontext creates uniquely named PostgreSQL databases, applies a SQL script
to them and drops them again.

Connection settings come from --dsn, the PGCONTEXT_DSN environment variable,
a pgcontext.{toml,yaml,json} file in the working directory, or the libpq
environment variables (PGHOST, PGUSER, ...) when none of these is set.

Examples:
  pgcontext create --sql schema.sql            # create, print DSN, drop on Ctrl-C
  pgcontext cleanup --prefix postgres_ --dry-run # list leftover databases`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("dsn", "", "connection string of the administrative database")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(cleanupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
