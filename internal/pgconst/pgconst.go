package pgconst

import (
	"fmt"
	"strings"
)

const (
	// MaxDatabaseNameLength is the maximum length of a database name in PostgreSQL.
	// Longer names are silently truncated by the server, so two generated names
	// sharing the first 63 bytes would address the same database.
	MaxDatabaseNameLength = 63
)

// ValidateDatabaseName checks that name can be used as a database name as-is.
func ValidateDatabaseName(name string) error {
	if name == "" {
		return fmt.Errorf("database name must not be empty")
	}
	if len(name) > MaxDatabaseNameLength {
		return fmt.Errorf(
			"database name exceeds maximum length of %d characters: %s",
			MaxDatabaseNameLength, name,
		)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("database name must not contain NUL bytes: %q", name)
	}
	return nil
}
