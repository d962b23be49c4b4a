package pgcontext

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Stage identifies the lifecycle step that failed.
type Stage string

const (
	// StageCreate covers the administrative connection and CREATE/DROP before use.
	StageCreate Stage = "create database"
	// StagePool covers opening the pool bound to the generated database.
	StagePool Stage = "open pool"
	// StageScript covers executing the SQL script.
	StageScript Stage = "apply script"
	// StageMigrate covers applying goose migrations.
	StageMigrate Stage = "apply migrations"
	// StageTeardown covers closing the pool and dropping the database.
	StageTeardown Stage = "tear down"
)

// StageError is returned by context construction and disposal.
type StageError struct {
	Stage    Stage
	Database string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("failed to %s (database %s): %v", e.Stage, e.Database, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage of the first StageError in err's chain.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// IsDatabaseNotExist reports whether err was caused by a missing database.
func IsDatabaseNotExist(err error) bool {
	return hasCode(err, pgerrcode.InvalidCatalogName)
}

// IsDatabaseInUse reports whether err was caused by other sessions using the database.
func IsDatabaseInUse(err error) bool {
	return hasCode(err, pgerrcode.ObjectInUse)
}

// IsDuplicateDatabase reports whether err was caused by an existing database with the same name.
func IsDuplicateDatabase(err error) bool {
	return hasCode(err, pgerrcode.DuplicateDatabase)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
