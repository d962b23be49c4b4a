package pgcontext

import (
	"context"
	"testing"
)

// New creates a database context for the duration of a test.
// The test fails immediately if the context cannot be created, and the
// context is closed when the test and its subtests complete.
func New(t testing.TB, sql string, cfg *Config) *Context {
	t.Helper()

	c, err := Create(context.Background(), sql, cfg)
	if err != nil {
		t.Fatalf("failed to create database context: %v", err)
	}

	t.Cleanup(func() {
		if err := c.Close(context.Background()); err != nil {
			t.Errorf("failed to close database context %s: %v", c.DatabaseName(), err)
		}
	})

	return c
}
