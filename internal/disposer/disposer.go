// Package disposer provides an ordered stack of release actions.
//
// Actions are registered in acquisition order and run in reverse order by a
// single Dispose call. Every action runs even if an earlier one fails; the
// failures are combined into one error.
package disposer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrDisposed is returned by Defer once the stack has been disposed.
var ErrDisposed = errors.New("stack already disposed")

type action struct {
	name string
	fn   func(context.Context) error
}

// Stack holds release actions. The zero value is not usable; use New.
type Stack struct {
	logger *zap.Logger

	mu       sync.Mutex
	actions  []action
	disposed bool
}

// New returns an empty Stack that reports failed actions to l.
// A nil logger disables reporting.
func New(l *zap.Logger) *Stack {
	if l == nil {
		l = zap.NewNop()
	}
	return &Stack{logger: l}
}

// Defer registers fn to be called on Dispose under the given name.
func (s *Stack) Defer(name string, fn func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return fmt.Errorf("failed to register %q: %w", name, ErrDisposed)
	}
	s.actions = append(s.actions, action{name: name, fn: fn})
	return nil
}

// Len returns the number of registered actions that have not run yet.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

// Disposed reports whether Dispose has been called.
func (s *Stack) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Dispose runs all registered actions in reverse registration order.
// It is safe to call more than once; calls after the first return nil.
func (s *Stack) Dispose(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	actions := s.actions
	s.actions = nil
	s.mu.Unlock()

	var err error
	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		if e := a.fn(ctx); e != nil {
			s.logger.Warn("release action failed", zap.String("action", a.name), zap.Error(e))
			err = multierr.Append(err, fmt.Errorf("failed to %s: %w", a.name, e))
			continue
		}
		s.logger.Debug("released", zap.String("action", a.name))
	}
	return err
}
