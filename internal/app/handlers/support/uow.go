package support

import (
	"context"
	"log/slog"
	"time"

	"doorly/internal/app/uow"
)

// Scope is a unit of work borrowed from the context or started by the handler.
// Only units started here are committed or rolled back here.
type Scope struct {
	Unit      uow.UnitOfWork
	Ctx       context.Context
	managed   bool
	committed bool
}

// Begin reuses the unit already in ctx (set by the transaction middleware) or
// starts a new one.
func Begin(ctx context.Context, factory uow.UoWFactory, opts uow.TxOptions) (*Scope, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return &Scope{Unit: unit, Ctx: ctx}, nil
	}
	if factory == nil {
		return nil, uow.ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	execCtx := ctx
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		execCtx = injector.InjectContext(ctx)
	}
	execCtx = uow.ContextWithUnitOfWork(execCtx, unit)
	return &Scope{Unit: unit, Ctx: execCtx, managed: true}, nil
}

// BeginReadOnlyUnit starts a read-only scope for query handlers.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (*Scope, error) {
	return Begin(ctx, factory, uow.TxOptions{ReadOnly: true})
}

func (s *Scope) Commit() error {
	if !s.managed || s.committed {
		return nil
	}
	if err := s.Unit.Commit(s.Ctx); err != nil {
		return err
	}
	s.committed = true
	return nil
}

// Close rolls back a managed unit that was not committed.
func (s *Scope) Close() {
	if s.managed && !s.committed {
		_ = s.Unit.Rollback(s.Ctx)
	}
}

// Now returns clock() in UTC, defaulting to the wall clock.
func Now(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}

// Logger falls back to the default logger when none was wired.
func Logger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
