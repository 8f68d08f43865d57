package uow

import (
	"context"
	"errors"
)

// ErrUnitOfWorkMissing is returned when a handler runs without the
// transaction middleware and has no factory to open its own unit.
var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

type unitKey struct{}

// ContextWithUnitOfWork attaches the unit opened for one booking command so
// handlers, repositories and the outbox share it.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, unitKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(unitKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}
