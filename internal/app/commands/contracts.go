package commands

import (
	"context"
	"errors"
	"fmt"
)

// Command is a state change on listings or bookings: a reservation request,
// a payment event, a cancellation, a dispute step or a review. Key names the
// handler it is routed to.
type Command interface {
	Key() string
}

type Handler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

// HandlerFunc lets tests and small handlers register a plain function.
type HandlerFunc[C Command, R any] func(ctx context.Context, cmd C) (R, error)

func (f HandlerFunc[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	return f(ctx, cmd)
}

// Bus is what the HTTP layer and the sweeper dispatch through. The engine
// wraps the in-memory bus with idempotency, validation, locking, retries and
// the unit of work.
type Bus interface {
	Dispatch(ctx context.Context, cmd Command) (any, error)
}

var (
	ErrHandlerNotFound = errors.New("commands: handler not found")
	ErrInvalidCommand  = errors.New("commands: invalid command for handler")
	ErrResultType      = errors.New("commands: result type mismatch")
	ErrNilBus          = errors.New("commands: nil bus")
)

// Dispatch sends cmd and converts the untyped result to R. A nil result,
// such as a duplicate with nothing to report, yields the zero R.
func Dispatch[C Command, R any](ctx context.Context, bus Bus, cmd C) (R, error) {
	var out R
	if bus == nil {
		return out, ErrNilBus
	}
	res, err := bus.Dispatch(ctx, cmd)
	switch {
	case err != nil:
		return out, err
	case res == nil:
		return out, nil
	}
	typed, ok := res.(R)
	if !ok {
		return out, fmt.Errorf("%w: %s returned %T", ErrResultType, cmd.Key(), res)
	}
	return typed, nil
}
