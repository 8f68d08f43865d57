package middleware

import (
	"context"

	"doorly/internal/app/commands"
	"doorly/internal/app/queries"
)

// CommandMiddleware decorates the booking command bus. Each stage sees the
// command before the handler and its error after.
type CommandMiddleware func(next commands.Bus) commands.Bus

type QueryMiddleware func(next queries.Bus) queries.Bus

// ChainCommands applies mws so that mws[0] runs first. The engine relies on
// this order: inbox and idempotency checks sit outside the listing lock,
// which sits outside conflict retries and the unit of work.
func ChainCommands(base commands.Bus, mws ...CommandMiddleware) commands.Bus {
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// ChainQueries applies mws so that mws[0] runs first.
func ChainQueries(base queries.Bus, mws ...QueryMiddleware) queries.Bus {
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

type commandFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f commandFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

func wrapCommand(next commands.Bus) commandFunc {
	return next.Dispatch
}

type queryFunc func(ctx context.Context, query queries.Query) (any, error)

func (f queryFunc) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}

func wrapQuery(next queries.Bus) queryFunc {
	return next.Ask
}
