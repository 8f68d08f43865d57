package middleware

import (
	"context"

	"doorly/internal/app/commands"
	"doorly/internal/app/outbox"
)

// OutboxFlush flushes staged events once the command succeeded. Place it
// outside Transaction so flushing only sees committed records.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
