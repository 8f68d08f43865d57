package middleware

import (
	"context"
	"log/slog"

	"doorly/internal/app/commands"
	"doorly/internal/app/policies"
)

// InboxMessage is implemented by commands delivered at least once by an
// external system. DuplicateResult is returned for an event already handled.
type InboxMessage interface {
	commands.Command
	InboxEventID() string
	DuplicateResult() any
}

// Deduplicate claims the event id before the rest of the chain runs and
// releases the claim when the chain fails. It must sit outside
// RetryOnConflict and Transaction so the claim is only kept once the command
// committed.
func Deduplicate(inbox policies.Inbox, logger *slog.Logger) CommandMiddleware {
	if inbox == nil {
		panic("middleware: inbox required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			msg, ok := cmd.(InboxMessage)
			if !ok || msg.InboxEventID() == "" {
				return nextFn(ctx, cmd)
			}
			eventID := msg.InboxEventID()
			seen, err := inbox.Seen(ctx, eventID)
			if err != nil {
				return nil, err
			}
			if seen {
				logger.Debug("event already processed", "command", cmd.Key(), "event_id", eventID)
				return msg.DuplicateResult(), nil
			}
			res, err := nextFn(ctx, cmd)
			if err != nil {
				if forgetErr := inbox.Forget(context.WithoutCancel(ctx), eventID); forgetErr != nil {
					logger.Warn("inbox release failed", "event_id", eventID, "error", forgetErr)
				}
				return nil, err
			}
			return res, nil
		})
	}
}
