package outbox

import (
	"context"
	"log/slog"
)

// LogProducer publishes by logging. It keeps the outbox draining in local runs
// where no broker is configured.
type LogProducer struct {
	Logger *slog.Logger
}

func (p LogProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("event published", "topic", topic, "key", key, "bytes", len(payload), "type", headers["aggregate_type"])
	return nil
}

var _ Producer = LogProducer{}
