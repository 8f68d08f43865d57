package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"
)

func TestProducerPublishesKeyAndPayload(t *testing.T) {
	sync := mocks.NewSyncProducer(t, nil)
	sync.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, _ := msg.Key.Encode()
		if string(key) != "booking-1" {
			return errors.New("unexpected key " + string(key))
		}
		if msg.Topic != "doorly.booking.events.v1" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Key) != "ce_type" {
			return errors.New("missing header")
		}
		return nil
	})
	p := NewProducerFrom(sync)

	err := p.Publish(context.Background(), "doorly.booking.events.v1", "booking-1", []byte(`{}`), map[string]string{"ce_type": "booking.confirmed"})

	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestProducerHonoursCancelledContext(t *testing.T) {
	sync := mocks.NewSyncProducer(t, nil)
	p := NewProducerFrom(sync)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, "topic", "key", nil, nil)

	require.ErrorIs(t, err, context.Canceled)
	require.NoError(t, p.Close())
}
