package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	pending []*Message
	sent    []string
	failed  map[string]string
}

func (s *fakeStore) Claim(context.Context, string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, nil
	}
	msg := s.pending[0]
	s.pending = s.pending[1:]
	return msg, nil
}

func (s *fakeStore) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id string, _ time.Time, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = map[string]string{}
	}
	s.failed[id] = errMsg
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	out []published
	err error
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.out = append(p.out, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func message(id, name string) *Message {
	return &Message{
		ID:         id,
		Name:       name,
		Payload:    []byte(`{"BookingID":"b-1"}`),
		OccurredAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Aggregate:  "b-1",
		Headers:    map[string]string{"aggregate_type": "booking"},
	}
}

func TestWorker_DrainPublishesCloudEvents(t *testing.T) {
	store := &fakeStore{pending: []*Message{message("1", "booking.held"), message("2", "booking.confirmed")}}
	producer := &fakeProducer{}
	w := &Worker{Store: store, Producer: producer, TopicPrefix: "doorly."}

	require.NoError(t, w.Drain(context.Background()))

	assert.Equal(t, []string{"1", "2"}, store.sent)
	require.Len(t, producer.out, 2)
	assert.Equal(t, "doorly.booking.events.v1", producer.out[0].topic)
	assert.Equal(t, "b-1", producer.out[0].key)
	assert.Equal(t, "application/cloudevents+json", producer.out[0].headers["content-type"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(producer.out[1].payload, &evt))
	assert.Equal(t, "booking.confirmed.v1", evt["type"])
	assert.Equal(t, "app://doorly", evt["source"])
}

func TestWorker_PublishFailureSchedulesRetry(t *testing.T) {
	store := &fakeStore{pending: []*Message{message("1", "booking.held")}}
	w := &Worker{Store: store, Producer: &fakeProducer{err: errors.New("broker down")}, Backoff: []time.Duration{time.Second}}

	require.NoError(t, w.Drain(context.Background()))

	assert.Empty(t, store.sent)
	assert.Equal(t, "broker down", store.failed["1"])
}

func TestWorker_RequiresStoreAndProducer(t *testing.T) {
	w := &Worker{}
	assert.ErrorIs(t, w.Run(context.Background()), ErrWorkerNotConfigured)
}

func TestLogProducer_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, LogProducer{}.Publish(ctx, "t", "k", nil, nil))
	assert.NoError(t, LogProducer{}.Publish(context.Background(), "t", "k", nil, nil))
}
