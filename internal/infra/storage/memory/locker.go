package memory

import (
	"context"
	"sync"

	"doorly/internal/app/policies"
	domainlistings "doorly/internal/domain/listings"
)

// KeyedLocker is an in-process ListingLocker. Each listing has its own slot,
// so different listings never wait on each other.
type KeyedLocker struct {
	mu    sync.Mutex
	slots map[domainlistings.ListingID]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{slots: make(map[domainlistings.ListingID]*slot)}
}

func (l *KeyedLocker) Lock(ctx context.Context, id domainlistings.ListingID) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[id]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[id] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(id, s)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(id, s)
		})
	}, nil
}

func (l *KeyedLocker) release(id domainlistings.ListingID, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, id)
	}
}

var _ policies.ListingLocker = (*KeyedLocker)(nil)
