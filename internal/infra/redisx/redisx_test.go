package redisx

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doorly/internal/app/policies"
	domainlistings "doorly/internal/domain/listings"
	domainpricing "doorly/internal/domain/pricing"
	domainrange "doorly/internal/domain/shared/daterange"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return srv, rdb
}

func TestLockerSerializesSameListing(t *testing.T) {
	_, rdb := newTestRedis(t)
	locker := NewLocker(rdb, 2*time.Second)
	ctx := context.Background()

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "listing-1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				old := atomic.LoadInt32(&maxSeen)
				if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
}

func TestLockerDoesNotBlockOtherListings(t *testing.T) {
	_, rdb := newTestRedis(t)
	locker := NewLocker(rdb, 50*time.Millisecond)
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "listing-a")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := locker.Lock(ctx, "listing-b")
	require.NoError(t, err)
	unlockB()
}

func TestLockerTimesOut(t *testing.T) {
	_, rdb := newTestRedis(t)
	locker := NewLocker(rdb, 50*time.Millisecond)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "listing-1")
	require.NoError(t, err)
	defer unlock()

	_, err = locker.Lock(ctx, "listing-1")
	require.ErrorIs(t, err, policies.ErrLockTimeout)
}

func TestLockerReleaseKeepsForeignToken(t *testing.T) {
	srv, rdb := newTestRedis(t)
	locker := NewLocker(rdb, time.Second)

	unlock, err := locker.Lock(context.Background(), "listing-1")
	require.NoError(t, err)
	require.NoError(t, srv.Set("lock:listing:listing-1", "someone-else"))

	unlock()

	got, err := srv.Get("lock:listing:listing-1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestInboxSeenAndForget(t *testing.T) {
	srv, rdb := newTestRedis(t)
	inbox := NewInbox(rdb, "payments")
	ctx := context.Background()

	seen, err := inbox.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = inbox.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.True(t, srv.Exists("dedup:payments:evt-1"))

	require.NoError(t, inbox.Forget(ctx, "evt-1"))
	seen, err = inbox.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

type countingPricing struct {
	calls int
}

func (p *countingPricing) Quote(ctx context.Context, listing *domainlistings.Listing, dr domainrange.DateRange) (domainpricing.PriceBreakdown, error) {
	p.calls++
	return domainpricing.Calculator{FeeBasisPoints: 1000}.Quote(dr, listing.Rates)
}

func TestQuoteCacheMemoizesPerListingVersion(t *testing.T) {
	_, rdb := newTestRedis(t)
	next := &countingPricing{}
	cache := &QuoteCache{Next: next, Redis: rdb}
	ctx := context.Background()
	listing := &domainlistings.Listing{ID: "listing-1", Rates: domainlistings.RateTable{Daily: 100, Currency: "ARS"}, Version: 1}
	dr, err := domainrange.Parse("2026-11-01", "2026-11-03")
	require.NoError(t, err)

	first, err := cache.Quote(ctx, listing, dr)
	require.NoError(t, err)
	second, err := cache.Quote(ctx, listing, dr)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(330), second.Total.Amount)

	listing.Version = 2
	_, err = cache.Quote(ctx, listing, dr)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestQuoteCacheDoesNotStoreErrors(t *testing.T) {
	_, rdb := newTestRedis(t)
	next := &countingPricing{}
	cache := &QuoteCache{Next: next, Redis: rdb}
	listing := &domainlistings.Listing{ID: "listing-1", Rates: domainlistings.RateTable{Currency: "ARS"}}
	dr, err := domainrange.Parse("2026-11-01", "2026-11-03")
	require.NoError(t, err)

	_, err = cache.Quote(context.Background(), listing, dr)
	require.ErrorIs(t, err, domainpricing.ErrRateMissing)
	_, err = cache.Quote(context.Background(), listing, dr)
	require.ErrorIs(t, err, domainpricing.ErrRateMissing)
	assert.Equal(t, 2, next.calls)
}
