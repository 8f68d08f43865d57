package middleware

import (
	"context"
	"sync"
)

type stableIDsKey struct{}

type stableIDs struct {
	mu  sync.Mutex
	ids map[string]string
}

// withStableIDs gives one dispatch a scope of identifiers shared by all of
// its attempts.
func withStableIDs(ctx context.Context) context.Context {
	if _, ok := ctx.Value(stableIDsKey{}).(*stableIDs); ok {
		return ctx
	}
	return context.WithValue(ctx, stableIDsKey{}, &stableIDs{ids: make(map[string]string)})
}

// StableID returns the id generated under name by an earlier attempt of the
// same dispatch, or a fresh one from generate. Retried attempts therefore
// reuse identifiers already sent to the payment gateway.
func StableID(ctx context.Context, name string, generate func() string) string {
	scope, ok := ctx.Value(stableIDsKey{}).(*stableIDs)
	if !ok {
		return generate()
	}
	scope.mu.Lock()
	defer scope.mu.Unlock()
	if id, ok := scope.ids[name]; ok {
		return id
	}
	id := generate()
	scope.ids[name] = id
	return id
}
