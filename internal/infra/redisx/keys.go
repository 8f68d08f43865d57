package redisx

import "time"

const (
	// lock:listing:{listing_id} -> owner token
	KeyListingLock = "lock:listing:%s"
	// dedup:{consumer}:{event_id} -> 1
	KeyDedup = "dedup:%s:%s"
	// quote:{listing_id}:v{version}:{start}:{end} -> price breakdown json
	KeyQuote = "quote:%s:v%d:%s:%s"
)

var (
	TTLListingLock = 10 * time.Second
	TTLDedup       = 48 * time.Hour
	TTLQuote       = 5 * time.Minute
)
