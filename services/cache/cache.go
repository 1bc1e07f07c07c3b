package cache

import (
	"time"
)

// CacheService is the shared register for per-domain fetch stamps. Keeping
// the stamps in a cache rather than process memory lets the domain spacing
// hold across multiple worker processes. Entries carry a TTL so a stamp
// never outlives the spacing window it guards.
type CacheService interface {
	// Get retrieves a stored value; a missing key returns an error
	Get(key string) ([]byte, error)

	// Set stores a value that expires after the given duration
	Set(key string, value []byte, expiration time.Duration) error
}
