package cache

import (
	"time"
)

// CacheService represents a generic cache service. The scraper uses it as a
// rate-limit fence: a live block key means the target asked us to back off.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
