package typesync

import (
	"fmt"
	"strings"
	"time"
)

// CacheConfig describes the Cache-Control header attached to an endpoint's
// successful responses. The zero value of each field omits its directive;
// Public false emits "private".
type CacheConfig struct {
	// MaxAge is the freshness lifetime for any cache (max-age).
	MaxAge time.Duration

	// SMaxAge overrides MaxAge for shared caches such as CDNs (s-maxage).
	SMaxAge time.Duration

	// StaleWhileRevalidate allows serving stale content while revalidating
	// in the background (RFC 5861).
	StaleWhileRevalidate time.Duration

	// StaleIfError allows serving stale content when the origin fails
	// (RFC 5861).
	StaleIfError time.Duration

	// Public marks the response cacheable by shared caches.
	Public bool

	// MustRevalidate forbids serving stale responses without revalidation.
	MustRevalidate bool

	// Immutable signals the response never changes within its lifetime.
	Immutable bool
}

func (c CacheConfig) header() string {
	parts := []string{"private"}
	if c.Public {
		parts[0] = "public"
	}
	if c.MaxAge > 0 {
		parts = append(parts, fmt.Sprintf("max-age=%d", int(c.MaxAge.Seconds())))
	}
	if c.SMaxAge > 0 {
		parts = append(parts, fmt.Sprintf("s-maxage=%d", int(c.SMaxAge.Seconds())))
	}
	if c.StaleWhileRevalidate > 0 {
		parts = append(parts, fmt.Sprintf("stale-while-revalidate=%d", int(c.StaleWhileRevalidate.Seconds())))
	}
	if c.StaleIfError > 0 {
		parts = append(parts, fmt.Sprintf("stale-if-error=%d", int(c.StaleIfError.Seconds())))
	}
	if c.MustRevalidate {
		parts = append(parts, "must-revalidate")
	}
	if c.Immutable {
		parts = append(parts, "immutable")
	}
	return strings.Join(parts, ", ")
}
