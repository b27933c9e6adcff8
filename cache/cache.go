// Package cache provides a small expiring key/value store with an in-memory and
// an on-disk backend.
package cache

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/angas/eloverblik-exporter/types/maybe"
	"github.com/mailgun/holster/v4/clock"
)

// Cache stores values with an absolute expiry per key.
//
// Get returns the stored value whether or not it has expired, callers check
// HasExpired separately. A key that was never written has expired.
type Cache[T any] interface {
	Put(key string, value T, expiresAt maybe.Maybe[time.Time]) error
	Get(key string) (maybe.Maybe[T], error)
	HasExpired(key string) (bool, error)
}

type Entry[T any] struct {
	Value     T
	ExpiresAt time.Time
}

// Expired compares at second resolution. An entry without expiry is expired.
func (e Entry[T]) Expired(now time.Time) bool {
	if e.ExpiresAt.IsZero() {
		return true
	}
	return now.Unix() > e.ExpiresAt.Unix()
}

var ErrInvalidKey = errors.New("invalid cache key")

// IOError is returned by the disk backend when the cache directory or one of
// its files can't be used.
type IOError struct {
	Op  string
	Key string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func expiryOrDefault(expiresAt maybe.Maybe[time.Time], ttl time.Duration) time.Time {
	return expiresAt.ValueOrElse(func() time.Time {
		return clock.Now().Add(ttl)
	})
}

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." ||
		strings.ContainsAny(key, `/\`) || filepath.Base(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
