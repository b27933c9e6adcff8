package cache

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angas/eloverblik-exporter/types/maybe"
	"github.com/mailgun/holster/v4/clock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type token string

const ttl = 10 * time.Minute

func backends(t *testing.T) map[string]Cache[token] {
	return map[string]Cache[token]{
		"memory": NewMemory[token](ttl),
		"disk":   NewDisk[token](afero.NewMemMapFs(), "/cache", ttl, StringCodec[token]{}),
	}
}

func TestNeverWrittenKey(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			expired, err := c.HasExpired("missing")
			require.NoError(t, err)
			assert.True(t, expired)

			v, err := c.Get("missing")
			require.NoError(t, err)
			assert.False(t, v.IsValid())
		})
	}
}

func TestDefaultExpiry(t *testing.T) {
	defer clock.Freeze(clock.Now()).Unfreeze()

	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			start := clock.Now()
			require.NoError(t, c.Put("token", "abc", maybe.None[time.Time]()))

			expired, err := c.HasExpired("token")
			require.NoError(t, err)
			assert.False(t, expired)

			clock.Advance(ttl)
			expired, err = c.HasExpired("token")
			require.NoError(t, err)
			assert.False(t, expired, "expiry is exclusive at the boundary second")

			clock.Advance(time.Second)
			expired, err = c.HasExpired("token")
			require.NoError(t, err)
			assert.True(t, expired)

			// Get ignores expiry
			v, err := c.Get("token")
			require.NoError(t, err)
			assert.Equal(t, token("abc"), v.Value())

			clock.Advance(start.Sub(clock.Now()))
		})
	}
}

func TestExplicitExpiryInThePast(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			past := clock.Now().Add(-time.Minute)
			require.NoError(t, c.Put("token", "abc", maybe.Some(past)))

			expired, err := c.HasExpired("token")
			require.NoError(t, err)
			assert.True(t, expired)
		})
	}
}

func TestPutOverwrites(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Put("token", "first", maybe.Some(clock.Now().Add(-time.Hour))))
			require.NoError(t, c.Put("token", "second", maybe.None[time.Time]()))

			v, err := c.Get("token")
			require.NoError(t, err)
			assert.Equal(t, token("second"), v.Value())

			expired, err := c.HasExpired("token")
			require.NoError(t, err)
			assert.False(t, expired)
		})
	}
}

func TestEntryWithoutExpiryIsExpired(t *testing.T) {
	e := Entry[string]{Value: "x"}
	assert.True(t, e.Expired(time.Now()))
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	const writers, readers, rounds = 4, 8, 50

	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < rounds; i++ {
						assert.NoError(t, c.Put("shared", token(fmt.Sprintf("writer-%d-%d", w, i)), maybe.None[time.Time]()))
					}
				}(w)
			}
			for r := 0; r < readers; r++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < rounds; i++ {
						v, err := c.Get("shared")
						if assert.NoError(t, err) && v.IsValid() {
							assert.True(t, strings.HasPrefix(string(v.Value()), "writer-"), "torn value %q", v.Value())
						}
						_, err = c.HasExpired("shared")
						assert.NoError(t, err)
					}
				}()
			}
			wg.Wait()

			expired, err := c.HasExpired("shared")
			require.NoError(t, err)
			assert.False(t, expired)

			v, err := c.Get("shared")
			require.NoError(t, err)
			require.True(t, v.IsValid())
			assert.True(t, strings.HasSuffix(string(v.Value()), fmt.Sprintf("-%d", rounds-1)), "last write of some writer wins, got %q", v.Value())
		})
	}
}
