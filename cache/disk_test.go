package cache

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/angas/eloverblik-exporter/types/maybe"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskRoundTripAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first := NewDisk[token](afero.NewOsFs(), dir, time.Hour, StringCodec[token]{})
	require.NoError(t, first.Put("eloverblik-access-token", "secret", maybe.None[time.Time]()))

	second := NewDisk[token](afero.NewOsFs(), dir, time.Hour, StringCodec[token]{})
	v, err := second.Get("eloverblik-access-token")
	require.NoError(t, err)
	require.True(t, v.IsValid())
	assert.Equal(t, token("secret"), v.Value())

	expired, err := second.HasExpired("eloverblik-access-token")
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestDiskFileLayout(t *testing.T) {
	fsys := afero.NewMemMapFs()
	c := NewDisk[token](fsys, "/var/cache", time.Hour, StringCodec[token]{})

	expiresAt := time.Date(2023, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, c.Put("token", "abc", maybe.Some(expiresAt)))

	body, err := afero.ReadFile(fsys, filepath.Join("/var/cache", "token"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.Equal(t, float64(expiresAt.Unix()), raw["expires_at"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("abc")), raw["data"])

	entries, err := afero.ReadDir(fsys, "/var/cache")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestDiskJSONCodec(t *testing.T) {
	type session struct {
		Token string `json:"token"`
		Area  string `json:"area"`
	}
	c := NewDisk[session](afero.NewMemMapFs(), "/cache", time.Hour, JSONCodec[session]{})
	require.NoError(t, c.Put("session", session{Token: "t", Area: "DK1"}, maybe.None[time.Time]()))

	v, err := c.Get("session")
	require.NoError(t, err)
	assert.Equal(t, session{Token: "t", Area: "DK1"}, v.Value())
}

func TestDiskCorruptFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/cache/token", []byte("{not json"), 0o600))
	c := NewDisk[token](fsys, "/cache", time.Hour, StringCodec[token]{})

	_, err := c.Get("token")
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "decode", ioErr.Op)

	_, err = c.HasExpired("token")
	assert.True(t, errors.As(err, &ioErr))
}

func TestDiskZeroExpiryIsExpired(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/cache/token", []byte(`{"data":"YWJj"}`), 0o600))
	c := NewDisk[token](fsys, "/cache", time.Hour, StringCodec[token]{})

	expired, err := c.HasExpired("token")
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestDiskMkdirFailure(t *testing.T) {
	c := NewDisk[token](afero.NewReadOnlyFs(afero.NewMemMapFs()), "/cache", time.Hour, StringCodec[token]{})

	err := c.Put("token", "abc", maybe.None[time.Time]())
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "mkdir", ioErr.Op)
}

func TestDiskInvalidKeys(t *testing.T) {
	c := NewDisk[token](afero.NewMemMapFs(), "/cache", time.Hour, StringCodec[token]{})

	for _, key := range []string{"", ".", "..", "a/b", `a\b`} {
		err := c.Put(key, "x", maybe.None[time.Time]())
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}
