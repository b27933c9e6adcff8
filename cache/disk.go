package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/angas/eloverblik-exporter/types/maybe"
	"github.com/mailgun/holster/v4/clock"
	"github.com/spf13/afero"
)

// diskEntry is the file body. Data is a []byte so encoding/json writes it as base64.
type diskEntry struct {
	ExpiresAt int64  `json:"expires_at"`
	Data      []byte `json:"data"`
}

// Disk stores one file per key under a root directory.
type Disk[T any] struct {
	mu    sync.RWMutex
	fs    afero.Fs
	root  string
	ttl   time.Duration
	codec Codec[T]
}

func NewDisk[T any](fsys afero.Fs, root string, defaultTTL time.Duration, codec Codec[T]) *Disk[T] {
	return &Disk[T]{
		fs:    fsys,
		root:  root,
		ttl:   defaultTTL,
		codec: codec,
	}
}

func (d *Disk[T]) Put(key string, value T, expiresAt maybe.Maybe[time.Time]) error {
	if err := validateKey(key); err != nil {
		return err
	}

	data, err := d.codec.Encode(value)
	if err != nil {
		return &IOError{Op: "encode", Key: key, Err: err}
	}

	body, err := json.Marshal(diskEntry{
		ExpiresAt: expiryOrDefault(expiresAt, d.ttl).Unix(),
		Data:      data,
	})
	if err != nil {
		return &IOError{Op: "encode", Key: key, Err: err}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fs.MkdirAll(d.root, 0o755); err != nil {
		return &IOError{Op: "mkdir", Key: key, Err: err}
	}

	// Write to a temp file first so a crash never leaves a half-written entry behind
	tmp, err := afero.TempFile(d.fs, d.root, "."+key+"-*")
	if err != nil {
		return &IOError{Op: "write", Key: key, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		d.fs.Remove(tmpName)
		return &IOError{Op: "write", Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		d.fs.Remove(tmpName)
		return &IOError{Op: "write", Key: key, Err: err}
	}
	if err := d.fs.Rename(tmpName, d.path(key)); err != nil {
		d.fs.Remove(tmpName)
		return &IOError{Op: "write", Key: key, Err: err}
	}

	return nil
}

func (d *Disk[T]) Get(key string) (maybe.Maybe[T], error) {
	entry, ok, err := d.read(key)
	if err != nil || !ok {
		return maybe.None[T](), err
	}

	value, err := d.codec.Decode(entry.Data)
	if err != nil {
		return maybe.None[T](), &IOError{Op: "decode", Key: key, Err: err}
	}
	return maybe.Some(value), nil
}

func (d *Disk[T]) HasExpired(key string) (bool, error) {
	entry, ok, err := d.read(key)
	if err != nil {
		return true, err
	}
	if !ok {
		return true, nil
	}

	e := Entry[T]{}
	if entry.ExpiresAt != 0 {
		e.ExpiresAt = time.Unix(entry.ExpiresAt, 0)
	}
	return e.Expired(clock.Now()), nil
}

func (d *Disk[T]) read(key string) (diskEntry, bool, error) {
	if err := validateKey(key); err != nil {
		return diskEntry{}, false, err
	}

	d.mu.RLock()
	body, err := afero.ReadFile(d.fs, d.path(key))
	d.mu.RUnlock()

	if errors.Is(err, fs.ErrNotExist) {
		return diskEntry{}, false, nil
	}
	if err != nil {
		return diskEntry{}, false, &IOError{Op: "read", Key: key, Err: err}
	}

	var entry diskEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		return diskEntry{}, false, &IOError{Op: "decode", Key: key, Err: err}
	}
	return entry, true, nil
}

func (d *Disk[T]) path(key string) string {
	return filepath.Join(d.root, key)
}
