package snapshot

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sigil/internal/symbols"
)

// Key identifies a cached snapshot.
type Key [32]byte

func (k Key) String() string { return hex.EncodeToString(k[:]) }

// KeyFor hashes the inputs of a resolution together with the schema and
// built-in versions, so a format change never hits stale entries.
func KeyFor(inputs ...[]byte) Key {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint16(buf[:2], SchemaVersion)
	_, _ = h.Write(buf[:2])
	_, _ = h.Write([]byte(symbols.BootstrapVersion))
	for _, in := range inputs {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(in)))
		_, _ = h.Write(buf[:])
		_, _ = h.Write(in)
	}
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Cache stores snapshots on disk. It is safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// OpenCache returns the cache under $XDG_CACHE_HOME/app (or ~/.cache/app).
func OpenCache(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewCache(filepath.Join(base, app))
}

// NewCache returns a cache rooted at dir, creating it when missing.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) pathFor(key Key) string {
	return filepath.Join(c.dir, "states", key.String()+".mp")
}

// Put writes s under key. The file is replaced atomically.
func (c *Cache) Put(key Key, s *symbols.State) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	if err := Encode(f, s); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the snapshot stored under key. A missing entry is not an
// error. Entries from another schema are removed and reported as misses.
func (c *Cache) Get(key Key) (*symbols.State, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	p := c.pathFor(key)
	f, err := os.Open(p) // #nosec G304 -- path is derived from the cache dir and a hex key
	if err != nil {
		c.mu.RUnlock()
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	s, err := Decode(f)
	closeErr := f.Close()
	c.mu.RUnlock()

	if errors.Is(err, ErrIncompatible) {
		return nil, false, c.drop(p)
	}
	if err != nil {
		return nil, false, err
	}
	if closeErr != nil {
		return nil, false, closeErr
	}
	return s, true, nil
}

func (c *Cache) drop(p string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// DropAll removes every cached snapshot.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "states"))
}
