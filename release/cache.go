package release

import (
	"encoding/hex"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format"
)

// Hash is the SHA3-256 digest of a module blob.
type Hash [32]byte

// HashOf returns the content hash of blob.
func HashOf(blob []byte) Hash {
	return sha3.Sum256(blob)
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Cache maps blob content hashes to deserialized modules. It is safe for
// concurrent use. While a blob stays cached every caller receives the same
// *format.CompiledModule, which must be treated as read-only.
type Cache struct {
	lru    *lru.Cache
	flight singleflight.Group
	cfg    format.DeserializerConfig
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a cache holding up to size modules decoded with cfg.
func NewCache(size int, cfg format.DeserializerConfig) (*Cache, error) {
	l, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "cannot create module cache")
	}
	return &Cache{lru: l, cfg: cfg}, nil
}

// Module returns the module encoded by blob, deserializing it on a miss.
// Concurrent misses on the same blob deserialize it once.
func (c *Cache) Module(blob []byte) (*format.CompiledModule, Hash, error) {
	h := HashOf(blob)
	if v, ok := c.lru.Get(h); ok {
		c.hits.Add(1)
		Logger().Debug("module cache hit", zap.Stringer("hash", h))
		return v.(*format.CompiledModule), h, nil
	}

	v, err, _ := c.flight.Do(string(h[:]), func() (any, error) {
		if v, ok := c.lru.Get(h); ok {
			c.hits.Add(1)
			return v, nil
		}
		c.misses.Add(1)
		Logger().Debug("module cache miss", zap.Stringer("hash", h), zap.Int("size", len(blob)))
		m, err := format.DeserializeWithConfig(blob, c.cfg)
		if err != nil {
			return nil, err
		}
		c.lru.Add(h, m)
		return m, nil
	})
	if err != nil {
		return nil, h, err
	}
	return v.(*format.CompiledModule), h, nil
}

// Contains reports whether a module with hash h is cached.
func (c *Cache) Contains(h Hash) bool {
	return c.lru.Contains(h)
}

// Len returns the number of cached modules.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge drops every cached module.
func (c *Cache) Purge() {
	c.lru.Purge()
}
