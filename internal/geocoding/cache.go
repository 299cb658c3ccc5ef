package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/mapgroups/server/internal/observability"
)

const cacheKeyPrefix = "geocode:"

// Cache stores successful lookups in badger so repeated addresses skip the provider.
// Failures are never cached.
type Cache struct {
	next Geocoder
	db   *badger.DB
	ttl  time.Duration
}

// OpenCacheDB opens the badger store at path. An empty path opens an in-memory store.
func OpenCacheDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open geocode cache: %w", err)
	}
	return db, nil
}

// NewCache wraps next with a badger backed result cache
func NewCache(next Geocoder, db *badger.DB, ttl time.Duration) *Cache {
	return &Cache{next: next, db: db, ttl: ttl}
}

func (c *Cache) Geocode(ctx context.Context, address string) (*Result, error) {
	key := cacheKey(address)

	if res, err := c.get(key); err != nil {
		observability.Ctx(ctx).Warn().Err(err).Msg("Geocode cache read failed")
	} else if res != nil {
		observability.GeocodeCache.WithLabelValues("hit").Inc()
		return res, nil
	}
	observability.GeocodeCache.WithLabelValues("miss").Inc()

	res, err := c.next.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	if err := c.set(key, res); err != nil {
		observability.Ctx(ctx).Warn().Err(err).Msg("Geocode cache write failed")
	}
	return res, nil
}

func (c *Cache) get(key []byte) (*Result, error) {
	var res *Result
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var r Result
			if err := json.Unmarshal(val, &r); err != nil {
				return err
			}
			res = &r
			return nil
		})
	})
	return res, err
}

func (c *Cache) set(key []byte, res *Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, data)
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
}

func cacheKey(address string) []byte {
	return []byte(cacheKeyPrefix + strings.ToLower(strings.TrimSpace(address)))
}
