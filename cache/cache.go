// Package cache implements the Cached Raster Record key-value collaborator:
// put(raster_uri, record) / get(raster_uri) -> record. The backend
// composition (dedup + in-memory LRU + an optional durable tier: local
// disk, sqlite, or Google Cloud Storage) mirrors a resource cache with
// pluggable backends.
package cache

import (
	"context"
	"database/sql"
	"encoding/gob"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/requestcache/v4"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dc3/cubebuilder/model"
)

func init() {
	gob.Register(model.CachedRasterRecord{})
}

// Cache wraps a requestcache.Cache specialized to store
// model.CachedRasterRecord values keyed by raster URI.
type Cache struct {
	rc *requestcache.Cache
}

// New builds a Cache. diskCachePath selects the durable tier: empty means
// memory-only; a "gs://bucket/prefix" URL means Google Cloud Storage; a
// path ending in ".sqlite3" means a sqlite-backed store; anything else is
// treated as a local disk cache directory (created if missing).
func New(diskCachePath string, memCacheSize int) (*Cache, error) {
	dedup := requestcache.Deduplicate()
	mc := requestcache.Memory(memCacheSize)

	if diskCachePath == "" {
		return &Cache{rc: requestcache.NewCache(dedup, mc)}, nil
	}
	if strings.HasPrefix(diskCachePath, "gs://") {
		loc, err := url.Parse(diskCachePath)
		if err != nil {
			return nil, err
		}
		cf, err := requestcache.GoogleCloudStorage(context.Background(), loc.Host, strings.TrimLeft(loc.Path, "/"))
		if err != nil {
			return nil, err
		}
		return &Cache{rc: requestcache.NewCache(dedup, mc, cf)}, nil
	}
	if filepath.Ext(diskCachePath) == ".sqlite3" {
		db, err := sql.Open("sqlite3", diskCachePath)
		if err != nil {
			return nil, err
		}
		cf, err := requestcache.SQL(context.Background(), db)
		if err != nil {
			return nil, err
		}
		return &Cache{rc: requestcache.NewCache(dedup, mc, cf)}, nil
	}
	if err := os.MkdirAll(diskCachePath, os.ModePerm); err != nil {
		return nil, err
	}
	return &Cache{rc: requestcache.NewCache(dedup, mc, requestcache.Disk(diskCachePath))}, nil
}

// rasterCacheRequest is the request object handed to requestcache: it
// knows its own cache key and, for a put, the value to produce.
type rasterCacheRequest struct {
	uri    string
	record model.CachedRasterRecord
	isPut  bool
}

func (r *rasterCacheRequest) Key() string { return "raster:" + r.uri }

// Run supplies the value to cache on a miss. For gets that miss (no put
// has happened yet for this URI) it returns the zero record; callers
// distinguish a real miss via Get's ok return.
func (r *rasterCacheRequest) Run(context.Context) (interface{}, error) {
	return r.record, nil
}

// Put stores record under raster URI uri.
func (c *Cache) Put(ctx context.Context, uri string, record model.CachedRasterRecord) error {
	req := c.rc.NewRequest(ctx, &rasterCacheRequest{uri: uri, record: record, isPut: true})
	var out model.CachedRasterRecord
	return req.Result(&out)
}

// Get retrieves the record stored under raster URI uri, and false if there
// is none.
func (c *Cache) Get(ctx context.Context, uri string) (model.CachedRasterRecord, bool, error) {
	req := c.rc.NewRequest(ctx, &rasterCacheRequest{uri: uri})
	var out model.CachedRasterRecord
	if err := req.Result(&out); err != nil {
		return model.CachedRasterRecord{}, false, err
	}
	if (out == model.CachedRasterRecord{}) {
		return model.CachedRasterRecord{}, false, nil
	}
	return out, true, nil
}
