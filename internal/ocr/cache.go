package ocr

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const resultsBucket = "results"

// Cache persists successful recognitions keyed by image content, so
// re-running a directory skips images that were already recognized even if
// files were renamed or the previous run was interrupted.
type Cache struct {
	db *bbolt.DB
}

// OpenCache opens or creates the cache database at path.
func OpenCache(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(resultsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache bucket: %w", err)
	}

	return &Cache{db: db}, nil
}

// cacheEntry is the persisted subset of a Result. File paths are left out:
// the same content can live under different names.
type cacheEntry struct {
	Latex       string `json:"latex"`
	Method      string `json:"method"`
	IsSimple    bool   `json:"is_simple"`
	ContentSize [2]int `json:"content_size"`
}

// Lookup returns the cached result for this file content, if any.
func (c *Cache) Lookup(data []byte) (Result, bool) {
	var entry cacheEntry
	found := false

	err := c.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(resultsBucket)).Get(contentKey(data))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			// A corrupt entry reads as a miss and gets rewritten.
			return nil
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return Result{}, false
	}

	simple := entry.IsSimple
	return Result{
		Success:     true,
		Latex:       entry.Latex,
		Method:      entry.Method,
		ContentSize: entry.ContentSize,
		IsSimple:    &simple,
	}, true
}

// Store records a successful recognition. Failures are never cached; they
// should retry on the next run.
func (c *Cache) Store(data []byte, res Result) error {
	if !res.Success {
		return nil
	}

	entry := cacheEntry{
		Latex:       res.Latex,
		Method:      res.Method,
		ContentSize: res.ContentSize,
	}
	if res.IsSimple != nil {
		entry.IsSimple = *res.IsSimple
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(resultsBucket)).Put(contentKey(data), value)
	})
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func contentKey(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
