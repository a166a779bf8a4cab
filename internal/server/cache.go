package server

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Sennevleminckx/chart/internal/artifact"
)

// DataCache is a read-through LRU over long-form artifacts. Entries are
// keyed by (path, run ID), so a new preprocess run naturally misses the
// cache; within one run the artifact is read from disk at most once.
// Invalidation otherwise happens only on restart or an explicit bust.
type DataCache struct {
	lru *lru.Cache[string, []artifact.LongRow]
}

// NewDataCache creates a cache holding at most entries artifacts.
func NewDataCache(entries int) (*DataCache, error) {
	if entries < 1 {
		entries = 1
	}
	c, err := lru.New[string, []artifact.LongRow](entries)
	if err != nil {
		return nil, fmt.Errorf("creating artifact cache: %w", err)
	}
	return &DataCache{lru: c}, nil
}

// Load returns the long-form rows for path, reading from disk on a miss.
func (c *DataCache) Load(path, runID string) ([]artifact.LongRow, error) {
	key := path + "@" + runID
	if rows, ok := c.lru.Get(key); ok {
		return rows, nil
	}

	rows, err := artifact.ReadLong(path)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, rows)
	return rows, nil
}

// Bust drops every cached artifact.
func (c *DataCache) Bust() {
	c.lru.Purge()
}

// Len returns the number of cached artifacts.
func (c *DataCache) Len() int {
	return c.lru.Len()
}
