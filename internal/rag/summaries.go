package rag

import (
	"context"
	"sync"
)

// SummaryFetcher is the subset of Client used by SummaryCache.
type SummaryFetcher interface {
	Summaries(ctx context.Context) (map[string]string, error)
}

// SummaryCache holds backend summaries keyed by document id. It is filled once
// by Load and is read-only afterwards.
type SummaryCache struct {
	fetcher SummaryFetcher

	mu        sync.RWMutex
	summaries map[string]string
	loaded    bool
	err       error
}

// NewSummaryCache returns an empty cache backed by fetcher.
func NewSummaryCache(fetcher SummaryFetcher) *SummaryCache {
	return &SummaryCache{fetcher: fetcher, summaries: map[string]string{}}
}

// Load fetches summaries unless a previous call already succeeded.
func (c *SummaryCache) Load(ctx context.Context) error {
	c.mu.RLock()
	done := c.loaded
	c.mu.RUnlock()
	if done {
		return nil
	}

	fetched, err := c.fetcher.Summaries(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}
	if err != nil {
		c.err = err
		return err
	}
	summaries := make(map[string]string, len(fetched))
	for id, text := range fetched {
		summaries[id] = text
	}
	c.summaries = summaries
	c.loaded = true
	c.err = nil
	return nil
}

// Get returns the summary for a document id.
func (c *SummaryCache) Get(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.summaries[id]
	return text, ok
}

// Loaded reports whether summaries were fetched successfully.
func (c *SummaryCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Err returns the error of the last failed load, if any.
func (c *SummaryCache) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}
