package cachemem

import (
	"context"
	"sync"

	"sigil/internal/domain"
	"sigil/internal/usecase"
)

// Cache is an in-memory OCSP cache store for single-node deployments and
// tests. Expired entries are dropped lazily on read; like the database
// store, at most one entry lives per certificate.
type Cache struct {
	mu      sync.Mutex
	entries map[string]domain.OCSPCacheEntry
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]domain.OCSPCacheEntry),
	}
}

func (c *Cache) Get(_ context.Context, certificateID string) (*domain.OCSPCacheEntry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[certificateID]
	if !ok {
		return nil, false, nil
	}
	value := entry
	return &value, true, nil
}

func (c *Cache) Put(_ context.Context, entry domain.OCSPCacheEntry) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.CertificateID] = entry
	return nil
}

func (c *Cache) Delete(_ context.Context, certificateID string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, certificateID)
	return nil
}

var _ usecase.OCSPCacheStore = (*Cache)(nil)
