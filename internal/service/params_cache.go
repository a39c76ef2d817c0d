package service

import (
	"context"
	"sync"
	"time"

	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/repository"
)

// paramsCache is a short-TTL read cache over the global Params row, the same
// 500ms in-memory cache shape the teacher's MarketService uses for the
// active market — Params changes only via governance execute_action, which
// is rare, so every buy/sell avoiding a row read on the hot path is worth
// a half-second of staleness.
type paramsCache struct {
	repo *repository.ParamsRepository

	mu      sync.RWMutex
	cached  domain.Params
	fetched time.Time
}

func newParamsCache(repo *repository.ParamsRepository) *paramsCache {
	return &paramsCache{repo: repo}
}

const paramsCacheTTL = 500 * time.Millisecond

func (c *paramsCache) Get(ctx context.Context) (domain.Params, error) {
	c.mu.RLock()
	if time.Since(c.fetched) < paramsCacheTTL {
		p := c.cached
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	p, err := c.repo.Get(ctx)
	if err != nil {
		return domain.Params{}, err
	}
	c.mu.Lock()
	c.cached = p
	c.fetched = time.Now()
	c.mu.Unlock()
	return p, nil
}

// Invalidate forces the next Get to hit the database, called right after a
// governance action commits a parameter change.
func (c *paramsCache) Invalidate() {
	c.mu.Lock()
	c.fetched = time.Time{}
	c.mu.Unlock()
}
