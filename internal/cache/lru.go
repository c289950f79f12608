package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/scmmishra/qrtrack/internal/models"
)

// CodeCache holds active codes keyed by short code. Entries expire after the
// TTL so writes made by another process are picked up eventually.
type CodeCache struct {
	c *expirable.LRU[string, *models.TrackedCode]
}

func New(size int, ttl time.Duration) *CodeCache {
	return &CodeCache{c: expirable.NewLRU[string, *models.TrackedCode](size, nil, ttl)}
}

func (cc *CodeCache) Get(shortCode string) (*models.TrackedCode, bool) {
	return cc.c.Get(shortCode)
}

func (cc *CodeCache) Set(shortCode string, code *models.TrackedCode) {
	cc.c.Add(shortCode, code)
}

func (cc *CodeCache) Invalidate(shortCode string) {
	cc.c.Remove(shortCode)
}

func (cc *CodeCache) Len() int {
	return cc.c.Len()
}
