package resolver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/scmmishra/qrtrack/internal/cache"
	"github.com/scmmishra/qrtrack/internal/models"
)

// ErrNotFound covers every reason a short code cannot be served: unknown,
// inactive, expired, or a failed lookup.
var ErrNotFound = errors.New("code not found")

type CodeStore interface {
	GetActiveCodeByShortCode(ctx context.Context, shortCode string) (*models.TrackedCode, error)
}

type Resolver struct {
	store CodeStore
	cache *cache.CodeCache
	log   *slog.Logger
	now   func() time.Time

	// gen is bumped by every Invalidate. A lookup only fills the cache if no
	// invalidation happened while it was reading the store.
	mu  sync.Mutex
	gen uint64
}

// New returns a Resolver. A nil cache disables caching.
func New(store CodeStore, c *cache.CodeCache, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		store: store,
		cache: c,
		log:   log.With(slog.String("component", "resolver")),
		now:   time.Now,
	}
}

// Resolve returns the active code for shortCode. Matching is exact and
// case-sensitive. Store failures are logged and reported as ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, shortCode string) (*models.TrackedCode, error) {
	if shortCode == "" {
		return nil, ErrNotFound
	}

	if r.cache != nil {
		if code, ok := r.cache.Get(shortCode); ok {
			if code.Expired(r.now()) {
				r.cache.Invalidate(shortCode)
				return nil, ErrNotFound
			}
			return code, nil
		}
	}

	gen := r.generation()
	code, err := r.store.GetActiveCodeByShortCode(ctx, shortCode)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			r.log.Error("code lookup failed", slog.String("short_code", shortCode), slog.Any("error", err))
		}
		return nil, ErrNotFound
	}
	if !code.Servable(r.now()) {
		return nil, ErrNotFound
	}

	r.fill(shortCode, code, gen)
	return code, nil
}

// ResolveForLandingPage is Resolve restricted to codes with a landing page.
func (r *Resolver) ResolveForLandingPage(ctx context.Context, shortCode string) (*models.TrackedCode, error) {
	code, err := r.Resolve(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	if !code.LandingPage.Enabled {
		return nil, ErrNotFound
	}
	return code, nil
}

// Invalidate drops shortCode from the cache after a write.
func (r *Resolver) Invalidate(shortCode string) {
	if r.cache == nil || shortCode == "" {
		return
	}
	r.mu.Lock()
	r.gen++
	r.cache.Invalidate(shortCode)
	r.mu.Unlock()
}

func (r *Resolver) generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

func (r *Resolver) fill(shortCode string, code *models.TrackedCode, gen uint64) {
	if r.cache == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return
	}
	r.cache.Set(shortCode, code)
}
