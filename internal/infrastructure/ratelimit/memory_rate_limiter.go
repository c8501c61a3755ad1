package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/turtacn/tokengate/internal/config"
	"github.com/turtacn/tokengate/internal/domain/service"
	"github.com/turtacn/tokengate/pkg/constants"
)

// MemoryRateLimiter is a single-process fixed-window limiter.
// MemoryRateLimiter 是单进程固定窗口限流器。
type MemoryRateLimiter struct {
	mu     sync.Mutex
	store  *cache.Cache
	limit  int
	window time.Duration
}

// NewMemoryRateLimiter creates a limiter allowing cfg.Limit requests per cfg.Window.
func NewMemoryRateLimiter(cfg config.RateLimitConfig) *MemoryRateLimiter {
	window := normalizeWindow(cfg.Window)
	return &MemoryRateLimiter{
		store:  cache.New(window, 2*window),
		limit:  cfg.Limit,
		window: window,
	}
}

// Allow records one request for key under scope.
func (m *MemoryRateLimiter) Allow(_ context.Context, scope constants.RateLimitScope, key string) (bool, int, time.Time, error) {
	k := fmt.Sprintf("%s:%s", scope, key)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, expiresAt, found := m.store.GetWithExpiration(k); found {
		count, err := m.store.IncrementInt(k, 1)
		if err == nil {
			return decide(count, m.limit, expiresAt)
		}
	}

	// New window; the entry expires together with it.
	if err := m.store.Add(k, 1, m.window); err != nil {
		m.store.Set(k, 1, m.window)
	}
	_, expiresAt, _ := m.store.GetWithExpiration(k)
	return decide(1, m.limit, expiresAt)
}

var _ service.RateLimiter = (*MemoryRateLimiter)(nil)
