package service

import (
	"fmt"
	"sync"
	"time"
)

// ExecutionGuard 执行去重 - 防止同一路径短时间内重复成交
// 同一 signature 在冷却期内只允许执行一次；不同路径互不影响。
type ExecutionGuard struct {
	mu     sync.Mutex
	recent map[string]time.Time // signature -> last execution start

	CooldownPeriod time.Duration
	now            func() time.Time
}

func NewExecutionGuard(cooldown time.Duration) *ExecutionGuard {
	if cooldown <= 0 {
		cooldown = 10 * time.Second
	}
	return &ExecutionGuard{
		recent:         make(map[string]time.Time),
		CooldownPeriod: cooldown,
		now:            time.Now,
	}
}

// Allow reports whether a path may execute now, and records the attempt when
// it may. A denied attempt does not extend the cooldown.
func (g *ExecutionGuard) Allow(signature string) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if last, ok := g.recent[signature]; ok {
		if elapsed := now.Sub(last); elapsed < g.CooldownPeriod {
			return false, fmt.Sprintf("path in cooldown (%.1fs remaining)",
				(g.CooldownPeriod - elapsed).Seconds())
		}
	}
	g.recent[signature] = now
	g.sweep(now)
	return true, ""
}

// sweep drops expired entries so the map stays bounded by active paths.
func (g *ExecutionGuard) sweep(now time.Time) {
	for sig, last := range g.recent {
		if now.Sub(last) >= g.CooldownPeriod {
			delete(g.recent, sig)
		}
	}
}
