package registry

import (
	"context"
	"sync"
	"time"
)

// DefaultThrottleInterval 是 crates.io 要求的最小请求间隔。
const DefaultThrottleInterval = time.Second

// Throttle 保证本进程对 registry 的出站请求全局间隔不低于固定阈值。
// 单实例在服务启动时构造并注入所有 registry 使用者，而非包级单例。
type Throttle struct {
	mu        sync.Mutex
	interval  time.Duration
	lastFetch time.Time
}

// NewThrottle 构造节流器。interval 不为正时取 DefaultThrottleInterval。
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultThrottleInterval
	}
	return &Throttle{
		interval: interval,
		// 保证首个请求无需等待
		lastFetch: time.Now().Add(-interval),
	}
}

// Wait 阻塞直到距上次请求至少过去一个间隔。读取-等待-更新整体持锁，
// 否则两个并发调用会同时观察到“间隔已满”而双双放行。
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastFetch)
	if elapsed < t.interval {
		timer := time.NewTimer(t.interval - elapsed)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	t.lastFetch = time.Now()
	return nil
}
