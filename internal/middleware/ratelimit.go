package middleware

import (
	"sync"
	"time"

	"clinic-admin-server/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RateLimiter 管理接口的内存限流器，按调用方维度滑动窗口计数
type RateLimiter struct {
	visits map[string][]time.Time
	mu     sync.Mutex
	limit  int           // 窗口内允许的请求数
	window time.Duration // 滑动窗口长度
}

// NewRateLimiter 创建限流器并启动过期记录回收
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visits: make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
	go rl.sweep()
	return rl
}

// Allow 记录一次访问并判断是否放行
func (rl *RateLimiter) Allow(caller string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	recent := rl.prune(rl.visits[caller], time.Now().Add(-rl.window))
	if len(recent) >= rl.limit {
		rl.visits[caller] = recent
		return false
	}
	rl.visits[caller] = append(recent, time.Now())
	return true
}

// prune 丢弃窗口起点之前的访问记录
func (rl *RateLimiter) prune(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// sweep 定期回收不再活跃的调用方，避免离职账号和换 IP 的记录堆积
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-rl.window)
		for caller, times := range rl.visits {
			kept := rl.prune(times, cutoff)
			if len(kept) == 0 {
				delete(rl.visits, caller)
			} else {
				rl.visits[caller] = kept
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimitMiddleware 限流中间件
// 已登录的管理员按账号计数，登录前的请求退回到客户端 IP，
// 避免同一院区出口 IP 下的多个管理员互相挤占配额
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := GetUserID(c)
		if caller == "" {
			caller = c.ClientIP()
		}
		if !limiter.Allow(caller) {
			response.Error(c, 429, "操作过于频繁，请稍后再试")
			c.Abort()
			return
		}
		c.Next()
	}
}
