package service

import (
	"sync"
	"time"

	"clinic-admin-server/internal/config"
)

// loginAttempt 登录尝试记录
type loginAttempt struct {
	FailCount   int       // 失败次数
	LastAttempt time.Time // 最后尝试时间
	LockedUntil time.Time // 锁定截止时间
}

// LoginLimiter 登录限制器，按账号或 IP 计数
type LoginLimiter struct {
	attempts     map[string]*loginAttempt
	mu           sync.RWMutex
	maxAttempts  int           // 最大尝试次数
	lockDuration time.Duration // 锁定时长
	resetAfter   time.Duration // 无失败后多久重置计数
}

var (
	accountLimiter     *LoginLimiter
	accountLimiterOnce sync.Once
	ipLimiter          *LoginLimiter
	ipLimiterOnce      sync.Once
)

// GetLoginLimiter 账号级限制器单例
func GetLoginLimiter() *LoginLimiter {
	accountLimiterOnce.Do(func() {
		sec := config.Get().Security
		lock := time.Duration(sec.LoginLockMinutes) * time.Minute
		accountLimiter = NewLoginLimiter(sec.MaxLoginAttempts, lock, 2*lock)
	})
	return accountLimiter
}

// GetIPLoginLimiter IP 级限制器单例（防止同一 IP 大量尝试不同账号）
func GetIPLoginLimiter() *LoginLimiter {
	ipLimiterOnce.Do(func() {
		sec := config.Get().Security
		lock := time.Duration(sec.IPLockMinutes) * time.Minute
		ipLimiter = NewLoginLimiter(sec.IPMaxAttempts, lock, 2*lock)
	})
	return ipLimiter
}

// NewLoginLimiter 创建登录限制器
func NewLoginLimiter(maxAttempts int, lockDuration, resetAfter time.Duration) *LoginLimiter {
	ll := &LoginLimiter{
		attempts:     make(map[string]*loginAttempt),
		maxAttempts:  maxAttempts,
		lockDuration: lockDuration,
		resetAfter:   resetAfter,
	}
	go ll.cleanup()
	return ll
}

// IsLocked 检查是否被锁定
func (ll *LoginLimiter) IsLocked(key string) (bool, time.Duration) {
	ll.mu.RLock()
	defer ll.mu.RUnlock()

	attempt, exists := ll.attempts[key]
	if !exists {
		return false, 0
	}

	if time.Now().Before(attempt.LockedUntil) {
		return true, time.Until(attempt.LockedUntil)
	}
	return false, 0
}

// RecordFailure 记录登录失败，达到上限时锁定
func (ll *LoginLimiter) RecordFailure(key string) (locked bool, remaining time.Duration) {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	now := time.Now()
	attempt, exists := ll.attempts[key]
	if !exists {
		attempt = &loginAttempt{}
		ll.attempts[key] = attempt
	}

	// 已过重置时间则重新计数
	if now.Sub(attempt.LastAttempt) > ll.resetAfter {
		attempt.FailCount = 0
	}

	attempt.FailCount++
	attempt.LastAttempt = now

	if attempt.FailCount >= ll.maxAttempts {
		attempt.LockedUntil = now.Add(ll.lockDuration)
		return true, ll.lockDuration
	}
	return false, 0
}

// RecordSuccess 登录成功，清除失败记录
func (ll *LoginLimiter) RecordSuccess(key string) {
	ll.mu.Lock()
	defer ll.mu.Unlock()
	delete(ll.attempts, key)
}

// GetRemainingAttempts 获取剩余尝试次数
func (ll *LoginLimiter) GetRemainingAttempts(key string) int {
	ll.mu.RLock()
	defer ll.mu.RUnlock()

	attempt, exists := ll.attempts[key]
	if !exists {
		return ll.maxAttempts
	}
	if time.Since(attempt.LastAttempt) > ll.resetAfter {
		return ll.maxAttempts
	}

	remaining := ll.maxAttempts - attempt.FailCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// cleanup 定期清理过期记录
func (ll *LoginLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		ll.mu.Lock()
		now := time.Now()
		for key, attempt := range ll.attempts {
			if now.After(attempt.LockedUntil) && now.Sub(attempt.LastAttempt) > ll.resetAfter {
				delete(ll.attempts, key)
			}
		}
		ll.mu.Unlock()
	}
}
