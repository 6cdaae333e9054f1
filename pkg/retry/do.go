// Package retry 带退避的重试，用于可能瞬时失败的存储写入。
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Func 被重试的操作，必须遵守 ctx 的取消
type Func func(ctx context.Context) error

// RetryIf 返回 false 时立即放弃
type RetryIf func(error) bool

// Backoff 第 attempt 次失败后的等待时长，attempt 从 0 开始
type Backoff interface {
	Next(attempt int) time.Duration
}

type fixedBackoff time.Duration

func (b fixedBackoff) Next(int) time.Duration { return time.Duration(b) }

// Fixed 固定间隔
func Fixed(interval time.Duration) Backoff {
	return fixedBackoff(interval)
}

type exponentialBackoff struct {
	base, max time.Duration
}

func (b exponentialBackoff) Next(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	d := b.base << attempt
	if b.max > 0 && d > b.max {
		return b.max
	}
	return d
}

// Exponential base, 2*base, 4*base ...，max 为 0 表示不封顶
func Exponential(base, max time.Duration) Backoff {
	return exponentialBackoff{base: base, max: max}
}

// Jitter 在退避基础上打散，避免多个 worker 同时重试
type Jitter func(time.Duration) time.Duration

func NoJitter(d time.Duration) time.Duration { return d }

// FullJitter [0, d)
func FullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return rand.N(d)
}

type config struct {
	attempts int
	backoff  Backoff
	jitter   Jitter
	retryIf  RetryIf
}

type Option func(*config)

// WithMaxAttempts 总尝试次数，包含第一次
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.attempts = n
		}
	}
}

func WithBackoff(b Backoff) Option {
	return func(c *config) {
		if b != nil {
			c.backoff = b
		}
	}
}

func WithJitter(j Jitter) Option {
	return func(c *config) {
		if j != nil {
			c.jitter = j
		}
	}
}

func WithRetryIf(fn RetryIf) Option {
	return func(c *config) {
		if fn != nil {
			c.retryIf = fn
		}
	}
}

// Do 执行 fn 直到成功、不可重试、次数用尽或 ctx 结束。
// 返回最后一次的错误；ctx 结束时返回 ctx.Err()
func Do(ctx context.Context, fn Func, opts ...Option) error {
	cfg := config{
		attempts: 3,
		backoff:  Exponential(100*time.Millisecond, 2*time.Second),
		jitter:   NoJitter,
		retryIf:  IsRetryable,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var lastErr error
	for attempt := 0; attempt < cfg.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !cfg.retryIf(lastErr) || attempt == cfg.attempts-1 {
			return lastErr
		}

		wait := cfg.jitter(cfg.backoff.Next(attempt))
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return lastErr
}

// IsRetryable 默认条件：除 ctx 取消和超时外都重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
