package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer is awaited before every outbound invite send.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedDelayPacer keeps at least Delay between two consecutive sends in
// this process. The first call never blocks.
type FixedDelayPacer struct {
	Delay time.Duration

	mu   sync.Mutex
	last time.Time
}

func NewFixedDelayPacer(delay time.Duration) *FixedDelayPacer {
	return &FixedDelayPacer{Delay: delay}
}

func (p *FixedDelayPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() && p.Delay > 0 {
		if wait := p.Delay - time.Since(p.last); wait > 0 {
			if err := sleepCtx(ctx, wait); err != nil {
				return err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.last = time.Now()
	return nil
}

// BucketPacer blocks until the shared Redis bucket grants a token.
type BucketPacer struct {
	bucket *TokenBucket
	key    string
	poll   time.Duration
}

func NewBucketPacer(bucket *TokenBucket, key string, poll time.Duration) *BucketPacer {
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}
	return &BucketPacer{bucket: bucket, key: key, poll: poll}
}

func (p *BucketPacer) Wait(ctx context.Context) error {
	for {
		allowed, _, err := p.bucket.Allow(ctx, p.key)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}
		if err := sleepCtx(ctx, p.poll); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
