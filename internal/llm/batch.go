package llm

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/concordbio/concord/internal/domain"
)

// BatchSize is the number of prompts dispatched concurrently before the
// group is awaited.
const BatchSize = 64

// RetryPolicy retries failed calls with jittered exponential backoff.
type RetryPolicy struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		MinDelay:    time.Second,
		MaxDelay:    60 * time.Second,
	}
}

// Do runs fn until it succeeds, attempts are exhausted, or ctx is
// cancelled while waiting to retry. The last error is returned as-is so
// callers can inspect it with errors.Is.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.delay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}

// delay picks a random wait in [MinDelay, min(MaxDelay, MinDelay<<attempt)].
func (p RetryPolicy) delay(attempt int) time.Duration {
	minDelay := p.MinDelay
	if minDelay <= 0 {
		minDelay = time.Second
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 60 * time.Second
	}
	upper := minDelay << uint(attempt)
	if upper > maxDelay || upper <= 0 {
		upper = maxDelay
	}
	if upper <= minDelay {
		return minDelay
	}
	return minDelay + time.Duration(rand.Int63n(int64(upper-minDelay)))
}

// CompleteBatch answers every prompt through the client, fanning out at
// most BatchSize concurrent calls. Each batch is awaited as a group before
// the next one starts and results are returned in prompt order. Individual
// calls are retried per the policy; the first exhausted error aborts the
// remaining batches.
func CompleteBatch(ctx context.Context, client domain.LLMClient, prompts []string, policy RetryPolicy) ([]string, error) {
	results := make([]string, len(prompts))
	for start := 0; start < len(prompts); start += BatchSize {
		end := start + BatchSize
		if end > len(prompts) {
			end = len(prompts)
		}
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				return policy.Do(gctx, func(ctx context.Context) error {
					answer, err := client.Complete(ctx, prompts[i])
					if err != nil {
						return err
					}
					results[i] = answer
					return nil
				})
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("completing prompt batch: %w", err)
		}
	}
	return results, nil
}
