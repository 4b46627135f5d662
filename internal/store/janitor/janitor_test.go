package janitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunSweepsUntilCanceled(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Run(ctx, 5*time.Millisecond, func(ctx context.Context, now time.Time) (int64, error) {
			calls.Add(1)
			return 1, nil
		})
	}()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("sweep ran %d times, want >= 3", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunKeepsGoingAfterSweepError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = Run(ctx, 5*time.Millisecond, func(ctx context.Context, now time.Time) (int64, error) {
			calls.Add(1)
			return 0, errors.New("db down")
		})
	}()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("sweep ran %d times after error, want >= 2", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}
