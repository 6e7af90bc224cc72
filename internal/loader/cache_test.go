package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetCoalescesConcurrentLoads(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := New(func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		<-release
		return "loaded:" + key, nil
	})

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(context.Background(), "piano")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("expected one load, got %d", n)
	}
	for _, r := range results {
		if r != "loaded:piano" {
			t.Fatalf("unexpected result %q", r)
		}
	}

	if _, err := c.Get(context.Background(), "piano"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected cached value, load called %d times", n)
	}
}

func TestFailedLoadIsRetried(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("boom")
	c := New(func(ctx context.Context, key string) (int, error) {
		if calls.Add(1) == 1 {
			return 0, boom
		}
		return 42, nil
	})

	if _, err := c.Get(context.Background(), "k"); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := c.Peek("k"); ok {
		t.Fatalf("failed load must not be cached")
	}
	v, err := c.Get(context.Background(), "k")
	if err != nil || v != 42 {
		t.Fatalf("expected retry to succeed, got %v %v", v, err)
	}
}

func TestGetHonoursCallerContext(t *testing.T) {
	c := New(func(ctx context.Context, key string) (int, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.Get(ctx, "slow"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestForget(t *testing.T) {
	var calls atomic.Int32
	c := New(func(ctx context.Context, key string) (int32, error) {
		return calls.Add(1), nil
	})
	first, _ := c.Get(context.Background(), "k")
	c.Forget("k")
	second, _ := c.Get(context.Background(), "k")
	if first == second {
		t.Fatalf("expected reload after Forget, got %d twice", first)
	}
}
