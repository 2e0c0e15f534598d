package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAcquire_FirstCallerPassesImmediately(t *testing.T) {
	l := New(500*time.Millisecond, 0, nil)

	start := time.Now()
	if err := l.Acquire(context.Background(), "example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first acquire took %v, want ~0", elapsed)
	}
}

func TestAcquire_EnforcesMinimumSpacing(t *testing.T) {
	const interval = 60 * time.Millisecond
	l := New(interval, 0, nil)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx, "example.com"); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	// 3 acquires = first immediate + 2 full intervals.
	if want := 2 * interval; elapsed < want {
		t.Errorf("3 sequential acquires took %v, want at least %v", elapsed, want)
	}
}

func TestAcquire_ConcurrentCallersCannotBurst(t *testing.T) {
	const interval = 50 * time.Millisecond
	l := New(interval, 0, nil)

	var mu sync.Mutex
	var releases []time.Time
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background(), "example.com"); err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			releases = append(releases, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(releases) != 4 {
		t.Fatalf("got %d releases, want 4", len(releases))
	}
	// Releases must be spaced from the previous *release*, not arrival.
	// Allow a small scheduling epsilon.
	const epsilon = 10 * time.Millisecond
	for i := 1; i < len(releases); i++ {
		var prev, cur = releases[0], releases[i]
		for _, r := range releases {
			if r.Before(cur) && r.After(prev) {
				prev = r
			}
		}
		if gap := cur.Sub(prev); gap+epsilon < interval {
			t.Errorf("release %d only %v after previous, want >= %v", i, gap, interval)
		}
	}
}

func TestAcquire_IndependentDomainsDoNotSerialize(t *testing.T) {
	const interval = 200 * time.Millisecond
	l := New(interval, 0, nil)
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for _, d := range []string{"a.com", "b.com", "c.com"} {
		wg.Add(1)
		go func(domain string) {
			defer wg.Done()
			_ = l.Acquire(ctx, domain)
		}(d)
	}
	wg.Wait()

	if elapsed := time.Since(start); elapsed > interval {
		t.Errorf("distinct domains took %v, should all pass immediately", elapsed)
	}
}

func TestAcquire_CancellationAbortsWait(t *testing.T) {
	l := New(time.Hour, 0, nil)
	ctx := context.Background()

	// Consume the initial token.
	if err := l.Acquire(ctx, "example.com"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := l.Acquire(cancelCtx, "example.com")
	if err == nil {
		t.Fatal("expected cancellation error, got nil")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("cancelled acquire took %v, want prompt abort", elapsed)
	}
}

func TestAcquire_PerDomainOverride(t *testing.T) {
	l := New(time.Hour, 0, map[string]time.Duration{"fast.com": time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx, "fast.com"); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("overridden domain took %v, override not applied", elapsed)
	}
}

func TestAcquire_ZeroIntervalDisablesLimiting(t *testing.T) {
	l := New(0, 0.5, nil)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := l.Acquire(ctx, "example.com"); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("unlimited domain took %v, want ~0", elapsed)
	}
}
