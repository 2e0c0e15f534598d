package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pricegrid/pricegrid/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*ResultCache, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(ttl, 0)
	t.Cleanup(store.Close)
	return NewResultCache(store), store
}

func TestGetOrCompute_HitAndMiss(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	var calls atomic.Int32

	compute := func(context.Context) (*models.SearchResponse, bool, error) {
		calls.Add(1)
		return &models.SearchResponse{TotalResults: 3}, true, nil
	}

	first, err := c.GetOrCompute(context.Background(), "k", compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Cached {
		t.Error("fresh computation marked as cached")
	}

	second, err := c.GetOrCompute(context.Background(), "k", compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Cached {
		t.Error("repeat request not marked as cached")
	}
	if second.TotalResults != 3 {
		t.Errorf("TotalResults = %d, want 3", second.TotalResults)
	}
	if calls.Load() != 1 {
		t.Errorf("compute ran %d times, want 1", calls.Load())
	}
}

func TestGetOrCompute_CollapsesConcurrentCallers(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	var calls atomic.Int32
	gate := make(chan struct{})

	compute := func(context.Context) (*models.SearchResponse, bool, error) {
		calls.Add(1)
		<-gate
		return &models.SearchResponse{TotalResults: 1}, true, nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]*models.SearchResponse, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := c.GetOrCompute(context.Background(), "same-key", compute)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			results[i] = resp
		}(i)
	}

	// Give the callers time to pile onto the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("compute ran %d times, want 1", calls.Load())
	}
	for i, r := range results {
		if r == nil || r.TotalResults != 1 {
			t.Errorf("caller %d got %+v", i, r)
		}
	}
}

func TestGetOrCompute_WinnerCancelDoesNotFailFollowers(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	started := make(chan struct{})
	gate := make(chan struct{})

	compute := func(ctx context.Context) (*models.SearchResponse, bool, error) {
		close(started)
		<-gate
		if ctx.Err() != nil {
			t.Errorf("compute saw the winner's cancellation: %v", ctx.Err())
		}
		return &models.SearchResponse{TotalResults: 2}, true, nil
	}

	winnerCtx, cancel := context.WithCancel(context.Background())
	winnerErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrCompute(winnerCtx, "k", compute)
		winnerErr <- err
	}()
	<-started

	followerResp := make(chan *models.SearchResponse, 1)
	go func() {
		resp, err := c.GetOrCompute(context.Background(), "k", compute)
		if err != nil {
			t.Errorf("follower: %v", err)
		}
		followerResp <- resp
	}()

	// Let the follower pile onto the flight, then drop the winner.
	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := <-winnerErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("winner err = %v, want context.Canceled", err)
	}

	close(gate)
	resp := <-followerResp
	if resp == nil || resp.TotalResults != 2 {
		t.Fatalf("follower got %+v, want the in-flight result", resp)
	}
	if !resp.Cached {
		t.Error("collapsed follower not marked cached")
	}
}

func TestGetOrCompute_UncacheableNotStored(t *testing.T) {
	c, store := newTestCache(t, time.Minute)
	var calls atomic.Int32

	compute := func(context.Context) (*models.SearchResponse, bool, error) {
		calls.Add(1)
		return &models.SearchResponse{}, false, nil
	}

	for i := 0; i < 2; i++ {
		if _, err := c.GetOrCompute(context.Background(), "k", compute); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("compute ran %d times, want 2 (uncacheable)", calls.Load())
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d entries, want 0", store.Len())
	}
}

func TestGetOrCompute_ErrorNotStored(t *testing.T) {
	c, store := newTestCache(t, time.Minute)

	_, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (*models.SearchResponse, bool, error) {
		return nil, false, errors.New("all merchants failed")
	})
	if err == nil {
		t.Fatal("want error")
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d entries after failed compute", store.Len())
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := NewMemoryStore(30*time.Millisecond, 0)
	defer store.Close()

	store.Set("k", &models.SearchResponse{})
	if _, ok := store.Get("k"); !ok {
		t.Fatal("fresh entry missing")
	}
	time.Sleep(60 * time.Millisecond)
	if _, ok := store.Get("k"); ok {
		t.Error("expired entry still served")
	}
}

func TestMemoryStore_FullDropsWriteNotFreshEntries(t *testing.T) {
	store := NewMemoryStore(time.Minute, 1)
	defer store.Close()

	store.Set("a", &models.SearchResponse{TotalResults: 1})
	store.Set("b", &models.SearchResponse{TotalResults: 2})

	if _, ok := store.Get("a"); !ok {
		t.Error("fresh entry evicted by overflow write")
	}
	if _, ok := store.Get("b"); ok {
		t.Error("overflow write stored past capacity")
	}
}

func TestFingerprint(t *testing.T) {
	base := func() *models.SearchRequest {
		return &models.SearchRequest{Query: "usb-c cable", Merchants: []string{"amazon", "ebay"}, MaxResults: 20}
	}

	t.Run("stable across whitespace case and merchant order", func(t *testing.T) {
		a := base()
		b := &models.SearchRequest{Query: "  USB-C Cable ", Merchants: []string{"ebay", "Amazon"}, MaxResults: 20}
		if Fingerprint(a) != Fingerprint(b) {
			t.Error("equivalent requests produced different keys")
		}
	})

	t.Run("differs on query", func(t *testing.T) {
		b := base()
		b.Query = "hdmi cable"
		if Fingerprint(base()) == Fingerprint(b) {
			t.Error("different queries share a key")
		}
	})

	t.Run("differs on filters", func(t *testing.T) {
		min := 5.0
		b := base()
		b.MinPrice = &min
		if Fingerprint(base()) == Fingerprint(b) {
			t.Error("filtered request shares key with unfiltered")
		}
	})

	t.Run("differs on merchant set", func(t *testing.T) {
		b := base()
		b.Merchants = []string{"amazon"}
		if Fingerprint(base()) == Fingerprint(b) {
			t.Error("different merchant sets share a key")
		}
	})
}
