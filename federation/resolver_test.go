package federation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestResolveCachesResult(t *testing.T) {
	var calls atomic.Int64
	r := NewResolver(func(_ context.Context, name string) (Destination, error) {
		calls.Add(1)
		return Destination{Host: name + ".resolved", Port: 8448}, nil
	}, time.Minute)

	for i := 0; i < 3; i++ {
		dest, err := r.Resolve(context.Background(), "remote.example")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if dest.Host != "remote.example.resolved" || dest.Port != 8448 {
			t.Errorf("Unexpected destination %+v", dest)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("Expected exactly 1 lookup, got %d", got)
	}
}

func TestResolveCollapsesConcurrentMisses(t *testing.T) {
	var calls atomic.Int64
	gate := make(chan struct{})
	r := NewResolver(func(_ context.Context, name string) (Destination, error) {
		calls.Add(1)
		<-gate
		return Destination{Host: name, Port: 1}, nil
	}, time.Minute)

	const workers = 16
	var entered, wg sync.WaitGroup
	entered.Add(workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			entered.Done()
			if _, err := r.Resolve(context.Background(), "remote.example"); err != nil {
				t.Errorf("Resolve failed: %v", err)
			}
		}()
	}

	entered.Wait()
	time.Sleep(10 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("Expected concurrent misses to collapse to 1 lookup, got %d", got)
	}
}

func TestResolveFailuresNotCached(t *testing.T) {
	var calls atomic.Int64
	r := NewResolver(func(_ context.Context, _ string) (Destination, error) {
		if calls.Add(1) == 1 {
			return Destination{}, errors.New("dns timeout")
		}
		return Destination{Host: "ok", Port: 2}, nil
	}, time.Minute)

	if _, err := r.Resolve(context.Background(), "flaky.example"); err == nil {
		t.Fatalf("Expected first lookup to fail")
	}
	dest, err := r.Resolve(context.Background(), "flaky.example")
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if dest.Host != "ok" {
		t.Errorf("Unexpected destination %+v", dest)
	}
}

func TestEvictForcesLookup(t *testing.T) {
	var calls atomic.Int64
	r := NewResolver(func(_ context.Context, name string) (Destination, error) {
		calls.Add(1)
		return Destination{Host: name, Port: uint16(calls.Load())}, nil
	}, time.Minute)

	first, _ := r.Resolve(context.Background(), "remote.example")
	r.Evict("remote.example")
	second, _ := r.Resolve(context.Background(), "remote.example")

	if first.Port == second.Port {
		t.Errorf("Expected eviction to force a fresh lookup, got %+v twice", first)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("Expected 2 lookups, got %d", got)
	}
}

func TestExpiredEntryRefreshes(t *testing.T) {
	var calls atomic.Int64
	r := NewResolver(func(_ context.Context, name string) (Destination, error) {
		calls.Add(1)
		return Destination{Host: name, Port: 1}, nil
	}, time.Millisecond)

	r.Resolve(context.Background(), "remote.example")
	time.Sleep(5 * time.Millisecond)
	r.Resolve(context.Background(), "remote.example")

	if got := calls.Load(); got != 2 {
		t.Errorf("Expected expired entry to refresh, got %d lookups", got)
	}
}
