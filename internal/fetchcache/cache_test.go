package fetchcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"talentscout-engine/internal/domain"
)

func TestGetOrFetchCollapsesConcurrentCalls(t *testing.T) {
	c := New(time.Minute, 100)
	key := Key{Source: domain.SourceLinkedIn, Fingerprint: Fingerprint("golang engineer", "remote")}

	var calls atomic.Int64
	release := make(chan struct{})
	fetch := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("payload"), nil
	}

	const n = 32
	var wg sync.WaitGroup
	results := make([][]byte, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrFetch(context.Background(), key, fetch)
		}(i)
	}

	// Let every goroutine reach the cache before the fetch returns.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 underlying fetch, got %d", got)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: unexpected error: %v", i, errs[i])
		}
		if string(results[i]) != "payload" {
			t.Fatalf("caller %d: unexpected payload %q", i, results[i])
		}
	}
}

func TestGetOrFetchServesLiveEntryWithoutFetching(t *testing.T) {
	c := New(time.Minute, 100)
	key := Key{Source: domain.SourceGitHub, Fingerprint: "abc"}

	var calls int
	fetch := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte("v1"), nil
	}

	for i := 0; i < 3; i++ {
		b, err := c.GetOrFetch(context.Background(), key, fetch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != "v1" {
			t.Fatalf("unexpected payload %q", b)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", calls)
	}
}

func TestGetOrFetchRefetchesAfterExpiry(t *testing.T) {
	c := New(time.Hour, 100)
	clock := time.Now()
	c.now = func() time.Time { return clock }

	key := Key{Source: domain.SourceTwitter, Fingerprint: "xyz"}
	var calls int
	fetch := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte(fmt.Sprintf("v%d", calls)), nil
	}

	b, err := c.GetOrFetch(context.Background(), key, fetch)
	if err != nil || string(b) != "v1" {
		t.Fatalf("first fetch: %q, %v", b, err)
	}

	clock = clock.Add(2 * time.Hour)

	b, err = c.GetOrFetch(context.Background(), key, fetch)
	if err != nil || string(b) != "v2" {
		t.Fatalf("post-expiry fetch: %q, %v", b, err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 fetches, got %d", calls)
	}
}

func TestGetOrFetchDoesNotCacheErrors(t *testing.T) {
	c := New(time.Minute, 100)
	key := Key{Source: domain.SourceLinkedIn, Fingerprint: "err"}

	boom := errors.New("boom")
	var calls int
	fetch := func(ctx context.Context) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return []byte("ok"), nil
	}

	if _, err := c.GetOrFetch(context.Background(), key, fetch); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	b, err := c.GetOrFetch(context.Background(), key, fetch)
	if err != nil || string(b) != "ok" {
		t.Fatalf("retry after error: %q, %v", b, err)
	}
}

func TestCancelledCallerStillPopulatesCache(t *testing.T) {
	c := New(time.Minute, 100)
	key := Key{Source: domain.SourcePersonalSite, Fingerprint: "slow"}

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) ([]byte, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []byte("late"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(ctx, key, fetch)
		done <- err
	}()

	<-started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The detached fetch finishes and its result is not wasted.
	close(release)
	deadline := time.After(2 * time.Second)
	for c.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("fetch result never populated the cache")
		case <-time.After(10 * time.Millisecond):
		}
	}

	var calls int
	b, err := c.GetOrFetch(context.Background(), key, func(ctx context.Context) ([]byte, error) {
		calls++
		return nil, errors.New("should not be called")
	})
	if err != nil || string(b) != "late" {
		t.Fatalf("expected cached %q, got %q, %v", "late", b, err)
	}
	if calls != 0 {
		t.Fatal("cached entry should have been served without fetching")
	}
}

func TestLRUEvictionBoundsEntries(t *testing.T) {
	c := New(time.Minute, 3)

	fetchFor := func(v string) Fetch {
		return func(ctx context.Context) ([]byte, error) { return []byte(v), nil }
	}

	for i := 0; i < 5; i++ {
		key := Key{Source: domain.SourceGitHub, Fingerprint: fmt.Sprintf("k%d", i)}
		if _, err := c.GetOrFetch(context.Background(), key, fetchFor(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatalf("fetch k%d: %v", i, err)
		}
	}

	if got := c.Len(); got != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", got)
	}

	// Oldest keys were evicted; refetching them calls fetch again.
	var calls int
	key0 := Key{Source: domain.SourceGitHub, Fingerprint: "k0"}
	if _, err := c.GetOrFetch(context.Background(), key0, func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte("again"), nil
	}); err != nil {
		t.Fatalf("refetch k0: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected evicted key to refetch, calls=%d", calls)
	}
}

func TestFingerprintIsStable(t *testing.T) {
	a := Fingerprint("backend engineer", "san francisco")
	b := Fingerprint("backend engineer", "san francisco")
	if a != b {
		t.Fatalf("fingerprint not deterministic: %s vs %s", a, b)
	}
	if a == Fingerprint("backend engineer", "new york") {
		t.Fatal("different queries must not share a fingerprint")
	}
}
