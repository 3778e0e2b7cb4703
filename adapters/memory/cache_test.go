package memory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spindleworks/spindle/adapters/clock"
	"github.com/spindleworks/spindle/adapters/memory"
	"github.com/spindleworks/spindle/domain/manifest"
)

func testManifest(title string) *manifest.Manifest {
	return &manifest.Manifest{Metadata: manifest.Metadata{Title: title}}
}

func TestCache_PutGet(t *testing.T) {
	fake := clock.NewFake(time.Unix(1000, 0))
	c := memory.NewManifestCache(time.Minute, fake)

	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache returned a value")
	}

	c.Put("a", testManifest("A"))
	m, ok := c.Get("a")
	if !ok || m.Metadata.Title != "A" {
		t.Fatalf("got %v, %v", m, ok)
	}
}

func TestCache_LazyExpiry(t *testing.T) {
	fake := clock.NewFake(time.Unix(1000, 0))
	c := memory.NewManifestCache(time.Minute, fake)

	c.Put("a", testManifest("A"))

	fake.Advance(59 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired early")
	}

	fake.Advance(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("stale entry served")
	}
}

func TestCache_ZeroMaxAgeNeverExpires(t *testing.T) {
	fake := clock.NewFake(time.Unix(1000, 0))
	c := memory.NewManifestCache(0, fake)

	c.Put("a", testManifest("A"))
	fake.Advance(1000 * time.Hour)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired with zero max age")
	}
}

func TestCache_Clear(t *testing.T) {
	fake := clock.NewFake(time.Unix(1000, 0))
	c := memory.NewManifestCache(time.Minute, fake)

	c.Put("a", testManifest("A"))
	c.Put("b", testManifest("B"))
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("len = %d after clear", c.Len())
	}
}

func TestCache_Do_SingleFlight(t *testing.T) {
	fake := clock.NewFake(time.Unix(1000, 0))
	c := memory.NewManifestCache(time.Minute, fake)

	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	fn := func(ctx context.Context) (*manifest.Manifest, error) {
		calls.Add(1)
		close(started)
		<-release
		return testManifest("shared"), nil
	}

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]*manifest.Manifest, waiters)
	errs := make([]error, waiters)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = c.Do(context.Background(), "hot", fn)
	}()
	<-started

	for i := 1; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Do(context.Background(), "hot", fn)
		}(i)
	}
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("resolution ran %d times, want 1", got)
	}
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("waiter %d: %v", i, errs[i])
		}
		if results[i].Metadata.Title != "shared" {
			t.Errorf("waiter %d got %+v", i, results[i])
		}
	}
}

func TestCache_Do_DifferentKeysParallel(t *testing.T) {
	fake := clock.NewFake(time.Unix(1000, 0))
	c := memory.NewManifestCache(time.Minute, fake)

	var calls atomic.Int64
	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, err := c.Do(context.Background(), key, func(ctx context.Context) (*manifest.Manifest, error) {
				calls.Add(1)
				return testManifest(key), nil
			})
			if err != nil {
				t.Errorf("key %s: %v", key, err)
			}
		}(key)
	}
	wg.Wait()

	if got := calls.Load(); got != 3 {
		t.Errorf("resolutions = %d, want 3", got)
	}
}

func TestCache_Do_ErrorNotCached(t *testing.T) {
	fake := clock.NewFake(time.Unix(1000, 0))
	c := memory.NewManifestCache(time.Minute, fake)

	boom := errors.New("load failed")
	var calls int
	fn := func(ctx context.Context) (*manifest.Manifest, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return testManifest("recovered"), nil
	}

	if _, err := c.Do(context.Background(), "k", fn); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("error result was cached")
	}

	m, err := c.Do(context.Background(), "k", fn)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if m.Metadata.Title != "recovered" {
		t.Errorf("retry got %+v", m)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestCache_Do_ServesFreshEntryWithoutResolving(t *testing.T) {
	fake := clock.NewFake(time.Unix(1000, 0))
	c := memory.NewManifestCache(time.Minute, fake)

	c.Put("k", testManifest("cached"))

	m, err := c.Do(context.Background(), "k", func(ctx context.Context) (*manifest.Manifest, error) {
		t.Fatal("resolution ran despite fresh entry")
		return nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Metadata.Title != "cached" {
		t.Errorf("got %+v", m)
	}
}

func TestCache_Do_StaleEntryTriggersResolution(t *testing.T) {
	fake := clock.NewFake(time.Unix(1000, 0))
	c := memory.NewManifestCache(time.Minute, fake)

	c.Put("k", testManifest("old"))
	fake.Advance(2 * time.Minute)

	m, err := c.Do(context.Background(), "k", func(ctx context.Context) (*manifest.Manifest, error) {
		return testManifest("new"), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Metadata.Title != "new" {
		t.Errorf("got %+v", m)
	}
}

func TestCache_Do_AbandonedWaiterDoesNotStopFlight(t *testing.T) {
	fake := clock.NewFake(time.Unix(1000, 0))
	c := memory.NewManifestCache(time.Minute, fake)

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = c.Do(context.Background(), "k", func(ctx context.Context) (*manifest.Manifest, error) {
			close(started)
			<-release
			return testManifest("done"), nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Do(ctx, "k", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	close(release)
	// The abandoned flight still completes and caches its result.
	deadline := time.After(time.Second)
	for {
		if _, ok := c.Get("k"); ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("flight result never cached")
		case <-time.After(time.Millisecond):
		}
	}
}
