package tlfu

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetWithInitConcurrentSingleFlight(t *testing.T) {
	c, err := NewBuilder[string, string](100).disableHousekeeper().Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var calls atomic.Int32
	init := func() (string, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return "v", nil
	}

	const n = 4
	results := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := c.GetWithInit("k", init)
			if err != nil {
				t.Errorf("GetWithInit: %v", err)
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("init called %d times, want exactly 1", got)
	}
	for i, v := range results {
		if v != "v" {
			t.Errorf("results[%d] = %q, want %q", i, v, "v")
		}
	}
}

// TestGetWithInitPanicThenFollowerRetry exercises the path where init panics
// on its first call and succeeds on a later one: a goroutine racing the
// panicking leader must not propagate that panic, and must eventually see
// the value from a later, successful attempt.
func TestGetWithInitPanicThenFollowerRetry(t *testing.T) {
	c, err := NewBuilder[string, string](100).disableHousekeeper().Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var attempt atomic.Int32
	leaderClaimed := make(chan struct{})
	var signalOnce sync.Once
	init := func() (string, error) {
		n := attempt.Add(1)
		if n == 1 {
			signalOnce.Do(func() { close(leaderClaimed) })
			panic("boom")
		}
		return "v", nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() { recover() }()
		c.GetWithInit("k", init)
	}()

	<-leaderClaimed

	var followerResult string
	var followerErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		followerResult, followerErr = c.GetWithInit("k", init)
	}()
	wg.Wait()

	if followerErr != nil {
		t.Fatalf("GetWithInit error: %v", followerErr)
	}
	if followerResult != "v" {
		t.Fatalf("GetWithInit = %q, want v", followerResult)
	}
	if got := attempt.Load(); got < 2 {
		t.Fatalf("init called %d times, want at least 2 (one panicking, one successful)", got)
	}
}

func TestGetWithInitInfallible(t *testing.T) {
	c, err := New[int, int](16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	v := c.GetWithInitInfallible(5, func() int { return 25 })
	if v != 25 {
		t.Errorf("GetWithInitInfallible = %d, want 25", v)
	}
}

func TestGetWithInitOptional(t *testing.T) {
	c, err := New[int, string](16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if v, ok := c.GetWithInitOptional(1, func() (string, bool) { return "", false }); ok || v != "" {
		t.Errorf("GetWithInitOptional(declined) = %q, %v; want \"\", false", v, ok)
	}

	v, ok := c.GetWithInitOptional(2, func() (string, bool) { return "two", true })
	if !ok || v != "two" {
		t.Errorf("GetWithInitOptional(accepted) = %q, %v; want two, true", v, ok)
	}
}

func TestGetWithInitPropagatesError(t *testing.T) {
	c, err := New[string, int](16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	wantErr := fmt.Errorf("load failed")
	_, gotErr := c.GetWithInit("k", func() (int, error) { return 0, wantErr })
	if gotErr != wantErr {
		t.Errorf("GetWithInit error = %v, want %v", gotErr, wantErr)
	}
	if _, ok := c.Get("k"); ok {
		t.Errorf("Get(k) after failed init: want miss, value was not cached")
	}
}
