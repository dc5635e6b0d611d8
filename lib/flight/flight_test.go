package flight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoRunsProducerOnce(t *testing.T) {
	m := NewMap[string, int]()

	var executions atomic.Int64
	gate := make(chan struct{})

	const callers = 32
	var wg, entered sync.WaitGroup
	results := make([]int, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		entered.Add(1)
		go func(i int) {
			defer wg.Done()
			entered.Done()
			results[i], errs[i] = m.Do("server.example", func() (int, error) {
				executions.Add(1)
				<-gate
				return 42, nil
			})
		}(i)
	}

	// Let every caller reach Do before releasing the producer. The leader
	// holds the slot while blocked on the gate, so all others must join it.
	entered.Wait()
	time.Sleep(10 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := executions.Load(); got != 1 {
		t.Errorf("Expected producer to execute exactly once, got %d", got)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("Caller %d got unexpected error: %v", i, errs[i])
		}
		if results[i] != 42 {
			t.Errorf("Caller %d got result %d, expected shared result 42", i, results[i])
		}
	}
}

func TestDoSharesError(t *testing.T) {
	m := NewMap[string, string]()
	wantErr := errors.New("lookup failed")

	_, err := m.Do("bad.example", func() (string, error) {
		return "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected producer error to be returned, got %v", err)
	}

	// Slot must be free again: a second call runs a fresh producer
	v, err := m.Do("bad.example", func() (string, error) {
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Errorf("Expected slot to be released after error, got %q %v", v, err)
	}
}

func TestDoReleasesSlotOnPanic(t *testing.T) {
	m := NewMap[string, int]()

	func() {
		defer func() {
			if recover() == nil {
				t.Errorf("Expected panic to propagate to the leader")
			}
		}()
		m.Do("panic.example", func() (int, error) {
			panic("boom")
		})
	}()

	if m.InFlight("panic.example") {
		t.Fatalf("Expected slot to be released after producer panic")
	}

	v, err := m.Do("panic.example", func() (int, error) {
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Errorf("Expected fresh computation after panic, got %d %v", v, err)
	}
}

func TestDoDistinctKeysRunIndependently(t *testing.T) {
	m := NewMap[string, string]()

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			v, err := m.Do(key, func() (string, error) {
				return key + "-result", nil
			})
			if err != nil || v != key+"-result" {
				t.Errorf("Key %s got %q %v", key, v, err)
			}
		}(key)
	}
	wg.Wait()
}

func TestForget(t *testing.T) {
	m := NewMap[string, int]()

	gate := make(chan struct{})
	started := make(chan struct{})
	go func() {
		m.Do("stale", func() (int, error) {
			close(started)
			<-gate
			return 1, nil
		})
	}()
	<-started

	m.Forget("stale")

	// After Forget a new computation may start even while the old one runs
	done := make(chan int, 1)
	go func() {
		v, _ := m.Do("stale", func() (int, error) {
			return 2, nil
		})
		done <- v
	}()

	if v := <-done; v != 2 {
		t.Errorf("Expected fresh computation after Forget, got %d", v)
	}
	close(gate)
}
