package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestSubmit_SingleTask(t *testing.T) {
	s := New[int](10*time.Millisecond, testLogger())

	f := s.Submit(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})

	value, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if value != 42 {
		t.Errorf("value = %d, want 42", value)
	}
}

func TestDrainAll_FIFOOrder(t *testing.T) {
	s := New[int](5*time.Millisecond, testLogger())

	// Task durations are deliberately uneven: a slow early task must not let
	// later tasks overtake it.
	durations := []time.Duration{30 * time.Millisecond, 0, 10 * time.Millisecond, 0}

	var mu sync.Mutex
	var started []int

	tasks := make([]Task[int], len(durations))
	for i := range durations {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) {
			mu.Lock()
			started = append(started, i)
			mu.Unlock()
			time.Sleep(durations[i])
			return i, nil
		}
	}

	results, err := s.DrainAll(context.Background(), tasks, nil)
	if err != nil {
		t.Fatalf("DrainAll returned error: %v", err)
	}

	for i, v := range results {
		if v != i {
			t.Errorf("results[%d] = %d, want %d", i, v, i)
		}
	}
	for i, v := range started {
		if v != i {
			t.Fatalf("execution order %v, want ascending", started)
		}
	}
}

func TestDrainAll_MinimumSpan(t *testing.T) {
	const (
		n        = 4
		interval = 40 * time.Millisecond
	)
	s := New[time.Time](interval, testLogger())

	tasks := make([]Task[time.Time], n)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (time.Time, error) {
			return time.Now(), nil
		}
	}

	admissions, err := s.DrainAll(context.Background(), tasks, nil)
	if err != nil {
		t.Fatalf("DrainAll returned error: %v", err)
	}

	span := admissions[n-1].Sub(admissions[0])
	if want := time.Duration(n-1) * interval; span < want {
		t.Errorf("admission span = %v, want >= %v", span, want)
	}

	// Every consecutive pair must honor the gap (small scheduling tolerance).
	for i := 1; i < n; i++ {
		gap := admissions[i].Sub(admissions[i-1])
		if gap < interval-5*time.Millisecond {
			t.Errorf("gap between admission %d and %d = %v, want >= %v", i-1, i, gap, interval)
		}
	}
}

func TestDrainAll_NoConcurrentExecution(t *testing.T) {
	s := New[int](time.Millisecond, testLogger())

	var inFlight, maxInFlight int32
	tasks := make([]Task[int], 5)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (int, error) {
			n := atomic.AddInt32(&inFlight, 1)
			if n > atomic.LoadInt32(&maxInFlight) {
				atomic.StoreInt32(&maxInFlight, n)
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return 0, nil
		}
	}

	if _, err := s.DrainAll(context.Background(), tasks, nil); err != nil {
		t.Fatalf("DrainAll returned error: %v", err)
	}
	if max := atomic.LoadInt32(&maxInFlight); max != 1 {
		t.Errorf("max in-flight tasks = %d, want 1", max)
	}
}

func TestDrainAll_TaskErrorsIsolated(t *testing.T) {
	s := New[int](time.Millisecond, testLogger())

	boom := errors.New("task exploded")
	tasks := []Task[int]{
		func(ctx context.Context) (int, error) { return 1, nil },
		func(ctx context.Context) (int, error) { return 0, boom },
		func(ctx context.Context) (int, error) { return 3, nil },
	}

	results, err := s.DrainAll(context.Background(), tasks, nil)

	// The failing task's error is reported, but the queue kept draining.
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
	if results[0] != 1 || results[2] != 3 {
		t.Errorf("surviving results = %v, want positions 0 and 2 intact", results)
	}
}

func TestDrainAll_ProgressCallback(t *testing.T) {
	s := New[int](time.Millisecond, testLogger())

	tasks := make([]Task[int], 3)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (int, error) { return 0, nil }
	}

	var calls [][2]int
	_, err := s.DrainAll(context.Background(), tasks, func(completed, total int) {
		calls = append(calls, [2]int{completed, total})
	})
	if err != nil {
		t.Fatalf("DrainAll returned error: %v", err)
	}

	want := [][2]int{{1, 3}, {2, 3}, {3, 3}}
	if len(calls) != len(want) {
		t.Fatalf("progress called %d times, want %d", len(calls), len(want))
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("progress call %d = %v, want %v", i, calls[i], want[i])
		}
	}
}

func TestSubmit_LateSubmissionJoinsActiveDrain(t *testing.T) {
	s := New[int](10*time.Millisecond, testLogger())
	ctx := context.Background()

	release := make(chan struct{})
	first := s.Submit(ctx, func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	// Submitted while the first task occupies the drain loop.
	second := s.Submit(ctx, func(ctx context.Context) (int, error) {
		return 2, nil
	})
	close(release)

	v1, err := first.Wait(ctx)
	if err != nil || v1 != 1 {
		t.Fatalf("first = (%d, %v), want (1, nil)", v1, err)
	}
	v2, err := second.Wait(ctx)
	if err != nil || v2 != 2 {
		t.Fatalf("second = (%d, %v), want (2, nil)", v2, err)
	}

	// The drain loop clears its flag just after resolving the last future.
	time.Sleep(20 * time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		t.Error("drain loop still marked active after queue emptied")
	}
	if len(s.queue) != 0 {
		t.Errorf("queue length = %d, want 0", len(s.queue))
	}
}

func TestSubmit_ContextCancelledWhileQueued(t *testing.T) {
	s := New[int](50*time.Millisecond, testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	executed := int32(0)
	first := s.Submit(ctx, func(ctx context.Context) (int, error) {
		atomic.AddInt32(&executed, 1)
		return 1, nil
	})
	second := s.Submit(ctx, func(ctx context.Context) (int, error) {
		atomic.AddInt32(&executed, 1)
		return 2, nil
	})

	if _, err := first.Wait(context.Background()); err != nil {
		t.Fatalf("first task failed: %v", err)
	}

	// Cancel while the second task is still waiting out the interval.
	cancel()

	_, err := second.Wait(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("second task err = %v, want context.Canceled", err)
	}
	if n := atomic.LoadInt32(&executed); n != 1 {
		t.Errorf("executed = %d tasks, want 1 (cancelled task must not run)", n)
	}
}
