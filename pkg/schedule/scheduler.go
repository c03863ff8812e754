// Package schedule implements the rate-limited task scheduler that drains the
// collection workload. It is a single-server FIFO queue with a minimum
// inter-admission gap: at most one task executes at any instant, and the start
// times of two consecutively admitted tasks are at least the configured
// interval apart. The queue and the last-admission clock are private to the
// scheduler; callers interact only through Submit and DrainAll.
package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for scheduler operations.
var (
	tasksAdmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_tasks_admitted_total",
		Help: "Total tasks admitted by the rate-limited scheduler",
	})

	admissionWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collector_admission_wait_seconds",
		Help:    "Time spent waiting for the inter-admission interval",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5},
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collector_queue_depth",
		Help: "Number of tasks currently waiting in the scheduler queue",
	})
)

// Task is a deferred unit of work admitted by the scheduler.
type Task[T any] func(ctx context.Context) (T, error)

// Scheduler admits tasks one at a time in submission order, enforcing a
// minimum wall-clock gap between successive admissions.
type Scheduler[T any] struct {
	interval time.Duration
	logger   zerolog.Logger

	mu            sync.Mutex
	queue         []*job[T]
	draining      bool
	lastAdmission time.Time
}

// job pairs a pending task with the future its outcome is delivered to.
type job[T any] struct {
	ctx    context.Context
	task   Task[T]
	future *Future[T]
}

// New creates a scheduler with the given minimum inter-admission interval.
// A non-positive interval disables spacing (tasks still run one at a time).
func New[T any](interval time.Duration, logger zerolog.Logger) *Scheduler[T] {
	return &Scheduler[T]{
		interval: interval,
		logger:   logger,
	}
}

// Submit appends the task to the queue and returns a future that resolves
// with the task's outcome. If no drain loop is active, one is started; an
// active loop picks the task up without spawning a second one, so tasks are
// never admitted concurrently.
func (s *Scheduler[T]) Submit(ctx context.Context, task Task[T]) *Future[T] {
	f := newFuture[T]()

	s.mu.Lock()
	s.queue = append(s.queue, &job[T]{ctx: ctx, task: task, future: f})
	queueDepth.Set(float64(len(s.queue)))
	start := !s.draining
	if start {
		s.draining = true
	}
	s.mu.Unlock()

	if start {
		go s.drain()
	}
	return f
}

// DrainAll submits every task in order and blocks until all have completed,
// returning their results in submission order. When onProgress is non-nil it
// is invoked after each completion with (completed, total). Individual task
// errors do not stop the queue; they are joined into the returned error while
// the results of the remaining tasks stay valid at their positions.
func (s *Scheduler[T]) DrainAll(ctx context.Context, tasks []Task[T], onProgress func(completed, total int)) ([]T, error) {
	futures := make([]*Future[T], len(tasks))
	for i, task := range tasks {
		futures[i] = s.Submit(ctx, task)
	}

	results := make([]T, len(tasks))
	var errs []error
	for i, f := range futures {
		value, err := f.Wait(ctx)
		if err != nil {
			errs = append(errs, err)
		} else {
			results[i] = value
		}
		if onProgress != nil {
			onProgress(i+1, len(tasks))
		}
	}
	return results, errors.Join(errs...)
}

// drain processes the queue until it is empty. Exactly one drain goroutine
// runs at a time; the draining flag guards against a second loop.
func (s *Scheduler[T]) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		j := s.queue[0]
		s.queue = s.queue[1:]
		queueDepth.Set(float64(len(s.queue)))
		last := s.lastAdmission
		s.mu.Unlock()

		if !s.wait(j, last) {
			continue
		}

		s.mu.Lock()
		s.lastAdmission = time.Now()
		s.mu.Unlock()

		tasksAdmittedTotal.Inc()
		s.logger.Debug().Msg("Task admitted")

		value, err := j.task(j.ctx)
		// A task error is delivered to that task's waiter only; the loop
		// proceeds to the next task.
		j.future.complete(value, err)
	}
}

// wait suspends until the inter-admission gap since last has elapsed.
// Returns false if the job's context was cancelled first, in which case the
// job's future has been failed and the job must not run.
func (s *Scheduler[T]) wait(j *job[T], last time.Time) bool {
	var delay time.Duration
	if !last.IsZero() && s.interval > 0 {
		delay = s.interval - time.Since(last)
	}
	if delay <= 0 {
		if err := j.ctx.Err(); err != nil {
			var zero T
			j.future.complete(zero, err)
			return false
		}
		return true
	}

	admissionWaitSeconds.Observe(delay.Seconds())
	s.logger.Debug().
		Dur("delay", delay).
		Msg("Waiting for admission interval")

	select {
	case <-j.ctx.Done():
		s.logger.Warn().
			Err(j.ctx.Err()).
			Msg("Context cancelled while waiting for admission")
		var zero T
		j.future.complete(zero, j.ctx.Err())
		return false
	case <-time.After(delay):
		return true
	}
}
