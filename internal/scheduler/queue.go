// File: internal/scheduler/queue.go
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/cedrosys/paymentcore/internal/observe"
)

// AdHocJob is a one-shot, retrying unit of work enqueued by the payment
// engine or an operator.
type AdHocJob struct {
	// Name identifies the job for logging/metrics, e.g.
	// "wait_confirmation" or "rotate_keys".
	Name string

	// Timeout bounds the whole retry sequence. Zero means no timeout.
	// rotate_keys uses this for its "1h" overall budget.
	Timeout time.Duration

	// AttemptTimeout, if set, bounds each individual call to Run rather
	// than the sequence as a whole. wait_confirmation's 2m timeout is a
	// per-poll deadline, not a budget for all five retries, which
	// together can span up to 520s.
	AttemptTimeout time.Duration

	// Delays are the fixed backoff delays between attempts; len(Delays)
	// is the retry budget (one initial attempt plus len(Delays) retries).
	Delays []time.Duration

	// SingleFlightKey, if non-empty, makes Enqueue a no-op (logged, not
	// queued) while another job sharing the same key is still running.
	// rotate_keys uses this for its "single instance at a time" rule.
	SingleFlightKey string

	// Run is the job body. Returning an error triggers a retry per
	// Delays until the budget is exhausted.
	Run func(ctx context.Context) error
}

// Queue runs AdHocJobs asynchronously with the retry policy each job
// carries. It holds no state about the recurring cron schedule; that
// is Scheduler's concern.
type Queue struct {
	logger  observe.Logger
	metrics observe.Metrics

	mu      sync.Mutex
	running map[string]struct{}
}

// NewQueue constructs an ad-hoc job queue.
func NewQueue(logger observe.Logger, metrics observe.Metrics) *Queue {
	return &Queue{logger: logger, metrics: metrics, running: make(map[string]struct{})}
}

// Enqueue runs job on its own goroutine. It returns immediately; job
// completion is only observable through logs/metrics, matching the
// ad-hoc jobs' fire-and-forget nature.
func (q *Queue) Enqueue(ctx context.Context, job AdHocJob) {
	if job.SingleFlightKey != "" {
		q.mu.Lock()
		if _, inFlight := q.running[job.SingleFlightKey]; inFlight {
			q.mu.Unlock()
			q.logger.Info("scheduler: ad-hoc job already running, skipping", map[string]interface{}{"job": job.Name, "key": job.SingleFlightKey})
			return
		}
		q.running[job.SingleFlightKey] = struct{}{}
		q.mu.Unlock()
	}

	go q.run(ctx, job)
}

func (q *Queue) run(ctx context.Context, job AdHocJob) {
	if job.SingleFlightKey != "" {
		defer func() {
			q.mu.Lock()
			delete(q.running, job.SingleFlightKey)
			q.mu.Unlock()
		}()
	}

	runCtx := ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	_, err := backoff.Retry(runCtx, func() (struct{}, error) {
		attemptCtx := runCtx
		if job.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(runCtx, job.AttemptTimeout)
			defer cancel()
		}
		return struct{}{}, job.Run(attemptCtx)
	},
		backoff.WithBackOff(newStepBackOff(job.Delays)),
		backoff.WithMaxTries(uint(len(job.Delays)+1)),
	)

	if err != nil {
		q.logger.Error("scheduler: ad-hoc job failed", map[string]interface{}{"job": job.Name, "error": err.Error(), "elapsed_ms": time.Since(start).Milliseconds()})
		q.metrics.Counter("adhoc_job_failures_total", 1, map[string]string{"job": job.Name})
		return
	}
	q.metrics.Counter("adhoc_job_success_total", 1, map[string]string{"job": job.Name})
}

// stepBackOff replays a fixed sequence of delays, then stops: the
// shape the ad-hoc jobs' fixed retry tables need (e.g. [10s, 30s, 60s, 120s,
// 300s]) rather than cenkalti/backoff's default exponential curve.
type stepBackOff struct {
	delays []time.Duration
	next   int
}

func newStepBackOff(delays []time.Duration) *stepBackOff {
	return &stepBackOff{delays: delays}
}

func (s *stepBackOff) NextBackOff() time.Duration {
	if s.next >= len(s.delays) {
		return backoff.Stop
	}
	d := s.delays[s.next]
	s.next++
	return d
}

// ErrStillPending is returned by a job body to request another retry
// without being treated as a terminal failure in logs. It composes with
// backoff.Retry the same way any other error does; it exists only to
// give callers a recognizable sentinel.
var ErrStillPending = errors.New("scheduler: still pending")

// EOF: internal/scheduler/queue.go
