// Package scheduler is the monitor + scheduler: recurring
// cron-driven jobs, a retrying ad-hoc job queue, and the job bodies
// that advance pending transactions, expire stale ones, warm caches,
// and rotate wallet keys.
//
// File: internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/cedrosys/paymentcore/internal/observe"
	"github.com/cedrosys/paymentcore/internal/store"
)

// recurringSpec pairs a job name with its cron schedule and whether it
// must run single-leader across the deployment.
type recurringSpec struct {
	name     string
	schedule string
	leader   bool
	timeout  time.Duration
	run      func(ctx context.Context) error
}

// Scheduler drives Monitor's recurring jobs on cron.Cron at fixed
// cadences and exposes a Queue for retrying ad-hoc
// jobs. Single-leader recurring jobs are gated by store.Leader's
// Postgres advisory lock so only one instance across the deployment
// runs a given tick.
type Scheduler struct {
	cron     *cron.Cron
	monitor  *Monitor
	leader   store.Leader
	queue    *Queue
	registry *Registry

	logger  observe.Logger
	metrics observe.Metrics
}

// New wires a Scheduler around an already-constructed Monitor. The
// caller owns Monitor's collaborators (store, chain, cache, crypto);
// Scheduler only adds cadence and leader-election.
func New(monitor *Monitor, leader store.Leader, logger observe.Logger, metrics observe.Metrics) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		monitor:  monitor,
		leader:   leader,
		queue:    NewQueue(logger, metrics),
		registry: NewRegistry(),
		logger:   logger,
		metrics:  metrics,
	}
}

// Queue exposes the ad-hoc job queue the Enqueue* methods submit to.
func (s *Scheduler) Queue() *Queue { return s.queue }

// JobNames returns the names of every recurring job installed by
// RegisterRecurring, for admin tooling that lists what TriggerJob can run.
func (s *Scheduler) JobNames() []string { return s.registry.List() }

// TriggerJob runs a recurring job's body on demand by name, outside its
// cron cadence: the admin seam for an operator to force a run (e.g.
// "rotate keys now" or "drain pending immediately") without waiting for
// the next tick. It does not take the job's leader lock: an operator
// invoking it has already chosen to run it on this instance.
func (s *Scheduler) TriggerJob(ctx context.Context, name string) error {
	job, err := s.registry.Get(name)
	if err != nil {
		return err
	}
	return job(ctx)
}

// RegisterRecurring installs the recurring job table. Call before Start.
func (s *Scheduler) RegisterRecurring() error {
	specs := []recurringSpec{
		{name: "process_pending", schedule: "@every 30s", leader: true, run: s.monitor.ProcessPending},
		{name: "mark_stale", schedule: "@every 5m", leader: false, run: s.monitor.MarkStale},
		{name: "refresh_active_balances", schedule: "@every 5m", leader: false, run: s.monitor.RefreshActiveBalances},
		{name: "check_fee_sol", schedule: "@every 24h", leader: false, run: s.monitor.CheckFeeSOL},
		{name: "validate_encryptions", schedule: "@every 168h", leader: true, timeout: 2 * time.Hour, run: s.monitor.ValidateEncryptions},
		{name: "log_key_version_stats", schedule: "@every 24h", leader: false, run: s.monitor.LogKeyVersionStats},
	}

	for _, spec := range specs {
		spec := spec
		if err := s.registry.Register(spec.name, spec.run); err != nil {
			return err
		}
		if _, err := s.cron.AddFunc(spec.schedule, func() { s.runRecurring(spec) }); err != nil {
			return err
		}
	}
	return nil
}

// runRecurring drives spec on its cron tick, gating on leader election
// and routing the actual invocation through the Registry entry
// RegisterRecurring installed, so a cron tick and an operator's
// TriggerJob call run the exact same registered body.
func (s *Scheduler) runRecurring(spec recurringSpec) {
	ctx := context.Background()
	if spec.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.timeout)
		defer cancel()
	}

	if spec.leader {
		release, acquired, err := s.leader.TryAcquire(ctx, spec.name)
		if err != nil {
			s.logger.Warn("scheduler: leader election failed", map[string]interface{}{"job": spec.name, "error": err.Error()})
			return
		}
		if !acquired {
			s.logger.Debug("scheduler: leader lock held elsewhere, skipping", map[string]interface{}{"job": spec.name})
			return
		}
		defer release()
	}

	job, err := s.registry.Get(spec.name)
	if err != nil {
		s.logger.Error("scheduler: job not registered", map[string]interface{}{"job": spec.name, "error": err.Error()})
		return
	}

	start := time.Now()
	if err := job(ctx); err != nil {
		s.logger.Error("scheduler: recurring job failed", map[string]interface{}{"job": spec.name, "error": err.Error()})
		s.metrics.Counter("recurring_job_failures_total", 1, map[string]string{"job": spec.name})
		return
	}
	s.metrics.Histogram("recurring_job_duration_ms", float64(time.Since(start).Milliseconds()), map[string]string{"job": spec.name})
}

// Start begins running registered recurring jobs on their cadence.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels the cron scheduler, waiting for any in-flight recurring
// job invocation to return.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }

// EnqueueWaitConfirmation enqueues the wait_confirmation ad-hoc job
// with up to 5 retries at [10s,30s,60s,120s,300s], each individual
// poll bounded by a 2m deadline.
func (s *Scheduler) EnqueueWaitConfirmation(ctx context.Context, txID uuid.UUID) {
	s.queue.Enqueue(ctx, AdHocJob{
		Name:           "wait_confirmation",
		AttemptTimeout: 2 * time.Minute,
		Delays: []time.Duration{
			10 * time.Second, 30 * time.Second, 60 * time.Second, 120 * time.Second, 300 * time.Second,
		},
		Run: func(ctx context.Context) error {
			return s.monitor.ConfirmOne(ctx, txID)
		},
	})
}

// EnqueueRefreshWalletBalance enqueues refresh_wallet_balance: up
// to 3 retries at [1s,2s,4s].
func (s *Scheduler) EnqueueRefreshWalletBalance(ctx context.Context, publicKey string) {
	s.queue.Enqueue(ctx, AdHocJob{
		Name:   "refresh_wallet_balance",
		Delays: []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
		Run: func(ctx context.Context) error {
			_, err := s.monitor.Cache.GetAllBalances(ctx, publicKey, true)
			return err
		},
	})
}

// EnqueueRotateKeys enqueues rotate_keys: up to 3 retries at
// [60s,300s,900s], single instance at a time, 1h timeout.
func (s *Scheduler) EnqueueRotateKeys(ctx context.Context, oldVersion string) {
	s.queue.Enqueue(ctx, AdHocJob{
		Name:            "rotate_keys",
		Timeout:         1 * time.Hour,
		SingleFlightKey: "rotate_keys:" + oldVersion,
		Delays:          []time.Duration{60 * time.Second, 300 * time.Second, 900 * time.Second},
		Run: func(ctx context.Context) error {
			return s.monitor.RotateKeys(ctx, oldVersion)
		},
	})
}

// EOF: internal/scheduler/scheduler.go
