// Package jobs runs feed synchronizations and match sweeps off the request path.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
	"github.com/lcalzada-xor/vmscout/internal/telemetry"
)

const (
	DefaultQueueSize = 16
	DefaultHistory   = 100
)

// Config tunes the runner.
type Config struct {
	QueueSize int
	History   int
	Logger    *slog.Logger
}

type entry struct {
	id string
	fn ports.JobFunc
}

// Runner executes submitted jobs one at a time on a single worker goroutine.
type Runner struct {
	queue     chan entry
	history   int
	logger    *slog.Logger
	now       func() time.Time
	mu        sync.RWMutex
	jobs      map[string]*domain.Job
	order     []string
	observers []ports.JobObserver
	stopped   chan struct{}
}

var _ ports.JobRunner = (*Runner)(nil)

// NewRunner creates a runner. Call Start to begin processing.
func NewRunner(cfg Config) *Runner {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.History < 1 {
		cfg.History = DefaultHistory
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		queue:   make(chan entry, cfg.QueueSize),
		history: cfg.History,
		logger:  cfg.Logger.With("component", "jobs"),
		now:     time.Now,
		jobs:    make(map[string]*domain.Job),
		stopped: make(chan struct{}),
	}
}

// Subscribe registers an observer for job transitions.
func (r *Runner) Subscribe(o ports.JobObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Submit queues fn and returns the queued job. It never blocks.
func (r *Runner) Submit(kind domain.JobKind, fn ports.JobFunc) (domain.Job, error) {
	job := &domain.Job{
		ID:       uuid.NewString(),
		Kind:     kind,
		Status:   domain.JobQueued,
		QueuedAt: r.now().UTC(),
	}

	r.mu.Lock()
	select {
	case r.queue <- entry{id: job.ID, fn: fn}:
	default:
		r.mu.Unlock()
		return domain.Job{}, fmt.Errorf("submit %s: %w", kind, domain.ErrQueueFull)
	}
	r.jobs[job.ID] = job
	r.order = append(r.order, job.ID)
	r.trim()
	snapshot := *job
	r.mu.Unlock()

	telemetry.JobsQueued.Inc()
	r.logger.Debug("job queued", "job_id", job.ID, "kind", kind)
	r.notify(snapshot)
	return snapshot, nil
}

// Get returns a copy of a retained job.
func (r *Runner) Get(id string) (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return *job, true
}

// Start begins the worker loop. Jobs still queued when ctx ends are failed.
// Start must be called at most once.
func (r *Runner) Start(ctx context.Context) {
	go func() {
		defer close(r.stopped)
		for {
			if ctx.Err() != nil {
				r.drain(ctx.Err())
				return
			}
			select {
			case <-ctx.Done():
				r.drain(ctx.Err())
				return
			case e := <-r.queue:
				telemetry.JobsQueued.Dec()
				r.run(ctx, e)
			}
		}
	}()
}

// Wait blocks until the worker loop started by Start has returned,
// including the job that was running when ctx ended.
func (r *Runner) Wait() {
	<-r.stopped
}

// Every submits the given jobs, in order, on each tick until ctx ends.
func (r *Runner) Every(ctx context.Context, interval time.Duration, jobs ...Scheduled) {
	if interval <= 0 || len(jobs) == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, s := range jobs {
					if _, err := r.Submit(s.Kind, s.Fn); err != nil {
						r.logger.Warn("scheduled job skipped", "kind", s.Kind, "error", err)
					}
				}
			}
		}
	}()
}

// Scheduled is a job submitted on every tick of Every.
type Scheduled struct {
	Kind domain.JobKind
	Fn   ports.JobFunc
}

func (r *Runner) run(ctx context.Context, e entry) {
	started := r.now().UTC()
	r.update(e.id, func(j *domain.Job) {
		j.Status = domain.JobRunning
		j.StartedAt = &started
	})

	result, err := r.invoke(ctx, e.fn)

	finished := r.now().UTC()
	r.update(e.id, func(j *domain.Job) {
		j.FinishedAt = &finished
		if err != nil {
			j.Status = domain.JobFailed
			j.Error = err.Error()
			return
		}
		j.Status = domain.JobSucceeded
		j.Result = result
	})

	if err != nil {
		r.logger.Error("job failed", "job_id", e.id, "error", err)
		return
	}
	r.logger.Info("job finished", "job_id", e.id, "duration", finished.Sub(started))
}

func (r *Runner) invoke(ctx context.Context, fn ports.JobFunc) (result interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return fn(ctx)
}

func (r *Runner) drain(cause error) {
	for {
		select {
		case e := <-r.queue:
			telemetry.JobsQueued.Dec()
			finished := r.now().UTC()
			r.update(e.id, func(j *domain.Job) {
				j.Status = domain.JobFailed
				j.Error = errors.Join(errors.New("runner stopped"), cause).Error()
				j.FinishedAt = &finished
			})
		default:
			return
		}
	}
}

func (r *Runner) update(id string, fn func(*domain.Job)) {
	r.mu.Lock()
	job, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	fn(job)
	snapshot := *job
	r.mu.Unlock()
	r.notify(snapshot)
}

func (r *Runner) notify(job domain.Job) {
	r.mu.RLock()
	observers := append([]ports.JobObserver(nil), r.observers...)
	r.mu.RUnlock()
	for _, o := range observers {
		o.JobUpdated(job)
	}
}

// trim drops the oldest finished jobs beyond the history size. Caller holds mu.
func (r *Runner) trim() {
	excess := len(r.order) - r.history
	if excess <= 0 {
		return
	}
	kept := r.order[:0]
	for _, id := range r.order {
		if excess > 0 && r.jobs[id].Done() {
			delete(r.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}
