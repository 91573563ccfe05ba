// Package fetcher runs download tasks with a bounded number of transfers in
// flight and records one outcome per task.
package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"dirpack/model"
)

const (
	DefaultConcurrency = 5
	DefaultTimeout     = 3 * time.Second
)

// FetchFunc performs a single transfer and returns the number of bytes
// written. It must return promptly once ctx is done.
type FetchFunc func(ctx context.Context, task model.DownloadTask) (int64, error)

// Observer receives progress events. TaskStarted and TaskFinished are called
// from worker goroutines.
type Observer interface {
	Begin(total int)
	TaskStarted(task model.DownloadTask)
	TaskFinished(outcome model.DownloadOutcome)
	End()
}

type nopObserver struct{}

func (nopObserver) Begin(int)                          {}
func (nopObserver) TaskStarted(model.DownloadTask)     {}
func (nopObserver) TaskFinished(model.DownloadOutcome) {}
func (nopObserver) End()                               {}

type Scheduler struct {
	fetch    FetchFunc
	limit    int
	observer Observer
	logger   hclog.Logger
}

type Option func(*Scheduler)

// WithConcurrency caps the number of tasks in flight. Values below 1 keep
// the default.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n >= 1 {
			s.limit = n
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithLogger(l hclog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewScheduler(fetch FetchFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetch:    fetch,
		limit:    DefaultConcurrency,
		observer: nopObserver{},
		logger:   hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limit returns the maximum number of tasks run at once.
func (s *Scheduler) Limit() int {
	return s.limit
}

// Run executes every task and returns once each has an outcome. outcomes[i]
// belongs to tasks[i]; tasks finish in no particular order. Cancelling ctx
// aborts in-flight transfers and marks tasks not yet admitted as cancelled.
func (s *Scheduler) Run(ctx context.Context, tasks []model.DownloadTask) []model.DownloadOutcome {
	outcomes := make([]model.DownloadOutcome, len(tasks))

	s.observer.Begin(len(tasks))
	defer s.observer.End()

	var g errgroup.Group
	g.SetLimit(s.limit)
	for i, task := range tasks {
		if ctx.Err() != nil {
			outcomes[i] = s.finish(model.DownloadOutcome{Task: task, Kind: model.KindCancelled, Err: ctx.Err()})
			continue
		}
		// Go blocks until a slot is free.
		g.Go(func() error {
			outcomes[i] = s.runTask(ctx, task)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (s *Scheduler) runTask(ctx context.Context, task model.DownloadTask) model.DownloadOutcome {
	if err := ctx.Err(); err != nil {
		return s.finish(model.DownloadOutcome{Task: task, Kind: model.KindCancelled, Err: err})
	}

	timeout := task.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	start := time.Now()
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.observer.TaskStarted(task)
	n, err := s.fetch(taskCtx, task)

	outcome := model.DownloadOutcome{
		Task:     task,
		Success:  err == nil,
		Bytes:    n,
		Duration: time.Since(start),
	}
	if err != nil {
		outcome.Kind = classify(ctx, taskCtx, err)
		outcome.Err = err
	}
	return s.finish(outcome)
}

func (s *Scheduler) finish(outcome model.DownloadOutcome) model.DownloadOutcome {
	if outcome.Success {
		s.logger.Debug("downloaded", "path", outcome.Task.Path, "bytes", outcome.Bytes, "duration", outcome.Duration)
	} else {
		s.logger.Warn("download failed", "path", outcome.Task.Path, "kind", outcome.Kind.String(), "error", outcome.Err)
	}
	s.observer.TaskFinished(outcome)
	return outcome
}

// classify prefers what the contexts say over the error's own kind, except
// for disk errors.
func classify(parent, taskCtx context.Context, err error) model.ErrorKind {
	kind := model.KindOf(err)
	if kind == model.KindIO {
		return kind
	}
	if parent.Err() != nil {
		return model.KindCancelled
	}
	if errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
		return model.KindTimeout
	}
	return kind
}
