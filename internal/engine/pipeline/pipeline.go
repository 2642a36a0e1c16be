// Package pipeline runs the fixed set of asset-class processing stages.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/fab/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// StageStatus represents the status of a stage within one run.
type StageStatus string

const (
	// StatusPending indicates the stage is waiting to be executed.
	StatusPending StageStatus = "Pending"
	// StatusRunning indicates the stage is currently executing.
	StatusRunning StageStatus = "Running"
	// StatusCompleted indicates the stage finished successfully.
	StatusCompleted StageStatus = "Completed"
	// StatusFailed indicates the stage execution failed.
	StatusFailed StageStatus = "Failed"
)

// Stage is one asset-class processing step.
type Stage struct {
	Class domain.AssetClass
	Run   func(ctx context.Context) error
}

// Runner executes stages either concurrently or sequentially.
//
// Re-entrancy rule: a stage already running is never started a second time.
// A second invocation for the same class instead enqueues a single follow-up
// run performed immediately after the first completes. Two concurrent passes
// over the same output files would corrupt that class's cache.
type Runner struct {
	parallel bool
	tracer   ports.Tracer
	log      ports.Logger

	mu      sync.Mutex
	running map[domain.AssetClass]bool
	queued  map[domain.AssetClass]bool
	status  map[domain.AssetClass]StageStatus
}

// NewRunner creates a Runner. parallel selects concurrent stage execution.
func NewRunner(parallel bool, tracer ports.Tracer, log ports.Logger) *Runner {
	return &Runner{
		parallel: parallel,
		tracer:   tracer,
		log:      log,
		running:  make(map[domain.AssetClass]bool),
		queued:   make(map[domain.AssetClass]bool),
		status:   make(map[domain.AssetClass]StageStatus),
	}
}

// Run executes the given stages.
//
// In parallel mode all stages launch concurrently and the pipeline fails
// fast: the first failure cancels the shared context, remaining stages settle
// (typically as aborted), and the first failure is the pipeline's result. In
// sequential mode stages run in order, stopping at the first failure.
func (r *Runner) Run(ctx context.Context, stages []Stage) error {
	for _, st := range stages {
		r.setStatus(st.Class, StatusPending)
	}

	if !r.parallel {
		for _, st := range stages {
			if err := r.runStage(ctx, st); err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, st := range stages {
		g.Go(func() error {
			return r.runStage(ctx, st)
		})
	}
	return g.Wait()
}

// Status returns the stage's status within the current or last run.
func (r *Runner) Status(class domain.AssetClass) StageStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status[class]
}

func (r *Runner) setStatus(class domain.AssetClass, status StageStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[class] = status
}

// runStage executes a stage, honoring the re-entrancy rule. If the class is
// busy the invocation is recorded for a single replay and returns nil; the
// running invocation performs the replay after its own pass.
func (r *Runner) runStage(ctx context.Context, st Stage) error {
	if !r.begin(st.Class) {
		return nil
	}

	for {
		err := r.exec(ctx, st)

		again := r.finish(st.Class, err)
		if err != nil || !again {
			return err
		}
	}
}

// begin marks the class running. It returns false when the class is already
// running, in which case a single follow-up is enqueued instead.
func (r *Runner) begin(class domain.AssetClass) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running[class] {
		r.queued[class] = true
		return false
	}
	r.running[class] = true
	r.status[class] = StatusRunning
	return true
}

// finish clears the running mark and reports whether a queued follow-up must
// be replayed. The follow-up claim is atomic with the clear so no invocation
// is lost and none runs twice.
func (r *Runner) finish(class domain.AssetClass, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.status[class] = StatusFailed
	} else {
		r.status[class] = StatusCompleted
	}

	if r.queued[class] && err == nil {
		delete(r.queued, class)
		r.status[class] = StatusRunning
		return true
	}
	delete(r.queued, class)
	r.running[class] = false
	return false
}

func (r *Runner) exec(ctx context.Context, st Stage) error {
	ctx, span := r.tracer.Start(ctx, "stage."+string(st.Class))
	defer span.End()

	err := st.Run(ctx)
	if err == nil {
		return nil
	}

	if errors.Is(err, domain.ErrAborted) || errors.Is(err, context.Canceled) {
		r.log.Debug("stage aborted: " + string(st.Class))
		return errors.Join(domain.ErrAborted, err)
	}

	span.RecordError(err)
	return zerr.With(errors.Join(domain.ErrPipelineFailed, err), "stage", string(st.Class))
}
