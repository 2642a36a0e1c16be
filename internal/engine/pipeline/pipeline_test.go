package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/require"
	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/fab/internal/core/ports"
	"go.trai.ch/fab/internal/engine/pipeline"
)

type nopSpan struct{}

func (nopSpan) End()                     {}
func (nopSpan) RecordError(error)        {}
func (nopSpan) SetAttribute(string, any) {}

type nopTracer struct{}

func (nopTracer) Start(ctx context.Context, _ string) (context.Context, ports.Span) {
	return ctx, nopSpan{}
}

type nopLogger struct{}

func (nopLogger) Debug(string) {}
func (nopLogger) Info(string)  {}
func (nopLogger) Warn(string)  {}
func (nopLogger) Error(error)  {}

func newRunner(parallel bool) *pipeline.Runner {
	return pipeline.NewRunner(parallel, nopTracer{}, nopLogger{})
}

func TestRunner_SequentialOrder(t *testing.T) {
	var order []domain.AssetClass
	stages := []pipeline.Stage{
		{Class: domain.ClassScripts, Run: func(context.Context) error {
			order = append(order, domain.ClassScripts)
			return nil
		}},
		{Class: domain.ClassStyles, Run: func(context.Context) error {
			order = append(order, domain.ClassStyles)
			return nil
		}},
		{Class: domain.ClassAssets, Run: func(context.Context) error {
			order = append(order, domain.ClassAssets)
			return nil
		}},
	}

	r := newRunner(false)
	err := r.Run(context.Background(), stages)
	require.NoError(t, err)
	require.Equal(t, []domain.AssetClass{domain.ClassScripts, domain.ClassStyles, domain.ClassAssets}, order)
	require.Equal(t, pipeline.StatusCompleted, r.Status(domain.ClassStyles))
}

func TestRunner_SequentialStopsAtFailure(t *testing.T) {
	boom := errors.New("boom")
	var assetsRan bool
	stages := []pipeline.Stage{
		{Class: domain.ClassStyles, Run: func(context.Context) error { return boom }},
		{Class: domain.ClassAssets, Run: func(context.Context) error {
			assetsRan = true
			return nil
		}},
	}

	r := newRunner(false)
	err := r.Run(context.Background(), stages)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, domain.ErrPipelineFailed)
	require.False(t, assetsRan)
	require.Equal(t, pipeline.StatusFailed, r.Status(domain.ClassStyles))
	require.Equal(t, pipeline.StatusPending, r.Status(domain.ClassAssets))
}

func TestRunner_ParallelFailFast(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		boom := errors.New("boom")
		stages := []pipeline.Stage{
			{Class: domain.ClassScripts, Run: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			}},
			{Class: domain.ClassStyles, Run: func(context.Context) error { return boom }},
		}

		r := newRunner(true)
		err := r.Run(context.Background(), stages)
		require.Error(t, err)
		require.ErrorIs(t, err, boom)
	})
}

func TestRunner_AbortedStageWrapsSentinel(t *testing.T) {
	stages := []pipeline.Stage{
		{Class: domain.ClassScripts, Run: func(context.Context) error {
			return context.Canceled
		}},
	}

	r := newRunner(false)
	err := r.Run(context.Background(), stages)
	require.ErrorIs(t, err, domain.ErrAborted)
}

func TestRunner_DuplicateInvocationQueuesSingleFollowUp(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		release := make(chan struct{})
		var runs atomic.Int32

		stage := pipeline.Stage{Class: domain.ClassScripts, Run: func(context.Context) error {
			if runs.Add(1) == 1 {
				<-release
			}
			return nil
		}}

		r := newRunner(true)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, r.Run(context.Background(), []pipeline.Stage{stage}))
		}()
		synctest.Wait()
		require.Equal(t, pipeline.StatusRunning, r.Status(domain.ClassScripts))

		// Three more invocations while the first is still running must
		// coalesce into exactly one follow-up pass.
		for range 3 {
			require.NoError(t, r.Run(context.Background(), []pipeline.Stage{stage}))
		}

		close(release)
		wg.Wait()
		synctest.Wait()

		require.Equal(t, int32(2), runs.Load())
		require.Equal(t, pipeline.StatusCompleted, r.Status(domain.ClassScripts))
	})
}

func TestRunner_FollowUpNotReplayedAfterFailure(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		release := make(chan struct{})
		boom := errors.New("boom")
		var runs atomic.Int32

		stage := pipeline.Stage{Class: domain.ClassStyles, Run: func(context.Context) error {
			runs.Add(1)
			<-release
			return boom
		}}

		r := newRunner(true)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Run(context.Background(), []pipeline.Stage{stage})
			require.ErrorIs(t, err, boom)
		}()
		synctest.Wait()

		require.NoError(t, r.Run(context.Background(), []pipeline.Stage{stage}))

		close(release)
		wg.Wait()

		require.Equal(t, int32(1), runs.Load())
		require.Equal(t, pipeline.StatusFailed, r.Status(domain.ClassStyles))
	})
}
