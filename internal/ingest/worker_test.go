package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsSubmittedJobs(t *testing.T) {
	// Arrange
	pool := NewPool(3, 10, nil)
	pool.Start()
	var ran atomic.Int32

	// Act
	for i := 0; i < 10; i++ {
		id, err := pool.Submit(context.Background(), "count", "", func(context.Context) error {
			ran.Add(1)
			return nil
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}
	pool.Stop()

	// Assert
	assert.Equal(t, int32(10), ran.Load())
}

func TestPool_SurvivesFailingAndPanickingJobs(t *testing.T) {
	pool := NewPool(1, 4, nil)
	pool.Start()
	var ran atomic.Int32

	_, err := pool.Submit(context.Background(), "fail", "a", func(context.Context) error { return errors.New("boom") })
	require.NoError(t, err)
	_, err = pool.Submit(context.Background(), "panic", "b", func(context.Context) error { panic("bad job") })
	require.NoError(t, err)
	_, err = pool.Submit(context.Background(), "ok", "c", func(context.Context) error {
		ran.Add(1)
		return nil
	})
	require.NoError(t, err)
	pool.Stop()

	assert.Equal(t, int32(1), ran.Load())
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := NewPool(1, 1, nil)
	pool.Start()
	pool.Stop()

	_, err := pool.Submit(context.Background(), "late", "", func(context.Context) error { return nil })

	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestPool_SubmitHonoursContextWhenFull(t *testing.T) {
	// Arrange: not started, so the single slot stays occupied
	pool := NewPool(1, 1, nil)
	_, err := pool.Submit(context.Background(), "fill", "", func(context.Context) error { return nil })
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Act
	_, err = pool.Submit(ctx, "blocked", "", func(context.Context) error { return nil })

	// Assert
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, pool.Pending())
}

func TestPool_NestedSubmitNeverBlocksWorker(t *testing.T) {
	// Arrange
	pool := NewPool(1, 2, nil)
	pool.Start()
	var queued, full atomic.Int32
	outerDone := make(chan struct{})

	// Act: the only worker submits more jobs than the queue holds
	_, err := pool.Submit(context.Background(), "newsletter", "7", func(ctx context.Context) error {
		defer close(outerDone)
		for i := 0; i < 5; i++ {
			_, err := pool.Submit(ctx, "extract_article", "", func(context.Context) error { return nil })
			switch {
			case err == nil:
				queued.Add(1)
			case errors.Is(err, ErrQueueFull):
				full.Add(1)
			default:
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	// Assert
	select {
	case <-outerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("outer job blocked in Submit")
	}
	assert.Equal(t, int32(2), queued.Load())
	assert.Equal(t, int32(3), full.Load())

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop hung")
	}
}

func TestPool_StopReleasesBlockedSubmitter(t *testing.T) {
	// Arrange: not started, so the queue never drains
	pool := NewPool(1, 1, nil)
	_, err := pool.Submit(context.Background(), "fill", "", func(context.Context) error { return nil })
	require.NoError(t, err)
	errCh := make(chan error, 1)
	go func() {
		_, err := pool.Submit(context.Background(), "waiting", "", func(context.Context) error { return nil })
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)

	// Act
	pool.Stop()

	// Assert
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrPoolStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("submitter not released")
	}
}
