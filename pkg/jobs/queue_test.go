package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 1)
	q := NewQueue("runs", func(ctx context.Context, job Job) error {
		done <- job.ID
		return nil
	}, QueueConfig{})

	require.Error(t, q.Enqueue(Job{ID: "early"}))
	assert.Equal(t, uint64(1), q.Stats().Rejected)

	q.Start(context.Background())
	defer q.Stop(time.Second)

	require.NoError(t, q.Enqueue(Job{ID: "run-1", Type: "persist"}))
	select {
	case id := <-done:
		assert.Equal(t, "run-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("runs", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("database down")
		}
		close(done)
		return nil
	}, QueueConfig{RetryDelay: 5 * time.Millisecond, MaxRetries: 5})
	q.Start(context.Background())
	defer q.Stop(time.Second)

	require.NoError(t, q.Enqueue(Job{ID: "run-1"}))
	select {
	case <-done:
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
}

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	var handled int32
	block := make(chan struct{})
	q := NewQueue("runs", func(ctx context.Context, job Job) error {
		if job.ID == "blocker" {
			<-block
		}
		atomic.AddInt32(&handled, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "blocker"}))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.NoError(t, q.Enqueue(Job{ID: "b"}))
	close(block)

	q.Stop(time.Second)
	assert.Equal(t, int32(3), atomic.LoadInt32(&handled))
	stats := q.Stats()
	assert.Equal(t, uint64(3), stats.Processed)
	assert.Zero(t, stats.Pending)
}

func TestQueueAbandonsAfterMaxRetries(t *testing.T) {
	q := NewQueue("runs", func(ctx context.Context, job Job) error {
		return errors.New("constraint violation")
	}, QueueConfig{RetryDelay: time.Millisecond, MaxRetries: 1})
	q.Start(context.Background())
	defer q.Stop(time.Second)

	require.NoError(t, q.Enqueue(Job{ID: "run-1"}))
	assert.Eventually(t, func() bool { return q.Stats().Abandoned == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, q.Stats().Processed)
}
