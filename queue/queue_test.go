package queue_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mortdb/mort/queue"
	"github.com/mortdb/mort/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(r record.Record) record.Record { return r }

func newRecord(key string) record.Record {
	return record.NewRecord(key, "p1", 1, nil)
}

func TestQueueFIFO(t *testing.T) {
	ctx := context.Background()
	q := queue.NewBounded(1<<20, identity, record.NewFixedEstimator(10))
	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, q.Insert(ctx, newRecord(key)))
	}
	for _, key := range []string{"a", "b", "c"} {
		rec, err := q.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, key, rec.Key.Record)
	}
}

func TestQueueTransform(t *testing.T) {
	ctx := context.Background()
	transform := func(key string) record.Record { return newRecord(key) }
	q := queue.NewBounded(1<<20, transform, record.NewFixedEstimator(10))
	require.NoError(t, q.Insert(ctx, "a"))
	rec, err := q.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", rec.Key.Record)
}

func TestQueueBlocksWhenFull(t *testing.T) {
	ctx := context.Background()
	q := queue.NewBounded(30, identity, record.NewFixedEstimator(10))
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Insert(ctx, newRecord("a")))
	}
	inserted := make(chan error, 1)
	go func() {
		inserted <- q.Insert(ctx, newRecord("b"))
	}()
	select {
	case <-inserted:
		t.Fatal("insert should have blocked on a saturated queue")
	case <-time.After(50 * time.Millisecond):
	}
	_, err := q.Next(ctx)
	require.NoError(t, err)
	select {
	case err := <-inserted:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("insert did not unblock after a pull")
	}
}

func TestQueueAdmitsOversizedRecordWhenEmpty(t *testing.T) {
	ctx := context.Background()
	q := queue.NewBounded(10, identity, record.NewFixedEstimator(1000))
	require.NoError(t, q.Insert(ctx, newRecord("big")))
	rec, err := q.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "big", rec.Key.Record)
	assert.Zero(t, q.Used())
}

func TestQueueMemoryBoundUnderConcurrentProducers(t *testing.T) {
	ctx := context.Background()
	q := queue.NewBounded(50, identity, record.NewFixedEstimator(10))
	producers := 4
	perProducer := 50
	wg := &sync.WaitGroup{}
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				assert.NoError(t, q.Insert(ctx, newRecord("r")))
			}
		}()
	}
	go func() {
		wg.Wait()
		q.Seal()
	}()
	count := 0
	for {
		_, err := q.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		count++
		assert.LessOrEqual(t, q.Used(), q.Budget())
	}
	assert.Equal(t, producers*perProducer, count)
}

func TestQueueSeal(t *testing.T) {
	ctx := context.Background()
	t.Run("insert after seal is an error", func(t *testing.T) {
		q := queue.NewBounded(1<<20, identity, record.NewFixedEstimator(10))
		q.Seal()
		require.ErrorIs(t, q.Insert(ctx, newRecord("a")), queue.ErrQueueSealed)
	})
	t.Run("sealed queue drains then returns EOF", func(t *testing.T) {
		q := queue.NewBounded(1<<20, identity, record.NewFixedEstimator(10))
		require.NoError(t, q.Insert(ctx, newRecord("a")))
		q.Seal()
		_, err := q.Next(ctx)
		require.NoError(t, err)
		_, err = q.Next(ctx)
		require.ErrorIs(t, err, io.EOF)
	})
}

func TestQueueFail(t *testing.T) {
	ctx := context.Background()
	failure := errors.New("scan exploded")
	t.Run("consumer sees the failure", func(t *testing.T) {
		q := queue.NewBounded(1<<20, identity, record.NewFixedEstimator(10))
		require.NoError(t, q.Insert(ctx, newRecord("a")))
		q.Fail(failure)
		_, err := q.Next(ctx)
		require.ErrorIs(t, err, failure)
		assert.Zero(t, q.Used())
	})
	t.Run("blocked producer wakes with the failure", func(t *testing.T) {
		q := queue.NewBounded(10, identity, record.NewFixedEstimator(10))
		require.NoError(t, q.Insert(ctx, newRecord("a")))
		inserted := make(chan error, 1)
		go func() {
			inserted <- q.Insert(ctx, newRecord("b"))
		}()
		time.Sleep(20 * time.Millisecond)
		q.Fail(failure)
		select {
		case err := <-inserted:
			require.ErrorIs(t, err, failure)
		case <-time.After(time.Second):
			t.Fatal("blocked producer did not unwind")
		}
	})
	t.Run("only the first failure is retained", func(t *testing.T) {
		q := queue.NewBounded(1<<20, identity, record.NewFixedEstimator(10))
		q.Fail(failure)
		q.Fail(errors.New("second failure"))
		_, err := q.Next(ctx)
		require.ErrorIs(t, err, failure)
	})
}

func TestQueueContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q := queue.NewBounded(1<<20, identity, record.NewFixedEstimator(10))
	require.ErrorIs(t, q.Insert(ctx, newRecord("a")), context.Canceled)
	_, err := q.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
