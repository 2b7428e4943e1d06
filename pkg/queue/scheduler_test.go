package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/jdziat/weblytics-go/pkg/errors"
	"github.com/jdziat/weblytics-go/pkg/types"
)

type sendCall struct {
	events []types.Event
	intent types.Intent
}

// recorder is a Sender that records every call. respond decides the
// outcome of call number n (1-based); nil accepts everything.
type recorder struct {
	mu      sync.Mutex
	calls   []sendCall
	respond func(n int, events []types.Event) (int, error)
}

func (r *recorder) Send(_ context.Context, events []types.Event, intent types.Intent) (int, error) {
	r.mu.Lock()
	r.calls = append(r.calls, sendCall{events: events, intent: intent})
	n := len(r.calls)
	respond := r.respond
	r.mu.Unlock()

	if respond != nil {
		return respond(n, events)
	}
	return len(events), nil
}

func (r *recorder) Calls() []sendCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sendCall(nil), r.calls...)
}

func (r *recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type memMetrics struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]float64
}

func newMemMetrics() *memMetrics {
	return &memMetrics{counters: map[string]int64{}, gauges: map[string]float64{}}
}

func (m *memMetrics) IncrementCounter(name string, v int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += v
}

func (m *memMetrics) RecordDuration(string, time.Duration) {}

func (m *memMetrics) SetGauge(name string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = v
}

func (m *memMetrics) Counter(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

func newTestScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = time.Hour
	}
	s := NewScheduler(cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return s
}

func waitIdle(t *testing.T, s *Scheduler) {
	t.Helper()
	require.Eventually(t, func() bool {
		st := s.Stats()
		return !st.InFlight && !st.BackoffPending
	}, 2*time.Second, time.Millisecond)
}

func TestScheduler_ThresholdTriggersOneBatch(t *testing.T) {
	rec := &recorder{}
	s := newTestScheduler(t, Config{Sender: rec})

	for i := 0; i < 9; i++ {
		s.Enqueue(ev(fmt.Sprintf("e%d", i)))
	}
	st := s.Stats()
	assert.False(t, st.InFlight)
	assert.True(t, st.DebouncePending)
	assert.Equal(t, 0, rec.Count())

	s.Enqueue(ev("e9"))

	require.Eventually(t, func() bool { return rec.Count() == 1 }, time.Second, time.Millisecond)
	waitIdle(t, s)

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, types.IntentThreshold, calls[0].intent)
	assert.Equal(t, []string{"e0", "e1", "e2", "e3", "e4", "e5", "e6", "e7", "e8", "e9"}, names(calls[0].events))
	assert.False(t, s.Stats().DebouncePending, "a drain cancels the debounce timer")
}

func TestScheduler_DebounceTimer(t *testing.T) {
	rec := &recorder{}
	s := newTestScheduler(t, Config{Sender: rec, FlushInterval: 20 * time.Millisecond})

	s.Enqueue(ev("a"))
	s.Enqueue(ev("b"))

	require.Eventually(t, func() bool { return rec.Count() == 1 }, time.Second, time.Millisecond)
	calls := rec.Calls()
	assert.Equal(t, types.IntentTimer, calls[0].intent)
	assert.Equal(t, []string{"a", "b"}, names(calls[0].events))
}

func TestScheduler_RetryBound(t *testing.T) {
	rec := &recorder{respond: func(int, []types.Event) (int, error) {
		return 0, pkgerrors.NewAPIError(503, []byte("unavailable"))
	}}
	metrics := newMemMetrics()
	s := newTestScheduler(t, Config{
		Sender:  rec,
		Metrics: metrics,
		Backoff: Backoff{BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, MaxJitter: -1},
	})

	s.Enqueue(ev("doomed"))
	s.Trigger(types.IntentManual)

	require.Eventually(t, func() bool { return rec.Count() == 4 }, 2*time.Second, time.Millisecond)
	waitIdle(t, s)
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 4, rec.Count(), "1 initial attempt + 3 retries")
	st := s.Stats()
	assert.Equal(t, 0, st.Queued, "the batch is dropped")
	assert.Equal(t, 0, st.Retries, "the counter resets after the drop")

	calls := rec.Calls()
	assert.Equal(t, types.IntentManual, calls[0].intent)
	for _, c := range calls[1:] {
		assert.Equal(t, types.IntentRetry, c.intent)
	}
	assert.Equal(t, int64(3), metrics.Counter("weblytics.retry.scheduled"))
	assert.Equal(t, int64(1), metrics.Counter("weblytics.batch.dropped"))
}

func TestScheduler_SuccessResetsRetryCounter(t *testing.T) {
	rec := &recorder{respond: func(n int, events []types.Event) (int, error) {
		if n == 1 {
			return 0, pkgerrors.NewAPIError(429, nil)
		}
		return len(events), nil
	}}
	s := newTestScheduler(t, Config{
		Sender:  rec,
		Backoff: Backoff{BaseDelay: 200 * time.Millisecond, MaxJitter: -1},
	})

	s.Enqueue(ev("a"))
	_, err := s.Flush(context.Background())
	assert.ErrorIs(t, err, pkgerrors.ErrRateLimited)
	assert.Equal(t, 1, s.Stats().Retries)

	require.Eventually(t, func() bool { return rec.Count() == 2 }, 2*time.Second, time.Millisecond)
	waitIdle(t, s)

	assert.Equal(t, 0, s.Stats().Retries)
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_ConcurrentFlushSharesDrain(t *testing.T) {
	release := make(chan struct{})
	rec := &recorder{respond: func(_ int, events []types.Event) (int, error) {
		<-release
		return len(events), nil
	}}
	s := newTestScheduler(t, Config{Sender: rec})

	for i := 0; i < 3; i++ {
		s.Enqueue(ev(fmt.Sprintf("e%d", i)))
	}

	const flushers = 5
	results := make(chan DrainResult, flushers)
	var wg sync.WaitGroup
	for i := 0; i < flushers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Flush(context.Background())
			assert.NoError(t, err)
			results <- res
		}()
	}

	require.Eventually(t, func() bool { return rec.Count() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.inflight != nil && s.inflight.waiters == flushers
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	assert.Equal(t, 1, rec.Count(), "overlapping flushes never start a second delivery")
	for res := range results {
		assert.Equal(t, 3, res.Accepted)
	}
}

func TestScheduler_NonRetryableDropsAndContinues(t *testing.T) {
	rec := &recorder{respond: func(n int, events []types.Event) (int, error) {
		if n == 1 {
			return 0, pkgerrors.NewAPIError(400, []byte("bad event"))
		}
		return len(events), nil
	}}
	s := newTestScheduler(t, Config{Sender: rec})

	// Fill directly so no trigger fires before Flush.
	s.mu.Lock()
	for i := 0; i < 25; i++ {
		s.queue.Push(ev(fmt.Sprintf("e%d", i)))
	}
	s.mu.Unlock()

	res, err := s.Flush(context.Background())

	var apiErr *pkgerrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Equal(t, 15, res.Accepted)
	assert.Equal(t, 0, s.Len())

	calls := rec.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, types.IntentManual, calls[0].intent)
	assert.Equal(t, types.IntentContinuation, calls[1].intent)
	assert.Equal(t, types.IntentContinuation, calls[2].intent)
	assert.Len(t, calls[2].events, 5)
}

func TestScheduler_BackoffSuppressesThreshold(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	rec := &recorder{respond: func(_ int, events []types.Event) (int, error) {
		if fail.Load() {
			return 0, pkgerrors.NewNetworkError(context.DeadlineExceeded)
		}
		return len(events), nil
	}}
	s := newTestScheduler(t, Config{Sender: rec, Backoff: Backoff{BaseDelay: time.Hour}})

	s.Enqueue(ev("first"))
	_, err := s.Flush(context.Background())
	require.Error(t, err)
	require.True(t, s.Stats().BackoffPending)
	assert.Equal(t, 1, s.Len(), "the failed batch is requeued")

	for i := 0; i < 15; i++ {
		s.Enqueue(ev(fmt.Sprintf("e%d", i)))
	}
	assert.Equal(t, 1, rec.Count(), "threshold is a no-op while a retry is pending")
	assert.False(t, s.Stats().DebouncePending)

	fail.Store(false)
	res, err := s.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16, res.Accepted)
	assert.False(t, s.Stats().BackoffPending, "explicit flush cancels the backoff")

	calls := rec.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "first", calls[1].events[0].EventType, "requeued events stay at the head")
}

func TestScheduler_TeardownTriggerCancelsBackoff(t *testing.T) {
	var n atomic.Int32
	rec := &recorder{respond: func(_ int, events []types.Event) (int, error) {
		if n.Add(1) == 1 {
			return 0, pkgerrors.NewAPIError(502, nil)
		}
		return len(events), nil
	}}
	s := newTestScheduler(t, Config{Sender: rec, Backoff: Backoff{BaseDelay: time.Hour}})

	s.Enqueue(ev("a"))
	_, _ = s.Flush(context.Background())
	require.True(t, s.Stats().BackoffPending)

	s.Trigger(types.IntentPageUnload)

	require.Eventually(t, func() bool { return rec.Count() == 2 }, time.Second, time.Millisecond)
	waitIdle(t, s)
	assert.Equal(t, types.IntentPageUnload, rec.Calls()[1].intent)
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_ResetDuringFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	rec := &recorder{respond: func(n int, events []types.Event) (int, error) {
		if n == 1 {
			close(started)
			<-release
			return 0, pkgerrors.NewAPIError(500, nil)
		}
		return len(events), nil
	}}
	s := newTestScheduler(t, Config{Sender: rec})

	s.Enqueue(ev("old-identity"))
	s.Trigger(types.IntentManual)
	<-started

	s.Reset()
	close(release)
	waitIdle(t, s)

	st := s.Stats()
	assert.Equal(t, 0, st.Queued, "events from before the reset are not requeued")
	assert.Equal(t, 0, st.Retries)
	assert.False(t, st.BackoffPending)
}

func TestScheduler_ResetClearsQueueAndTimers(t *testing.T) {
	rec := &recorder{}
	s := newTestScheduler(t, Config{Sender: rec})

	s.Enqueue(ev("a"))
	require.True(t, s.Stats().DebouncePending)

	s.Reset()

	st := s.Stats()
	assert.Equal(t, 0, st.Queued)
	assert.False(t, st.DebouncePending)
	assert.Equal(t, 0, rec.Count())
}

func TestScheduler_FlushEmptyQueue(t *testing.T) {
	rec := &recorder{}
	s := newTestScheduler(t, Config{Sender: rec})

	res, err := s.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Accepted)
	assert.Equal(t, 0, rec.Count())
}

func TestScheduler_FlushContextCancelled(t *testing.T) {
	release := make(chan struct{})
	rec := &recorder{respond: func(_ int, events []types.Event) (int, error) {
		<-release
		return len(events), nil
	}}
	s := newTestScheduler(t, Config{Sender: rec})
	s.Enqueue(ev("slow"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Flush(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	waitIdle(t, s)
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_OnErrorForUnattendedDrains(t *testing.T) {
	errs := make(chan error, 1)
	rec := &recorder{respond: func(int, []types.Event) (int, error) {
		return 0, pkgerrors.NewAPIError(401, []byte("bad key"))
	}}
	s := newTestScheduler(t, Config{
		Sender:        rec,
		FlushInterval: 5 * time.Millisecond,
		OnError:       func(err error) { errs <- err },
	})

	s.Enqueue(ev("a"))

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, pkgerrors.ErrUnauthorized)
	case <-time.After(2 * time.Second):
		t.Fatal("OnError was not called")
	}
}

func TestScheduler_OnBatchFlushed(t *testing.T) {
	var mu sync.Mutex
	var got []BatchResult
	s := newTestScheduler(t, Config{
		Sender: &recorder{},
		OnBatchFlushed: func(r BatchResult) {
			mu.Lock()
			got = append(got, r)
			mu.Unlock()
		},
	})

	s.Enqueue(ev("a"))
	s.Enqueue(ev("b"))
	_, err := s.Flush(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].EventCount)
	assert.Equal(t, 2, got[0].Accepted)
	assert.Equal(t, types.IntentManual, got[0].Intent)
}

func TestScheduler_EvictionMetric(t *testing.T) {
	metrics := newMemMetrics()
	s := newTestScheduler(t, Config{
		Sender:    &recorder{},
		Capacity:  5,
		BatchSize: 100,
		Metrics:   metrics,
	})

	for i := 0; i < 8; i++ {
		s.Enqueue(ev(fmt.Sprintf("e%d", i)))
	}

	assert.Equal(t, 5, s.Len())
	assert.Equal(t, int64(3), metrics.Counter("weblytics.queue.evicted"))
}

func TestScheduler_Close(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(Config{Sender: rec, FlushInterval: time.Hour})

	s.Enqueue(ev("a"))
	s.Enqueue(ev("b"))

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, rec.Count(), "close performs a final drain")
	assert.True(t, s.Stats().Closed)

	assert.False(t, s.Enqueue(ev("late")))
	_, err := s.Flush(context.Background())
	assert.ErrorIs(t, err, pkgerrors.ErrClientClosed)
	assert.NoError(t, s.Close(context.Background()), "close is idempotent")
}
