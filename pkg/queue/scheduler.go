package queue

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/jdziat/weblytics-go/pkg/errors"
	"github.com/jdziat/weblytics-go/pkg/types"
)

// Scheduler defaults.
const (
	DefaultBatchSize     = 10
	DefaultFlushInterval = 2 * time.Second
	DefaultMaxRetries    = 3
)

// Sender delivers one batch and returns the number of accepted events.
type Sender interface {
	Send(ctx context.Context, events []types.Event, intent types.Intent) (int, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, events []types.Event, intent types.Intent) (int, error)

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, events []types.Event, intent types.Intent) (int, error) {
	return f(ctx, events, intent)
}

// Logger is the structured logger used by the scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Metrics receives scheduler metrics.
type Metrics interface {
	IncrementCounter(name string, value int64)
	RecordDuration(name string, duration time.Duration)
	SetGauge(name string, value float64)
}

// BatchResult describes one delivery attempt.
type BatchResult struct {
	Intent     types.Intent
	EventCount int
	Accepted   int
	Duration   time.Duration
	Err        error

	// Requeued is true when the batch was put back for a retry.
	Requeued bool

	// Dropped is true when the batch was discarded, either because the
	// failure was permanent or because the retry budget ran out.
	Dropped bool
}

// DrainResult is the outcome of one drain, shared by everyone waiting on it.
type DrainResult struct {
	// Accepted is the total accepted count across all batches.
	Accepted int

	// Err is the first delivery error that was not a silent max-retry drop.
	Err error
}

// Config configures a Scheduler. Zero values take the package defaults.
type Config struct {
	Sender Sender

	BatchSize     int
	FlushInterval time.Duration
	Capacity      int
	MaxRetries    int
	Backoff       Backoff

	Logger  Logger
	Metrics Metrics

	// OnError receives delivery errors from drains nobody is waiting on.
	OnError func(error)

	// OnBatchFlushed is called after every delivery attempt.
	OnBatchFlushed func(BatchResult)
}

// Stats is a point-in-time view of the scheduler.
type Stats struct {
	Queued          int
	Retries         int
	InFlight        bool
	DebouncePending bool
	BackoffPending  bool
	Closed          bool
}

// drainCall is the single in-flight drain. done is closed once res is final.
type drainCall struct {
	done    chan struct{}
	res     DrainResult
	waiters int
}

// Scheduler decides when queued events are delivered.
//
// All state is guarded by one mutex. Deliveries run on a goroutine, one at
// a time; every trigger that arrives while a drain is in flight joins it.
type Scheduler struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	queue      *Queue
	retries    int
	generation uint64
	debounce   *time.Timer
	backoff    *time.Timer
	inflight   *drainCall
	closed     bool
}

// NewScheduler returns an idle scheduler. cfg.Sender is required.
func NewScheduler(cfg Config) *Scheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		queue:  New(cfg.Capacity),
	}
}

// Enqueue appends ev and evaluates the triggers. It never blocks on
// delivery and reports false only when the scheduler is closed.
func (s *Scheduler) Enqueue(ev types.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.debug("event dropped, scheduler closed", "event_type", ev.EventType)
		return false
	}

	if evicted := s.queue.Push(ev); evicted > 0 {
		s.debug("queue full, evicted oldest events", "evicted", evicted)
		s.counter("weblytics.queue.evicted", int64(evicted))
	}
	s.gaugeQueueLocked()

	// A pending retry will drain the queue; nothing else may start a
	// delivery until it fires.
	if s.backoff != nil {
		return true
	}
	if s.queue.Len() >= s.cfg.BatchSize {
		s.startDrainLocked(types.IntentThreshold)
		return true
	}
	if s.debounce == nil && s.inflight == nil {
		s.armDebounceLocked()
	}
	return true
}

// Trigger starts an immediate drain for intent, cancelling a pending
// backoff. If a drain is already in flight it is joined instead.
func (s *Scheduler) Trigger(intent types.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopBackoffLocked()
	s.startDrainLocked(intent)
}

// Flush drains the queue now and waits for the shared result. If ctx ends
// first the drain keeps running and ctx.Err() is returned.
func (s *Scheduler) Flush(ctx context.Context) (DrainResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return DrainResult{}, pkgerrors.ErrClientClosed
	}
	s.stopBackoffLocked()
	call := s.startDrainLocked(types.IntentManual)
	call.waiters++
	s.mu.Unlock()

	select {
	case <-call.done:
		return call.res, call.res.Err
	case <-ctx.Done():
		return DrainResult{}, ctx.Err()
	}
}

// Reset drops every queued event, cancels both timers and zeroes the retry
// counter. A delivery already in flight completes, but its outcome can no
// longer put events back into the queue.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := s.queue.Clear()
	s.stopDebounceLocked()
	s.stopBackoffLocked()
	s.retries = 0
	s.generation++
	s.gaugeQueueLocked()
	if dropped > 0 {
		s.debug("queue reset", "dropped", dropped)
	}
}

// Close stops accepting events, cancels the timers and performs a final
// drain. It waits for all delivery goroutines; if ctx ends first,
// in-flight requests are cancelled before waiting.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.stopDebounceLocked()
	s.stopBackoffLocked()
	call := s.startDrainLocked(types.IntentManual)
	call.waiters++
	s.closed = true
	s.mu.Unlock()

	var err error
	select {
	case <-call.done:
		err = call.res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}

	s.cancel()
	s.wg.Wait()

	if err == nil {
		s.mu.Lock()
		remaining := s.queue.Len()
		s.mu.Unlock()
		if remaining > 0 {
			s.warn("scheduler closed with undelivered events", "events", remaining)
		}
	}
	return err
}

// Len returns the number of queued events.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Stats returns a snapshot of the scheduler state.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Queued:          s.queue.Len(),
		Retries:         s.retries,
		InFlight:        s.inflight != nil,
		DebouncePending: s.debounce != nil,
		BackoffPending:  s.backoff != nil,
		Closed:          s.closed,
	}
}

// armDebounceLocked arms the debounce timer. A callback that lost the
// race with Stop sees a different timer and does nothing.
func (s *Scheduler) armDebounceLocked() {
	var t *time.Timer
	t = time.AfterFunc(s.cfg.FlushInterval, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.debounce != t {
			return
		}
		s.debounce = nil
		if s.closed || s.backoff != nil {
			return
		}
		s.startDrainLocked(types.IntentTimer)
	})
	s.debounce = t
}

func (s *Scheduler) armBackoffLocked(delay time.Duration) {
	s.stopBackoffLocked()
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.backoff != t {
			return
		}
		s.backoff = nil
		if s.closed {
			return
		}
		s.startDrainLocked(types.IntentRetry)
	})
	s.backoff = t
}

// startDrainLocked returns the in-flight drain, starting one if needed.
func (s *Scheduler) startDrainLocked(intent types.Intent) *drainCall {
	if s.inflight != nil {
		return s.inflight
	}
	s.stopDebounceLocked()

	call := &drainCall{done: make(chan struct{})}
	if s.queue.Len() == 0 {
		close(call.done)
		return call
	}

	s.inflight = call
	s.wg.Add(1)
	go s.drain(call, intent)
	return call
}

// drain delivers batches until the queue is empty or a retry is scheduled.
func (s *Scheduler) drain(call *drainCall, intent types.Intent) {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		if s.queue.Len() == 0 {
			s.finishLocked(call)
			s.mu.Unlock()
			return
		}
		batch := s.queue.Take(s.cfg.BatchSize)
		gen := s.generation
		s.gaugeQueueLocked()
		s.mu.Unlock()

		start := time.Now()
		accepted, err := s.cfg.Sender.Send(s.ctx, batch, intent)
		result := BatchResult{
			Intent:     intent,
			EventCount: len(batch),
			Accepted:   accepted,
			Duration:   time.Since(start),
			Err:        err,
		}

		s.mu.Lock()
		stop := s.handleResultLocked(call, batch, gen, &result)
		if stop {
			s.finishLocked(call)
		}
		s.mu.Unlock()

		s.report(result)
		if stop {
			return
		}
		intent = types.IntentContinuation
	}
}

// handleResultLocked applies one delivery outcome and reports whether the
// drain must stop.
func (s *Scheduler) handleResultLocked(call *drainCall, batch []types.Event, gen uint64, result *BatchResult) bool {
	err := result.Err
	if err == nil {
		call.res.Accepted += result.Accepted
		if gen == s.generation {
			s.retries = 0
		}
		return false
	}

	if gen != s.generation {
		// Events from before a reset are never requeued.
		result.Dropped = true
		return false
	}

	if !pkgerrors.IsRetryable(err) {
		result.Dropped = true
		s.retries = 0
		if call.res.Err == nil {
			call.res.Err = err
		}
		return false
	}

	s.retries++
	if s.retries > s.cfg.MaxRetries {
		result.Dropped = true
		s.retries = 0
		s.debug("batch dropped after max retries", "events", len(batch), "max_retries", s.cfg.MaxRetries)
		return false
	}

	if evicted := s.queue.PushFront(batch); evicted > 0 {
		s.counter("weblytics.queue.evicted", int64(evicted))
	}
	s.gaugeQueueLocked()
	result.Requeued = true
	if call.res.Err == nil {
		call.res.Err = err
	}
	if s.closed {
		return true
	}

	delay := s.cfg.Backoff.Delay(s.retries)
	s.armBackoffLocked(delay)
	s.counter("weblytics.retry.scheduled", 1)
	s.debug("batch requeued for retry", "attempt", s.retries, "delay", delay.String())
	return true
}

func (s *Scheduler) finishLocked(call *drainCall) {
	if s.inflight == call {
		s.inflight = nil
	}
	if call.res.Err != nil && call.waiters == 0 && s.cfg.OnError != nil {
		// Run outside the lock; handlers may call back into the scheduler.
		err := call.res.Err
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.cfg.OnError(err)
		}()
	}
	close(call.done)
}

func (s *Scheduler) report(r BatchResult) {
	if m := s.cfg.Metrics; m != nil {
		m.RecordDuration("weblytics.batch.duration", r.Duration)
		switch {
		case r.Err == nil:
			m.IncrementCounter("weblytics.batch.sent", 1)
			m.IncrementCounter("weblytics.events.accepted", int64(r.Accepted))
		case r.Dropped:
			m.IncrementCounter("weblytics.batch.failed", 1)
			m.IncrementCounter("weblytics.batch.dropped", 1)
		default:
			m.IncrementCounter("weblytics.batch.failed", 1)
		}
	}
	if r.Err != nil && !r.Requeued && !pkgerrors.IsRetryable(r.Err) {
		s.logError("batch rejected", "events", r.EventCount, "error", r.Err)
	}
	if s.cfg.OnBatchFlushed != nil {
		s.cfg.OnBatchFlushed(r)
	}
}

func (s *Scheduler) stopDebounceLocked() {
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
}

func (s *Scheduler) stopBackoffLocked() {
	if s.backoff != nil {
		s.backoff.Stop()
		s.backoff = nil
	}
}

func (s *Scheduler) gaugeQueueLocked() {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SetGauge("weblytics.queue.size", float64(s.queue.Len()))
	}
}

func (s *Scheduler) counter(name string, v int64) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.IncrementCounter(name, v)
	}
}

func (s *Scheduler) debug(msg string, args ...any) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Debug(msg, args...)
	}
}

func (s *Scheduler) warn(msg string, args ...any) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Warn(msg, args...)
	}
}

func (s *Scheduler) logError(msg string, args ...any) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Error(msg, args...)
	}
}
