package weblytics

import (
	"context"
	"sync"

	"github.com/jdziat/weblytics-go/pkg/attribution"
	"github.com/jdziat/weblytics-go/pkg/enrich"
	"github.com/jdziat/weblytics-go/pkg/identity"
	"github.com/jdziat/weblytics-go/pkg/platform"
	"github.com/jdziat/weblytics-go/pkg/queue"
	"github.com/jdziat/weblytics-go/pkg/transport"
	"github.com/jdziat/weblytics-go/pkg/types"
)

// deliveryStrategy is chosen once at construction. The buffered strategy
// owns identity, attribution and the queue; the direct strategy sends
// every call straight to the API.
type deliveryStrategy interface {
	track(ctx context.Context, ev Event) (TrackResult, error)
	trackBatch(ctx context.Context, events []Event) (TrackResult, error)
	identify(ctx context.Context, params IdentifyParams) (IdentifyResult, error)
	flush(ctx context.Context) (int, error)
	reset()
	close(ctx context.Context) error

	deviceID() string
	userID() string
	sessionID() string
	attribution() AttributionState
	queueStats() queue.Stats
	headers() map[string]string
}

// directStrategy is used on servers: no identity, no queue.
type directStrategy struct {
	transport *transport.HTTP
	enricher  *enrich.Enricher
	metrics   Metrics
}

func newDirectStrategy(t *transport.HTTP, metrics Metrics) *directStrategy {
	return &directStrategy{
		transport: t,
		enricher:  enrich.NewServer(),
		metrics:   metrics,
	}
}

func (d *directStrategy) track(ctx context.Context, ev Event) (TrackResult, error) {
	accepted, err := d.transport.TrackOne(ctx, d.enricher.Enrich(ev))
	if err != nil {
		return TrackResult{}, err
	}
	d.accepted(accepted)
	return TrackResult{Accepted: accepted}, nil
}

func (d *directStrategy) trackBatch(ctx context.Context, events []Event) (TrackResult, error) {
	accepted, err := d.transport.TrackBatch(ctx, d.enricher.EnrichAll(events), false)
	if err != nil {
		return TrackResult{}, err
	}
	d.accepted(accepted)
	return TrackResult{Accepted: accepted}, nil
}

func (d *directStrategy) identify(ctx context.Context, params IdentifyParams) (IdentifyResult, error) {
	resp, err := d.transport.Identify(ctx, params)
	if err != nil {
		return IdentifyResult{}, err
	}
	return IdentifyResult{OK: resp.OK}, nil
}

func (d *directStrategy) flush(context.Context) (int, error) { return 0, nil }
func (d *directStrategy) reset()                            {}
func (d *directStrategy) close(context.Context) error       { return nil }

func (d *directStrategy) deviceID() string              { return "" }
func (d *directStrategy) userID() string                { return "" }
func (d *directStrategy) sessionID() string             { return "" }
func (d *directStrategy) attribution() AttributionState { return AttributionState{} }
func (d *directStrategy) queueStats() queue.Stats       { return queue.Stats{} }
func (d *directStrategy) headers() map[string]string    { return nil }

func (d *directStrategy) accepted(n int) {
	if d.metrics != nil {
		d.metrics.IncrementCounter("weblytics.events.accepted", int64(n))
	}
}

// bufferedStrategy is used in a browser, or natively with a storage path.
type bufferedStrategy struct {
	transport   *transport.HTTP
	identity    *identity.Store
	attr        *attribution.Tracker
	enricher    *enrich.Enricher
	scheduler   *queue.Scheduler
	unsubscribe func()

	// mu orders enrichment and enqueueing against reset, so an event is
	// never enriched with an identity that reset has already replaced.
	mu sync.Mutex
}

type bufferedConfig struct {
	env       platform.Environment
	transport *transport.HTTP
	config    *Config
	onError   func(error)
}

func newBufferedStrategy(bc bufferedConfig) *bufferedStrategy {
	cfg := bc.config
	b := &bufferedStrategy{transport: bc.transport}

	b.identity = identity.New(identity.Config{
		Durable:        bc.env.Durable,
		Session:        bc.env.Session,
		SessionTimeout: cfg.SessionTimeout,
		Metrics:        cfg.Metrics,
	})
	b.attr = attribution.New(bc.env.Session, bc.env.CurrentURL)
	b.attr.Capture()
	b.enricher = enrich.NewBrowser(b.identity, bc.env)

	b.scheduler = queue.NewScheduler(queue.Config{
		Sender:        bc.transport,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		Capacity:      cfg.QueueCapacity,
		MaxRetries:    cfg.MaxRetries,
		Backoff: queue.Backoff{
			BaseDelay: cfg.RetryBaseDelay,
			MaxDelay:  cfg.MaxRetryDelay,
			MaxJitter: cfg.MaxJitter,
		},
		Logger:         cfg.StructuredLogger,
		Metrics:        cfg.Metrics,
		OnError:        bc.onError,
		OnBatchFlushed: cfg.OnBatchFlushed,
	})

	b.unsubscribe = bc.env.Lifecycle.Subscribe(b.onLifecycle)
	return b
}

// onLifecycle runs on the page's event loop and must not block.
func (b *bufferedStrategy) onLifecycle(sig platform.Signal) {
	switch sig {
	case platform.SignalHidden:
		b.scheduler.Trigger(types.IntentVisibilityHidden)
	case platform.SignalUnload:
		b.scheduler.Trigger(types.IntentPageUnload)
	}
}

func (b *bufferedStrategy) track(_ context.Context, ev Event) (TrackResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.attr.Capture()
	if !b.scheduler.Enqueue(b.enricher.Enrich(ev)) {
		return TrackResult{}, ErrClientClosed
	}
	return TrackResult{Accepted: 1, Pending: true}, nil
}

func (b *bufferedStrategy) trackBatch(ctx context.Context, events []Event) (TrackResult, error) {
	b.mu.Lock()
	b.attr.Capture()
	enriched := b.enricher.EnrichAll(events)
	b.mu.Unlock()

	accepted, err := b.transport.TrackBatch(ctx, enriched, true)
	if err != nil {
		return TrackResult{}, err
	}
	return TrackResult{Accepted: accepted}, nil
}

func (b *bufferedStrategy) identify(ctx context.Context, params IdentifyParams) (IdentifyResult, error) {
	b.mu.Lock()
	b.attr.Capture()

	// The user id is stored before the request so events tracked while it
	// is in flight already carry it.
	b.identity.SetUserID(params.UserID)

	ops, added := b.attr.Merge(params.UserID, params.UserPropertyOps)
	params.UserPropertyOps = ops
	if params.DeviceID == "" {
		params.DeviceID = b.identity.DeviceID()
	}
	b.mu.Unlock()

	resp, err := b.transport.Identify(ctx, params)
	if err != nil {
		return IdentifyResult{}, err
	}
	if added {
		b.attr.MarkSynced(params.UserID)
	}
	return IdentifyResult{OK: resp.OK, AttributionSynced: added}, nil
}

func (b *bufferedStrategy) flush(ctx context.Context) (int, error) {
	res, err := b.scheduler.Flush(ctx)
	return res.Accepted, err
}

func (b *bufferedStrategy) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.scheduler.Reset()
	b.identity.Reset()
	b.attr.Clear()
}

func (b *bufferedStrategy) close(ctx context.Context) error {
	b.unsubscribe()
	return b.scheduler.Close(ctx)
}

func (b *bufferedStrategy) deviceID() string  { return b.identity.DeviceID() }
func (b *bufferedStrategy) userID() string    { return b.identity.UserID() }
func (b *bufferedStrategy) sessionID() string { return b.identity.SessionID() }

func (b *bufferedStrategy) attribution() AttributionState { return b.attr.Snapshot() }

func (b *bufferedStrategy) queueStats() queue.Stats { return b.scheduler.Stats() }

func (b *bufferedStrategy) headers() map[string]string {
	return map[string]string{
		transport.HeaderDeviceID:  b.identity.DeviceID(),
		transport.HeaderSessionID: b.identity.SessionID(),
	}
}
