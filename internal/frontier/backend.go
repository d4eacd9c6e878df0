package frontier

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// OrchestratorConfig holds the consumer-side knobs of the backend facade.
type OrchestratorConfig struct {
	// ConsumerSlot is the single partition this process consumes from.
	ConsumerSlot string
	// MaxIterations caps consumption rounds; 0 means unbounded.
	MaxIterations int
}

// Backend is the facade the crawl controller talks to. It composes the
// queue adapter, the state store and the in-memory metadata component,
// enforces the iteration cap and maintains the queue-size counter.
type Backend struct {
	metadata Metadata
	queue    *Queue
	states   *States
	cfg      OrchestratorConfig

	iteration int
	queueSize int
	logger    *zap.Logger
}

// NewBackend wires the composed components together.
func NewBackend(queue *Queue, states *States, metadata Metadata, cfg OrchestratorConfig, logger *zap.Logger) *Backend {
	return &Backend{
		metadata: metadata,
		queue:    queue,
		states:   states,
		cfg:      cfg,
		logger:   logger,
	}
}

// Queue exposes the queue adapter.
func (b *Backend) Queue() *Queue { return b.queue }

// States exposes the state store.
func (b *Backend) States() *States { return b.states }

// QueueSize returns the current local estimate of scheduled-minus-consumed
// entries.
func (b *Backend) QueueSize() int { return b.queueSize }

// FrontierStart begins a session. Kept for interface symmetry with
// FrontierStop; construction already validated the remote side.
func (b *Backend) FrontierStart() {}

// FrontierStop flushes all pending state and queue writes, then releases
// both remote sessions. Skipping this loses buffered-but-unflushed data.
func (b *Backend) FrontierStop(ctx context.Context) error {
	b.logger.Debug("frontier stop")
	if _, err := b.states.Flush(ctx, false); err != nil {
		return err
	}
	if err := b.states.Close(); err != nil {
		return fmt.Errorf("close states: %w", err)
	}
	if err := b.queue.Close(ctx); err != nil {
		return fmt.Errorf("close queue: %w", err)
	}
	return nil
}

// Finished reports whether this consumer should stop: the iteration cap
// is exceeded, or (when uncapped) the local queue estimate has drained.
func (b *Backend) Finished() bool {
	if b.cfg.MaxIterations > 0 {
		return b.iteration > b.cfg.MaxIterations
	}
	return b.queueSize <= 0
}

// GetNextRequests consumes one round from the configured slot.
func (b *Backend) GetNextRequests(ctx context.Context, maxCount int) []*Request {
	b.iteration++
	batch := b.queue.GetNextRequests(ctx, maxCount, b.cfg.ConsumerSlot)
	b.queueSize -= len(batch)
	return batch
}

// AddSeeds fetches state for the seed fingerprints and schedules every
// seed not yet queued or crawled.
func (b *Backend) AddSeeds(ctx context.Context, seeds []*Request) error {
	b.metadata.AddSeeds(seeds)
	if _, err := b.states.Fetch(ctx, fingerprints(seeds)); err != nil {
		return err
	}
	b.states.SetStates(seeds)
	return b.schedule(ctx, seeds)
}

// PageCrawled marks the response's fingerprint crawled.
func (b *Backend) PageCrawled(response *Request) {
	response.Meta[MetaState] = StateCrawled
	b.states.UpdateCache([]*Request{response})
	b.metadata.PageCrawled(response)
}

// RequestError marks the request's fingerprint errored.
func (b *Backend) RequestError(request *Request, errText string) {
	request.Meta[MetaState] = StateError
	b.states.UpdateCache([]*Request{request})
	b.metadata.RequestError(request, errText)
}

// LinksExtracted fetches state for newly discovered links and schedules
// the ones not yet seen.
func (b *Backend) LinksExtracted(ctx context.Context, request *Request, links []*Request) error {
	b.metadata.LinksExtracted(request, links)
	if _, err := b.states.Fetch(ctx, fingerprints(links)); err != nil {
		return err
	}
	b.states.SetStates(links)
	return b.schedule(ctx, links)
}

// schedule queues requests whose state allows it and marks them queued.
func (b *Backend) schedule(ctx context.Context, requests []*Request) error {
	items := make([]ScheduleItem, 0, len(requests))
	scheduled := make([]*Request, 0, len(requests))
	for _, r := range requests {
		state, _ := r.Meta[MetaState].(string)
		ok := state != StateQueued && state != StateCrawled
		items = append(items, ScheduleItem{Score: 1.0, Request: r, Schedule: ok})
		if ok {
			r.Meta[MetaState] = StateQueued
			scheduled = append(scheduled, r)
		}
	}
	if err := b.queue.Schedule(ctx, items); err != nil {
		return err
	}
	b.states.UpdateCache(scheduled)
	b.queueSize += len(scheduled)
	return nil
}

func fingerprints(requests []*Request) []string {
	out := make([]string, 0, len(requests))
	for _, r := range requests {
		if fp := r.Fingerprint(); fp != "" {
			out = append(out, fp)
		}
	}
	return out
}
