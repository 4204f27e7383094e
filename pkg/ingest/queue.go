package ingest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pipesight/pipesight/pkg/log"
	"github.com/pipesight/pipesight/pkg/metrics"
	"github.com/pipesight/pipesight/pkg/state"
	"github.com/pipesight/pipesight/pkg/storage"
	"github.com/pipesight/pipesight/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultCapacity is the queue buffer size when none is configured
const DefaultCapacity = 1024

// drainTimeout bounds how long Stop waits for the consumer to finish
// flushing queued events during a clean shutdown
const drainTimeout = 5 * time.Second

// PublishFunc receives the delta produced by each fold. The broadcast
// hub plugs in here; a nil publish function disables broadcasting.
type PublishFunc func(*types.Delta)

// Queue decouples event producers from the persistence and broadcast
// consumer. Submit never blocks the caller: when the buffer is full the
// oldest queued event is dropped and counted. A single consumer
// goroutine drains the queue strictly in arrival order and forwards each
// event to the durable log store and the state cache before dequeuing
// the next.
type Queue struct {
	ch      chan *types.Event
	store   storage.Store
	cache   *state.Cache
	publish PublishFunc
	logger  zerolog.Logger

	dropped        atomic.Uint64
	appendFailures atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	// stopMu gates Submit against Stop: Stop takes the write lock before
	// the consumer's final drain, so every enqueue that slipped past the
	// stopped check has completed and will be drained, never stranded.
	stopMu  sync.RWMutex
	stopped bool
}

// Config holds queue configuration
type Config struct {
	// Capacity is the bounded buffer size; DefaultCapacity when zero
	Capacity int
	// Publish receives deltas after each fold; may be nil
	Publish PublishFunc
}

// NewQueue creates an ingestion queue in front of the given store and cache
func NewQueue(store storage.Store, cache *state.Cache, cfg Config) *Queue {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		ch:      make(chan *types.Event, capacity),
		store:   store,
		cache:   cache,
		publish: cfg.Publish,
		logger:  log.WithComponent("ingest"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the consumer goroutine
func (q *Queue) Start() {
	go q.run()
}

// Stop shuts the queue down, draining already-submitted events within a
// bounded window so a clean shutdown loses nothing silently. Events
// submitted after Stop are dropped and counted.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		// Wait out in-flight Submits; everything they enqueued is in the
		// buffer before the drain starts.
		q.stopMu.Lock()
		q.stopped = true
		q.stopMu.Unlock()

		close(q.stopCh)
		select {
		case <-q.doneCh:
		case <-time.After(drainTimeout):
			q.logger.Warn().Msg("ingest drain timed out, abandoning remaining events")
		}
	})
}

// Submit enqueues an event without blocking the caller. Monitoring must
// never slow down the worker being monitored: on a full buffer the oldest
// queued event is discarded to make room, and the drop is observable via
// the dropped-events counter.
func (q *Queue) Submit(event *types.Event) {
	q.stopMu.RLock()
	defer q.stopMu.RUnlock()

	if q.stopped {
		q.drop(event)
		return
	}

	metrics.EventsSubmitted.WithLabelValues(string(event.Kind)).Inc()

	select {
	case q.ch <- event:
		metrics.QueueDepth.Set(float64(len(q.ch)))
		return
	default:
	}

	// Full: evict the oldest queued event, then retry once
	select {
	case old := <-q.ch:
		q.drop(old)
	default:
	}

	select {
	case q.ch <- event:
	default:
		q.drop(event)
	}
	metrics.QueueDepth.Set(float64(len(q.ch)))
}

// Dropped returns the number of events lost to backpressure since start
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// AppendFailures returns the number of events that could not be written
// to the durable log (they were still folded into the live cache)
func (q *Queue) AppendFailures() uint64 {
	return q.appendFailures.Load()
}

func (q *Queue) drop(event *types.Event) {
	q.dropped.Add(1)
	metrics.EventsDropped.Inc()
	q.logger.Warn().
		Str("pipeline_id", event.PipelineID).
		Str("stage", event.Stage).
		Msg("event dropped under backpressure")
}

func (q *Queue) run() {
	defer close(q.doneCh)

	for {
		select {
		case event := <-q.ch:
			q.consume(event)
			metrics.QueueDepth.Set(float64(len(q.ch)))
		case <-q.stopCh:
			// Drain whatever was already queued, then halt
			for {
				select {
				case event := <-q.ch:
					q.consume(event)
				default:
					metrics.QueueDepth.Set(0)
					return
				}
			}
		}
	}
}

// consume persists one event, folds it into the cache, and publishes the
// resulting delta. Persistence failures are counted and logged but do
// not stop the fold: live dashboards stay current even when the disk is
// unhappy, at the cost of that event missing from durable history.
func (q *Queue) consume(event *types.Event) {
	if err := q.store.Append(event.PipelineID, event); err != nil {
		q.appendFailures.Add(1)
		metrics.StoreAppendFailures.Inc()
		q.logger.Error().
			Err(err).
			Str("pipeline_id", event.PipelineID).
			Str("stage", event.Stage).
			Msg("failed to append event to durable log")
	} else {
		metrics.StoreAppends.Inc()
	}

	delta := q.cache.Fold(event)
	metrics.EventsFolded.Inc()

	if q.publish != nil {
		q.publish(delta)
	}
}
