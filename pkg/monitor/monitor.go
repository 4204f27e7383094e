package monitor

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pipesight/pipesight/pkg/config"
	"github.com/pipesight/pipesight/pkg/hub"
	"github.com/pipesight/pipesight/pkg/ingest"
	"github.com/pipesight/pipesight/pkg/log"
	"github.com/pipesight/pipesight/pkg/metrics"
	"github.com/pipesight/pipesight/pkg/state"
	"github.com/pipesight/pipesight/pkg/stats"
	"github.com/pipesight/pipesight/pkg/storage"
	"github.com/pipesight/pipesight/pkg/types"
	"github.com/rs/zerolog"
)

// Monitor owns the full event monitoring pipeline: ingestion queue,
// durable log store, state cache, stats aggregator, and broadcast hub.
// It is constructed explicitly and passed to whatever needs to emit or
// read events; its lifecycle belongs to the owning process, not to
// package initialization.
type Monitor struct {
	store storage.Store
	cache *state.Cache
	queue *ingest.Queue
	hub   *hub.Hub
	agg   *stats.Aggregator

	logger zerolog.Logger

	mu      sync.Mutex
	started bool
}

// New builds a monitor from configuration, opening the durable store
func New(cfg *config.Config) (*Monitor, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log store: %w", err)
	}

	cache := state.NewCache()

	h := hub.NewHub(cache, hub.Config{
		ClientBuffer:      cfg.ClientBuffer,
		HeartbeatInterval: cfg.HeartbeatInterval,
		HeartbeatMisses:   cfg.HeartbeatMisses,
	})

	queue := ingest.NewQueue(store, cache, ingest.Config{
		Capacity: cfg.QueueCapacity,
		Publish:  h.Publish,
	})

	agg := stats.NewAggregator(store, cfg.StalenessWindow)
	agg.Dropped = queue.Dropped

	return &Monitor{
		store:  store,
		cache:  cache,
		queue:  queue,
		hub:    h,
		agg:    agg,
		logger: log.WithComponent("monitor"),
	}, nil
}

// Start recovers the state cache from the durable log and launches the
// background consumer and the broadcast hub.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("monitor already started")
	}

	if err := m.recover(); err != nil {
		return fmt.Errorf("failed to recover state cache: %w", err)
	}

	m.hub.Start()
	m.queue.Start()
	m.started = true

	metrics.RegisterComponent("store", true, "")
	metrics.RegisterComponent("ingest", true, "")
	metrics.RegisterComponent("hub", true, "")

	m.logger.Info().Int("pipelines", m.cache.Len()).Msg("monitor started")
	return nil
}

// Stop drains the ingestion queue, disconnects clients, and closes the
// store. Safe to call once after Start.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	m.started = false

	m.queue.Stop()
	m.hub.Stop()

	metrics.UpdateComponent("ingest", false, "stopped")
	metrics.UpdateComponent("hub", false, "stopped")

	if err := m.store.Close(); err != nil {
		return fmt.Errorf("failed to close event log store: %w", err)
	}
	metrics.UpdateComponent("store", false, "stopped")

	m.logger.Info().Msg("monitor stopped")
	return nil
}

// recover replays every durable sequence into the cold cache. The cache
// is a pure fold of the log, so this reproduces the pre-restart view.
func (m *Monitor) recover() error {
	ids, err := m.store.ListPipelineIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		events, err := m.store.ReadAll(id)
		if err != nil {
			m.logger.Error().Err(err).Str("pipeline_id", id).Msg("failed to replay sequence, skipping")
			continue
		}
		m.cache.Replay(events)
	}
	return nil
}

// RecordEvent is the fire-and-forget producer boundary. Workers call it
// from their processing paths; it never blocks and never returns an
// error, because monitoring must not become a critical-path dependency
// of the thing it monitors. Invalid events are logged and discarded.
func (m *Monitor) RecordEvent(pipelineID string, kind types.Kind, stage string, status types.Status, metricValues map[string]float64, errorMessage string) {
	event := &types.Event{
		PipelineID: pipelineID,
		Kind:       kind,
		Stage:      stage,
		Timestamp:  time.Now().UTC(),
		Data: types.EventData{
			Status:       status,
			Metrics:      metricValues,
			ErrorMessage: errorMessage,
		},
	}
	m.Submit(event)
}

// Submit validates and enqueues a fully-formed event
func (m *Monitor) Submit(event *types.Event) {
	if err := event.Validate(); err != nil {
		m.logger.Warn().Err(err).Msg("discarding invalid event")
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	m.queue.Submit(event)
}

// Store exposes the durable log for the historical read path
func (m *Monitor) Store() storage.Store {
	return m.store
}

// Cache exposes the live state projection
func (m *Monitor) Cache() *state.Cache {
	return m.cache
}

// Hub exposes the broadcast hub for the streaming surface
func (m *Monitor) Hub() *hub.Hub {
	return m.hub
}

// Stats exposes the aggregator for the stats surface
func (m *Monitor) Stats() *stats.Aggregator {
	return m.agg
}

// Dropped reports events lost to ingestion backpressure
func (m *Monitor) Dropped() uint64 {
	return m.queue.Dropped()
}
