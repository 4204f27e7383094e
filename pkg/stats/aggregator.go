package stats

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pipesight/pipesight/pkg/log"
	"github.com/pipesight/pipesight/pkg/metrics"
	"github.com/pipesight/pipesight/pkg/storage"
	"github.com/pipesight/pipesight/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultStalenessWindow is how long a run may sit without a terminal
// Overall event before it is reported as orphaned
const DefaultStalenessWindow = 24 * time.Hour

// Aggregator computes rolling statistics by scanning the durable log
// store. It is a pure read path: it never writes, never locks out
// ingestion, and produces identical output for an unchanged log set.
type Aggregator struct {
	store     storage.Store
	staleness time.Duration
	logger    zerolog.Logger

	// Dropped reports the ingestion queue's backpressure losses so the
	// report can surface them; nil means zero.
	Dropped func() uint64
}

// NewAggregator creates a stats aggregator over the given store
func NewAggregator(store storage.Store, staleness time.Duration) *Aggregator {
	if staleness <= 0 {
		staleness = DefaultStalenessWindow
	}
	return &Aggregator{
		store:     store,
		staleness: staleness,
		logger:    log.WithComponent("stats"),
	}
}

// runScan is what one pipeline's record sequence reduces to
type runScan struct {
	kind           types.Kind
	firstSeen      time.Time
	lastSeen       time.Time
	terminalStatus types.Status
	terminalAt     time.Time
	processingMS   float64
}

// Compute scans every pipeline sequence once and aggregates counts and
// averages relative to now. Malformed records are skipped and counted,
// never fatal.
func (a *Aggregator) Compute(now time.Time) (*types.StatsReport, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.StatsScanDuration)

	ids, err := a.store.ListPipelineIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline ids: %w", err)
	}

	report := &types.StatsReport{GeneratedAt: now}
	if a.Dropped != nil {
		report.DroppedEvents = a.Dropped()
	}

	cutoff24h := now.Add(-24 * time.Hour)
	cutoff7d := now.Add(-7 * 24 * time.Hour)
	staleBefore := now.Add(-a.staleness)

	var docTimes, queryTimes []float64

	for _, id := range ids {
		records, err := a.store.ReadAllRaw(id)
		if err != nil {
			// One unreadable sequence must not abort the whole scan
			a.logger.Error().Err(err).Str("pipeline_id", id).Msg("failed to read sequence, skipping")
			continue
		}

		scan := a.scanRecords(id, records, report, cutoff24h, cutoff7d)
		if scan == nil {
			continue // nothing decodable for this id
		}

		ks := &report.Queries
		times := &queryTimes
		if scan.kind == types.KindDocument {
			ks = &report.Documents
			times = &docTimes
		}

		ks.Total++

		// Completed runs bucket by the terminal event's own timestamp so
		// reprocessed runs land in the window they actually finished in;
		// in-progress runs bucket by first observation.
		bucketAt := scan.firstSeen
		if scan.terminalStatus != "" {
			bucketAt = scan.terminalAt
		}
		if bucketAt.After(cutoff24h) {
			ks.Last24h++
		}
		if bucketAt.After(cutoff7d) {
			ks.Last7d++
		}

		switch scan.terminalStatus {
		case types.StatusSuccess:
			ks.Succeeded++
			if scan.processingMS > 0 {
				*times = append(*times, scan.processingMS)
			}
		case types.StatusError:
			ks.Failed++
		default:
			if !scan.lastSeen.IsZero() && scan.lastSeen.Before(staleBefore) {
				report.OrphanedRuns = append(report.OrphanedRuns, id)
			}
		}
	}

	report.Documents.AvgProcessingTimeMS = average(docTimes)
	report.Queries.AvgProcessingTimeMS = average(queryTimes)
	sort.Strings(report.OrphanedRuns)

	return report, nil
}

// scanRecords reduces one pipeline's raw record sequence. Error events
// are counted per-event into the report as they are seen; run-level
// classification keeps only the most recent terminal Overall event so a
// reprocessed run contributes a single success/failure.
func (a *Aggregator) scanRecords(id string, records [][]byte, report *types.StatsReport, cutoff24h, cutoff7d time.Time) *runScan {
	var scan *runScan

	for _, raw := range records {
		var event types.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			report.MalformedRecords++
			metrics.MalformedRecords.Inc()
			continue
		}
		if event.Timestamp.IsZero() {
			report.MalformedRecords++
			metrics.MalformedRecords.Inc()
			continue
		}

		if scan == nil {
			// Classify the run by its first decodable event
			scan = &runScan{kind: event.Kind, firstSeen: event.Timestamp}
		}
		if event.Timestamp.After(scan.lastSeen) {
			scan.lastSeen = event.Timestamp
		}

		// Errors count per-event at any stage, not only terminal
		if event.Data.Status == types.StatusError {
			errs := &report.Queries.Errors
			if scan.kind == types.KindDocument {
				errs = &report.Documents.Errors
			}
			errs.Total++
			if event.Timestamp.After(cutoff24h) {
				errs.Last24h++
			}
			if event.Timestamp.After(cutoff7d) {
				errs.Last7d++
			}
		}

		// Latest terminal Overall event wins the run classification
		if event.Stage == types.StageOverall && event.Data.Status.Terminal() {
			scan.terminalStatus = event.Data.Status
			scan.terminalAt = event.Timestamp
			scan.processingMS = event.Data.Metrics[types.MetricTotalProcessingTime]
		}
	}

	return scan
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
