package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stleox/seefaas/pkg/config"
	"github.com/stleox/seefaas/pkg/metrics"
	"github.com/stleox/seefaas/pkg/storage"
	"github.com/stleox/seefaas/pkg/tracer"
	"golang.org/x/sync/errgroup"
)

// Store is what a run needs from the record store.
type Store interface {
	tracer.ProfileFinder

	ListUnprocessed(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, key string) (*tracer.TraceRecord, error)
	MarkProcessed(ctx context.Context, recordID string) error
	PutTrace(ctx context.Context, t *tracer.Trace) error
	GetTrace(ctx context.Context, traceID string) (*tracer.Trace, error)
	PutProfile(ctx context.Context, p *tracer.Profile) error
}

// Summary describes one finished run.
type Summary struct {
	Listed      int
	FetchFailed int
	Restored    int
	Consumed    int
	Rejected    int
	Merges      int
	Duplicates  int
	Traces      int
	Rootless    int
	Profiles    int
	Processed   int
}

// Driver runs the whole post-processing pass over the backlog: fetch,
// merge, aggregate, persist. Olap and Exporter are optional.
type Driver struct {
	store    Store
	olap     *tracer.Olap
	exporter *tracer.Exporter
	workers  int
}

func NewDriver(store Store, olap *tracer.Olap, exporter *tracer.Exporter, workers int) *Driver {
	if workers <= 0 {
		workers = config.DefaultFetchWorkers
	}
	return &Driver{
		store:    store,
		olap:     olap,
		exporter: exporter,
		workers:  workers,
	}
}

// Run processes every record currently unprocessed. Only a failure to list
// the backlog is returned; everything else is logged and retried by the
// next run.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	defer func() {
		metrics.RunDuration.Observe(time.Since(start).Seconds())
	}()

	keys, err := d.store.ListUnprocessed(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("listing unprocessed records: %w", err)
	}
	summary := Summary{Listed: len(keys)}
	logrus.Infof("start processing %d unprocessed records", len(keys))

	// 拉取可以并发，合并必须按 key 的顺序逐条进行
	records := d.prefetch(ctx, keys)

	processor := tracer.NewProcessor()
	// 本次运行取到的 record_id，只有它们会被标记为已处理
	fetched := make(map[string]struct{}, len(records))
	lookedUp := make(map[string]struct{})
	for i, rec := range records {
		if rec == nil {
			summary.FetchFailed++
			continue
		}
		if d.restoreTrace(ctx, processor.TraceCache(), rec.TraceID(), lookedUp) {
			summary.Restored++
		}
		if err := processor.ConsumeRecord(rec); err != nil {
			entry := logrus.WithError(err).WithField("key", keys[i])
			if errors.Is(err, tracer.ErrMissingTracingContext) {
				metrics.RecordsRejected.WithLabelValues(metrics.ReasonTracingContext).Inc()
				entry.Warn("SeeFaaS couldn't process record, skipped")
				continue
			}
			entry.Error("SeeFaaS couldn't correlate record")
		}
		fetched[rec.RecordID()] = struct{}{}
	}

	stats := processor.Stats()
	summary.Consumed = stats.Consumed
	summary.Rejected = stats.Rejected
	summary.Merges = stats.Merges
	summary.Duplicates = stats.Duplicates
	metrics.Correlations.Add(float64(stats.Merges))
	metrics.DuplicateCorrelations.Add(float64(stats.Duplicates))

	inbound, outbound := processor.RequestCache().Pending()
	metrics.PendingRequests.WithLabelValues("inbound").Set(float64(inbound))
	metrics.PendingRequests.WithLabelValues("outbound").Set(float64(outbound))

	aggregator := tracer.NewAggregator(d.store)
	// records are marked only once the profile holding their trace is stored
	filed := make(map[*tracer.Profile][]*tracer.Trace)
	for _, t := range processor.Traces() {
		if t.Len() == 0 {
			continue
		}
		profile, err := d.flushTrace(ctx, aggregator, t)
		if errors.Is(err, tracer.ErrNoRootRecord) {
			summary.Rootless++
			metrics.TracesRootless.Inc()
			logrus.Debugf("trace %s has no root yet, left for the next run", t.TraceID)
			continue
		}
		if err != nil {
			logrus.WithError(err).WithField("trace_id", t.TraceID).Error("SeeFaaS couldn't persist trace")
			continue
		}
		summary.Traces++
		filed[profile] = append(filed[profile], t)
	}

	for _, profile := range aggregator.Profiles() {
		if err := d.store.PutProfile(ctx, profile); err != nil {
			logrus.WithError(err).WithField("profile_id", profile.ProfileID).Error("SeeFaaS couldn't persist profile, records left for the next run")
			continue
		}
		d.olap.InsertProfile(profile)
		summary.Profiles++
		metrics.ProfilesPersisted.Inc()

		for _, t := range filed[profile] {
			summary.Processed += d.markProcessed(ctx, t, fetched)
		}
	}
	d.olap.Flush()

	logrus.Infof("processed %d records into %d traces and %d profiles in %s",
		summary.Processed, summary.Traces, summary.Profiles, time.Since(start))
	return summary, nil
}

func (d *Driver) prefetch(ctx context.Context, keys []string) []*tracer.TraceRecord {
	records := make([]*tracer.TraceRecord, len(keys))

	var eg errgroup.Group
	eg.SetLimit(d.workers)
	for i, key := range keys {
		i, key := i, key
		eg.Go(func() error {
			rec, err := d.store.Fetch(ctx, key)
			if err != nil {
				metrics.RecordsRejected.WithLabelValues(metrics.ReasonFetch).Inc()
				logrus.WithError(err).WithField("key", key).Warn("SeeFaaS couldn't fetch record, left for the next run")
				return nil
			}
			metrics.RecordsFetched.Inc()
			records[i] = rec
			return nil
		})
	}
	_ = eg.Wait()
	return records
}

// restoreTrace seeds cache with the stored trace traceID, once per run and
// only if no record of this run created it yet.
func (d *Driver) restoreTrace(ctx context.Context, cache *tracer.TraceCache, traceID string, lookedUp map[string]struct{}) bool {
	if traceID == "" {
		return false
	}
	if _, hit := cache.Get(traceID); hit {
		return false
	}
	if _, hit := lookedUp[traceID]; hit {
		return false
	}
	lookedUp[traceID] = struct{}{}

	stored, err := d.store.GetTrace(ctx, traceID)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		logrus.WithError(err).WithField("trace_id", traceID).Warn("SeeFaaS couldn't load stored trace, starting a new one")
		return false
	}
	cache.Restore(stored)
	return true
}

// flushTrace persists t and files it into its profile.
func (d *Driver) flushTrace(ctx context.Context, aggregator *tracer.Aggregator, t *tracer.Trace) (*tracer.Profile, error) {
	if err := t.Seal(); err != nil {
		return nil, err
	}
	if err := d.store.PutTrace(ctx, t); err != nil {
		return nil, err
	}
	metrics.TracesPersisted.Inc()

	d.olap.InsertTrace(t)
	if err := d.exporter.Export(ctx, t); err != nil {
		logrus.WithError(err).WithField("trace_id", t.TraceID).Warn("SeeFaaS couldn't export trace")
	}

	profile, err := aggregator.Add(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("adding trace to profile: %w", err)
	}
	return profile, nil
}

// markProcessed marks the records of t fetched by this run. Records restored
// from an earlier run were marked back then. It returns how many were marked.
func (d *Driver) markProcessed(ctx context.Context, t *tracer.Trace, fetched map[string]struct{}) int {
	marked := 0
	for _, rec := range t.Records {
		if _, hit := fetched[rec.RecordID()]; !hit {
			continue
		}
		if err := d.store.MarkProcessed(ctx, rec.RecordID()); err != nil {
			logrus.WithError(err).WithField("record_id", rec.RecordID()).Warn("SeeFaaS couldn't mark record processed")
			continue
		}
		marked++
	}
	return marked
}
