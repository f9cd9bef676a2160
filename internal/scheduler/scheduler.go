// Package scheduler drives the polling loop: ingest, detect, publish,
// sleep. It is the single writer of persisted history and of the
// opportunity cache.
package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"ge-market-watch/internal/catalog"
	"ge-market-watch/internal/detector"
	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/ingestion"
	"ge-market-watch/internal/observability"
	"ge-market-watch/internal/opcache"
	"ge-market-watch/internal/stream"
)

// Backoff parameters. A short sleep follows every failed cycle; after
// MaxConsecutiveFailures in a row the loop takes one long cooldown and the
// counter starts over, so a persistent outage never becomes a tight loop.
const (
	DefaultInterval        = 5 * time.Minute
	FailureRetryDelay      = 2 * time.Second
	CooldownDelay          = 60 * time.Second
	MaxConsecutiveFailures = 10

	// DefaultCatalogRefreshEvery refreshes item metadata once per this
	// many cycles.
	DefaultCatalogRefreshEvery = 12
)

// Scheduler owns the cycle loop state: idle between cycles, running
// otherwise, looping until the context is cancelled.
type Scheduler struct {
	manager  *ingestion.Manager
	detector detector.Detector
	cache    *opcache.Cache
	catalog  *catalog.Cache
	source   ingestion.CatalogSource
	hub      *stream.Hub
	metrics  *observability.Metrics
	logger   *log.Logger

	interval            time.Duration
	catalogRefreshEvery int

	consecutiveFailures int
	cycles              int

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// Options configures New. Manager, Detector and Cache are required; the
// rest default or stay disabled when nil.
type Options struct {
	Manager  *ingestion.Manager
	Detector detector.Detector
	Cache    *opcache.Cache

	// Catalog and CatalogSource enable periodic metadata refresh.
	Catalog       *catalog.Cache
	CatalogSource ingestion.CatalogSource

	// Hub, when set, receives every published cycle.
	Hub *stream.Hub

	Metrics *observability.Metrics
	Logger  *log.Logger

	Interval            time.Duration
	CatalogRefreshEvery int
}

func New(opts Options) (*Scheduler, error) {
	if opts.Manager == nil {
		return nil, errors.New("scheduler: ingestion manager is required")
	}
	if opts.Detector == nil {
		return nil, errors.New("scheduler: detector is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("scheduler: opportunity cache is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	refreshEvery := opts.CatalogRefreshEvery
	if refreshEvery <= 0 {
		refreshEvery = DefaultCatalogRefreshEvery
	}
	return &Scheduler{
		manager:             opts.Manager,
		detector:            opts.Detector,
		cache:               opts.Cache,
		catalog:             opts.Catalog,
		source:              opts.CatalogSource,
		hub:                 opts.Hub,
		metrics:             metrics,
		logger:              logger,
		interval:            interval,
		catalogRefreshEvery: refreshEvery,
		sleep:               sleepCtx,
		now:                 time.Now,
	}, nil
}

// Run loops until ctx is cancelled. A cycle in flight completes before a
// cancellation is observed; the sleeps between cycles are all cancellable.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Printf("[scheduler] starting: detector=%s interval=%s", s.detector.Name(), s.interval)

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Printf("[scheduler] stopping: %v", err)
			return err
		}

		start := s.now()
		err := s.runCycle(ctx)
		elapsed := s.now().Sub(start)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.Printf("[scheduler] stopping: %v", err)
				return err
			}
			s.consecutiveFailures++
			s.metrics.ConsecutiveFailures.Set(float64(s.consecutiveFailures))
			s.metrics.RecordCycle("failure", elapsed.Seconds())
			s.logger.Printf("[scheduler] cycle failed (consecutive=%d): %v", s.consecutiveFailures, err)

			delay := FailureRetryDelay
			if s.consecutiveFailures >= MaxConsecutiveFailures {
				s.logger.Printf("[scheduler] %d consecutive failures, cooling down for %s",
					s.consecutiveFailures, CooldownDelay)
				s.metrics.CooldownsTotal.Inc()
				s.consecutiveFailures = 0
				s.metrics.ConsecutiveFailures.Set(0)
				delay = CooldownDelay
			}
			if err := s.sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}

		s.consecutiveFailures = 0
		s.metrics.ConsecutiveFailures.Set(0)
		s.metrics.LastSuccessfulCycle.Set(float64(s.now().Unix()))
		s.metrics.RecordCycle("success", elapsed.Seconds())

		if err := s.sleep(ctx, s.interval); err != nil {
			return err
		}
	}
}

// RunOnce executes a single cycle. Used by the one-shot scan command.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runCycle(ctx)
}

func (s *Scheduler) runCycle(ctx context.Context) error {
	s.cycles++

	// Sampled once per cycle; the age keeps growing across failed cycles
	// and drops back to zero on the replace below.
	if generatedAt := s.cache.GeneratedAt(); !generatedAt.IsZero() {
		s.metrics.CacheAgeSeconds.Set(s.now().Sub(generatedAt).Seconds())
	}

	s.maybeRefreshCatalog(ctx)

	snapshots, err := s.manager.Ingest(ctx)
	if err != nil {
		return err
	}

	result, err := s.detector.Detect(ctx, detector.CycleData{
		Snapshots:   snapshots,
		Granularity: s.manager.Granularity(),
	})
	if err != nil {
		return err
	}

	s.cache.Replace(result.Opportunities, result.Report)
	s.publishMetrics(result)

	if s.hub != nil {
		s.hub.Publish(stream.CycleMessage{
			Type:          "cycle",
			GeneratedAt:   result.GeneratedAt,
			Opportunities: result.Opportunities,
			Report:        result.Report,
		})
		s.metrics.StreamSubscribers.Set(float64(s.hub.SubscriberCount()))
	}
	return nil
}

// maybeRefreshCatalog reloads item metadata on the first cycle and then
// every catalogRefreshEvery cycles. A refresh failure is non-fatal once a
// catalog exists; with an empty catalog nothing can be scored, so the error
// is logged either way and the cycle proceeds on whatever is cached.
func (s *Scheduler) maybeRefreshCatalog(ctx context.Context) {
	if s.catalog == nil || s.source == nil {
		return
	}
	if s.cycles != 1 && (s.cycles-1)%s.catalogRefreshEvery != 0 {
		return
	}
	items, err := s.source.FetchCatalog(ctx)
	if err != nil {
		s.logger.Printf("[scheduler] catalog refresh failed (cached=%d): %v", s.catalog.Len(), err)
		return
	}
	s.catalog.Replace(items)
	s.metrics.CatalogSize.Set(float64(s.catalog.Len()))
	s.logger.Printf("[scheduler] catalog refreshed: %d items", s.catalog.Len())
}

func (s *Scheduler) publishMetrics(result *detector.Result) {
	s.metrics.ItemsScanned.Add(float64(result.Scanned))
	s.metrics.ItemsSkipped.Add(float64(result.Skipped))
	s.metrics.OpportunitiesFound.Set(float64(len(result.Opportunities)))

	super := 0
	groups := map[string]int{}
	for _, o := range result.Opportunities {
		if o.HasFlag(domain.FlagSuper) {
			super++
		}
		groups[string(o.Tier.Group)]++
	}
	s.metrics.SuperOpportunities.Set(float64(super))
	for group, n := range groups {
		s.metrics.OpportunitiesByGroup.WithLabelValues(group).Set(float64(n))
	}
	s.metrics.CacheAgeSeconds.Set(0)
}

// sleepCtx blocks for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
