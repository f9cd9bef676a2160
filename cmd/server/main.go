// Package main runs the full market watch service:
// - Polling cycle (continuous): fetch snapshots, persist, detect, publish
// - Read API: cached opportunities, filters, item detail, hourly report
// - Streaming: websocket push of each completed cycle
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ge-market-watch/internal/catalog"
	"ge-market-watch/internal/config"
	"ge-market-watch/internal/detector"
	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/ge"
	"ge-market-watch/internal/ingestion"
	"ge-market-watch/internal/observability"
	"ge-market-watch/internal/opcache"
	"ge-market-watch/internal/scheduler"
	"ge-market-watch/internal/storage"
	chstore "ge-market-watch/internal/storage/clickhouse"
	"ge-market-watch/internal/storage/memory"
	"ge-market-watch/internal/storage/migrations"
	pgstore "ge-market-watch/internal/storage/postgres"
	"ge-market-watch/internal/stream"
)

// Server holds the read-side state shared between the cycle worker and the
// HTTP handlers.
type Server struct {
	cache   *opcache.Cache
	catalog *catalog.Cache
	history storage.HistoryStore
	hub     *stream.Hub
	logger  *log.Logger

	detectorMode string
	granularity  domain.Granularity
	started      time.Time
}

func main() {
	cfg := config.FromEnv()

	primaryURL := flag.String("primary-url", cfg.PrimaryURL, "Primary price source base URL")
	secondaryURL := flag.String("secondary-url", cfg.SecondaryURL, "Secondary (fallback) price source base URL")
	userAgent := flag.String("user-agent", cfg.UserAgent, "User-Agent sent to upstream sources")
	granularity := flag.String("granularity", cfg.Granularity, "Polling granularity (5m or 1h)")
	detectorMode := flag.String("detector", cfg.DetectorMode, "Detection strategy (scored or threshold)")
	pollInterval := flag.Duration("poll-interval", cfg.PollInterval, "Sleep between polling cycles")
	retention := flag.Duration("retention", cfg.Retention, "History retention horizon (0 uses the granularity default)")
	cacheTTL := flag.Duration("cache-ttl", cfg.CacheTTL, "Opportunity cache freshness window")
	storageBackend := flag.String("storage", cfg.Storage, "Storage backend (memory, postgres, clickhouse)")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	listenAddr := flag.String("listen-addr", cfg.ListenAddr, "Read API and websocket HTTP address")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics HTTP address")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg.PrimaryURL = *primaryURL
	cfg.SecondaryURL = *secondaryURL
	cfg.UserAgent = *userAgent
	cfg.Granularity = *granularity
	cfg.DetectorMode = *detectorMode
	cfg.PollInterval = *pollInterval
	cfg.Retention = *retention
	cfg.CacheTTL = *cacheTTL
	cfg.Storage = *storageBackend
	cfg.PostgresDSN = *postgresDSN
	cfg.ClickhouseDSN = *clickhouseDSN
	cfg.ListenAddr = *listenAddr
	cfg.MetricsAddr = *metricsAddr

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	gran := domain.Granularity(cfg.Granularity)
	historyStore, itemStore, cleanup, err := createStores(ctx, cfg, gran)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Upstream sources.
	primary := ge.NewClient(cfg.PrimaryURL,
		ge.WithUserAgent(cfg.UserAgent),
		ge.WithTimeout(cfg.FetchTimeout),
	)
	var source ingestion.SnapshotSource = primary
	if cfg.SecondaryURL != "" {
		secondary := ge.NewMirrorClient(cfg.SecondaryURL, ge.WithMirrorTimeout(cfg.FetchTimeout))
		source = ingestion.NewFallbackSource(primary, secondary, logger)
		logger.Printf("Fallback source configured: %s", cfg.SecondaryURL)
	}

	// Catalog: upstream first, persisted copy as the warm-start fallback.
	items := catalog.New()
	seedCatalog(ctx, items, primary, itemStore, logger)

	cache := opcache.New(cfg.CacheTTL)
	hub := stream.NewHub(logger)

	manager := ingestion.NewManager(ingestion.ManagerOptions{
		Source:      source,
		Store:       historyStore,
		Granularity: gran,
		Retention:   cfg.Retention,
		Logger:      logger,
	})

	det, err := detector.FromConfig(detector.FactoryConfig{
		Mode:          cfg.DetectorMode,
		History:       historyStore,
		Items:         items,
		Logger:        logger,
		WindowMinutes: detector.WindowForGranularity(gran),
	})
	if err != nil {
		logger.Fatalf("Failed to create detector: %v", err)
	}

	sched, err := scheduler.New(scheduler.Options{
		Manager:       manager,
		Detector:      det,
		Cache:         cache,
		Catalog:       items,
		CatalogSource: primary,
		Hub:           hub,
		Logger:        logger,
		Interval:      cfg.PollInterval,
	})
	if err != nil {
		logger.Fatalf("Failed to create scheduler: %v", err)
	}

	server := &Server{
		cache:        cache,
		catalog:      items,
		history:      historyStore,
		hub:          hub,
		logger:       logger,
		detectorMode: det.Name(),
		granularity:  gran,
		started:      time.Now(),
	}

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go server.startHTTPServer(cfg.ListenAddr)
	go startMetricsServer(cfg.MetricsAddr, logger)

	err = sched.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Scheduler error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores builds the history and item stores for the configured
// backend. The clickhouse backend keeps item metadata in memory; the
// catalog is re-fetched from upstream at startup anyway.
func createStores(ctx context.Context, cfg config.Config, gran domain.Granularity) (storage.HistoryStore, storage.ItemStore, func(), error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return pgstore.NewHistoryStore(pool, gran), pgstore.NewItemStore(pool), pool.Close, nil

	case config.StorageClickhouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		cleanup := func() { _ = conn.Close() }
		return chstore.NewHistoryStore(conn, gran), memory.NewItemStore(), cleanup, nil

	default:
		return memory.NewHistoryStore(gran), memory.NewItemStore(), func() {}, nil
	}
}

// seedCatalog fills the in-memory catalog at startup: upstream when
// reachable, otherwise the last persisted copy. A fresh upstream catalog is
// written back to the item store for the next cold start.
func seedCatalog(ctx context.Context, items *catalog.Cache, source ingestion.CatalogSource, store storage.ItemStore, logger *log.Logger) {
	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	fetched, err := source.FetchCatalog(fetchCtx)
	if err == nil {
		items.Replace(fetched)
		logger.Printf("Catalog loaded from upstream: %d items", items.Len())
		if err := store.UpsertAll(ctx, fetched); err != nil {
			logger.Printf("Persisting catalog failed: %v", err)
		}
		observability.DefaultMetrics.CatalogSize.Set(float64(items.Len()))
		return
	}
	logger.Printf("Upstream catalog fetch failed: %v", err)

	persisted, err := store.GetAll(ctx)
	if err != nil || len(persisted) == 0 {
		logger.Printf("No persisted catalog available; first cycle will retry the refresh")
		return
	}
	items.Replace(persisted)
	observability.DefaultMetrics.CatalogSize.Set(float64(items.Len()))
	logger.Printf("Catalog loaded from storage: %d items", items.Len())
}

// startHTTPServer serves the read API and the websocket stream.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/api/opportunities", s.handleOpportunities)
	mux.HandleFunc("/api/item", s.handleItem)
	mux.HandleFunc("/api/report", s.handleReport)
	mux.Handle("/ws", s.hub)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// startMetricsServer exposes Prometheus metrics on its own listener.
func startMetricsServer(addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())

	logger.Printf("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("Metrics server error: %v", err)
	}
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	generatedAt := s.cache.GeneratedAt()
	status := map[string]interface{}{
		"uptime_seconds":     int64(time.Since(s.started).Seconds()),
		"detector":           s.detectorMode,
		"granularity":        string(s.granularity),
		"catalog_items":      s.catalog.Len(),
		"opportunities":      s.cache.Len(),
		"stream_subscribers": s.hub.SubscriberCount(),
	}
	if !generatedAt.IsZero() {
		status["last_cycle_at"] = generatedAt.Unix()
	}
	writeJSON(w, http.StatusOK, status)
}

// handleOpportunities returns the cached list, optionally filtered by
// ?tier=, ?group= or ?flag=. A stale cache is still served, marked stale.
func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	var (
		list  []*domain.Opportunity
		fresh bool
	)
	switch {
	case r.URL.Query().Get("tier") != "":
		list, fresh = s.cache.GetByTier(r.URL.Query().Get("tier"))
	case r.URL.Query().Get("group") != "":
		list, fresh = s.cache.GetByGroup(domain.TierGroup(r.URL.Query().Get("group")))
	case r.URL.Query().Get("flag") != "":
		list, fresh = s.cache.GetByFlag(r.URL.Query().Get("flag"))
	default:
		list, fresh = s.cache.Get()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"opportunities": list,
		"stale":         !fresh,
		"generated_at":  s.cache.GeneratedAt().Unix(),
	})
}

// handleItem returns one item's current opportunity plus its recent history
// window.
func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil || itemID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id must be a positive integer"})
		return
	}

	opportunity, fresh := s.cache.GetItem(itemID)
	history, err := s.history.RecentHistory(r.Context(), itemID, detector.WindowForGranularity(s.granularity))
	if err != nil {
		s.logger.Printf("History read for item %d failed: %v", itemID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}

	resp := map[string]interface{}{
		"item_id":     itemID,
		"opportunity": opportunity,
		"history":     history,
		"stale":       !fresh,
	}
	if meta, ok := s.catalog.Item(itemID); ok {
		resp["name"] = meta.Name
		resp["buy_limit"] = meta.BuyLimit
		resp["members"] = meta.Members
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReport returns the threshold detector's latest hourly report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, fresh := s.cache.Report()
	if report == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report available"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"report": report,
		"stale":  !fresh,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] encode response: %v", err)
	}
}
