// Package main runs a single detection cycle and prints the result as a
// table. Pointed at the same storage as the running server it gives an
// on-demand view without waiting for the next scheduled cycle; with the
// in-memory backend it starts from empty history, so scoring needs prior
// cycles to have happened.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"ge-market-watch/internal/catalog"
	"ge-market-watch/internal/config"
	"ge-market-watch/internal/detector"
	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/ge"
	"ge-market-watch/internal/ingestion"
	"ge-market-watch/internal/opcache"
	"ge-market-watch/internal/scheduler"
	"ge-market-watch/internal/storage"
	chstore "ge-market-watch/internal/storage/clickhouse"
	"ge-market-watch/internal/storage/memory"
	"ge-market-watch/internal/storage/migrations"
	pgstore "ge-market-watch/internal/storage/postgres"
)

func main() {
	cfg := config.FromEnv()

	primaryURL := flag.String("primary-url", cfg.PrimaryURL, "Primary price source base URL")
	userAgent := flag.String("user-agent", cfg.UserAgent, "User-Agent sent to upstream sources")
	granularity := flag.String("granularity", cfg.Granularity, "Polling granularity (5m or 1h)")
	detectorMode := flag.String("detector", cfg.DetectorMode, "Detection strategy (scored or threshold)")
	storageBackend := flag.String("storage", cfg.Storage, "Storage backend (memory, postgres, clickhouse)")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	limit := flag.Int("limit", 25, "Max rows to print")
	flag.Parse()

	logger := log.New(os.Stderr, "[scan] ", log.LstdFlags)

	cfg.PrimaryURL = *primaryURL
	cfg.UserAgent = *userAgent
	cfg.Granularity = *granularity
	cfg.DetectorMode = *detectorMode
	cfg.Storage = *storageBackend
	cfg.PostgresDSN = *postgresDSN
	cfg.ClickhouseDSN = *clickhouseDSN

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	gran := domain.Granularity(cfg.Granularity)

	historyStore, cleanup, err := createHistoryStore(ctx, cfg, gran)
	if err != nil {
		logger.Fatalf("Failed to create store: %v", err)
	}
	defer cleanup()

	client := ge.NewClient(cfg.PrimaryURL,
		ge.WithUserAgent(cfg.UserAgent),
		ge.WithTimeout(cfg.FetchTimeout),
	)

	items := catalog.New()
	fetched, err := client.FetchCatalog(ctx)
	if err != nil {
		logger.Fatalf("Catalog fetch failed: %v", err)
	}
	items.Replace(fetched)
	logger.Printf("Catalog loaded: %d items", items.Len())

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

	cache := opcache.New(cfg.CacheTTL)
	sched, err := scheduler.New(scheduler.Options{
		Manager: ingestion.NewManager(ingestion.ManagerOptions{
			Source:      client,
			Store:       historyStore,
			Granularity: gran,
			Retention:   cfg.Retention,
			Logger:      logger,
		}),
		Detector: det,
		Cache:    cache,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create scheduler: %v", err)
	}

	if err := sched.RunOnce(ctx); err != nil {
		logger.Fatalf("Cycle failed: %v", err)
	}

	opportunities, _ := cache.Get()
	report, _ := cache.Report()

	switch {
	case report != nil:
		printReport(report, *limit)
	default:
		printOpportunities(opportunities, *limit)
	}
}

func createHistoryStore(ctx context.Context, cfg config.Config, gran domain.Granularity) (storage.HistoryStore, func(), error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return pgstore.NewHistoryStore(pool, gran), pool.Close, nil

	case config.StorageClickhouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		return chstore.NewHistoryStore(conn, gran), func() { _ = conn.Close() }, nil

	default:
		return memory.NewHistoryStore(gran), func() {}, nil
	}
}

func printOpportunities(opportunities []*domain.Opportunity, limit int) {
	if len(opportunities) == 0 {
		fmt.Println("No opportunities this cycle.")
		return
	}
	if len(opportunities) > limit {
		opportunities = opportunities[:limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tTIER\tITEM\tDROP%\tSPIKE%\tMARGIN\tMAX PROFIT\tFLAGS")
	for _, o := range opportunities {
		fmt.Fprintf(w, "%.1f\t%s %s\t%s (%d)\t%.1f\t%.1f\t%d\t%d\t%v\n",
			o.Score, o.Tier.Emoji, o.Tier.Name, o.Name, o.ItemID,
			o.Metrics.DropPct, o.Metrics.VolSpikePct,
			o.Metrics.MarginGP, o.Metrics.MaxProfitGP, o.Flags)
	}
	w.Flush()
}

func printReport(report *domain.HourlyReport, limit int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "-- MARGINS --")
	fmt.Fprintln(w, "MARGIN\tITEM\tLOW\tHIGH\tVOLUME")
	for i, e := range report.Margins {
		if i >= limit {
			break
		}
		fmt.Fprintf(w, "%d\t%s (%d)\t%d\t%d\t%d\n", e.MarginGP, e.Name, e.ItemID, e.Low, e.High, e.Volume)
	}

	fmt.Fprintln(w, "-- DUMPS --")
	fmt.Fprintln(w, "DROP%\tITEM\tLOW\tAVG\tVOLUME")
	for i, e := range report.Dumps {
		if i >= limit {
			break
		}
		fmt.Fprintf(w, "%.1f\t%s (%d)\t%d\t%.0f\t%d\n", e.DropPct, e.Name, e.ItemID, e.Low, e.AvgPrice, e.Volume)
	}

	fmt.Fprintln(w, "-- SPIKES --")
	fmt.Fprintln(w, "RISE%\tITEM\tHIGH\tAVG\tVOLUME")
	for i, e := range report.Spikes {
		if i >= limit {
			break
		}
		fmt.Fprintf(w, "%.1f\t%s (%d)\t%d\t%.0f\t%d\n", e.RisePct, e.Name, e.ItemID, e.High, e.AvgPrice, e.Volume)
	}
	w.Flush()
}
