package detector

import (
	"context"
	"testing"

	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/storage/memory"
)

// seedHourlyHistory writes n hourly intervals of steady prices ending just
// before currentTS.
func seedHourlyHistory(t *testing.T, store *memory.HistoryStore, itemID int, low, volume int64, n int, currentTS int64) {
	t.Helper()
	ctx := context.Background()
	for i := n; i >= 1; i-- {
		ts := currentTS - int64(i)*3600
		_, err := store.RecordSnapshots(ctx, map[int]domain.MarketSnapshot{
			itemID: {ItemID: itemID, Timestamp: ts, Low: low, High: low + 20, Volume: volume},
		})
		if err != nil {
			t.Fatalf("seed history: %v", err)
		}
	}
}

func TestThresholdDetector_Buckets(t *testing.T) {
	store := memory.NewHistoryStore(domain.GranularityCoarse)
	items := newTestCatalog()

	const currentTS = int64(1700100000)
	seedHourlyHistory(t, store, 4151, 10000, 500, 6, currentTS)
	seedHourlyHistory(t, store, 561, 200, 5000, 6, currentTS)
	seedHourlyHistory(t, store, 2, 180, 900, 6, currentTS)

	snapshots := map[int]domain.MarketSnapshot{
		// Margin above the floor; also a 20% drop on heavy volume. The 5%
		// rise stays under the spike threshold.
		4151: {ItemID: 4151, Timestamp: currentTS, Low: 8000, High: 10500, Volume: 600},
		// 25% rise.
		561: {ItemID: 561, Timestamp: currentTS, Low: 240, High: 250, Volume: 5000},
		// Quiet: no bucket.
		2: {ItemID: 2, Timestamp: currentTS, Low: 180, High: 185, Volume: 900},
	}
	ctx := context.Background()
	if _, err := store.RecordSnapshots(ctx, snapshots); err != nil {
		t.Fatalf("record current snapshots: %v", err)
	}

	det, err := NewThresholdDetector(ThresholdOptions{History: store, Items: items})
	if err != nil {
		t.Fatalf("NewThresholdDetector failed: %v", err)
	}

	res, err := det.Detect(ctx, CycleData{Snapshots: snapshots, Granularity: domain.GranularityCoarse})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if res.Report == nil {
		t.Fatal("expected an hourly report")
	}
	if len(res.Opportunities) != 0 {
		t.Errorf("threshold mode should not emit scored opportunities, got %d", len(res.Opportunities))
	}

	report := res.Report
	if len(report.Margins) != 1 || report.Margins[0].ItemID != 4151 {
		t.Errorf("expected one margin entry for 4151, got %+v", report.Margins)
	}
	if report.Margins[0].MarginGP != 2500 {
		t.Errorf("expected margin 2500, got %d", report.Margins[0].MarginGP)
	}
	if len(report.Dumps) != 1 || report.Dumps[0].ItemID != 4151 {
		t.Errorf("expected one dump entry for 4151, got %+v", report.Dumps)
	}
	if len(report.Spikes) != 1 || report.Spikes[0].ItemID != 561 {
		t.Errorf("expected one spike entry for 561, got %+v", report.Spikes)
	}
}

func TestThresholdDetector_RankingAndTruncation(t *testing.T) {
	store := memory.NewHistoryStore(domain.GranularityCoarse)
	items := newTestCatalog()

	const currentTS = int64(1700100000)
	seedHourlyHistory(t, store, 4151, 10000, 500, 6, currentTS)
	seedHourlyHistory(t, store, 561, 10000, 500, 6, currentTS)

	snapshots := map[int]domain.MarketSnapshot{
		4151: {ItemID: 4151, Timestamp: currentTS, Low: 9000, High: 11000, Volume: 600},
		561:  {ItemID: 561, Timestamp: currentTS, Low: 9000, High: 14000, Volume: 600},
	}
	ctx := context.Background()
	if _, err := store.RecordSnapshots(ctx, snapshots); err != nil {
		t.Fatalf("record current snapshots: %v", err)
	}

	det, err := NewThresholdDetector(ThresholdOptions{History: store, Items: items})
	if err != nil {
		t.Fatalf("NewThresholdDetector failed: %v", err)
	}

	res, err := det.Detect(ctx, CycleData{Snapshots: snapshots, Granularity: domain.GranularityCoarse})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	margins := res.Report.Margins
	if len(margins) != 2 {
		t.Fatalf("expected 2 margin entries, got %d", len(margins))
	}
	if margins[0].ItemID != 561 || margins[0].MarginGP != 5000 {
		t.Errorf("expected the wider margin first, got %+v", margins[0])
	}

	if len(res.Report.Margins) > MaxMarginEntries ||
		len(res.Report.Dumps) > MaxDumpEntries ||
		len(res.Report.Spikes) > MaxSpikeEntries {
		t.Errorf("report lists exceed their caps: %d/%d/%d",
			len(res.Report.Margins), len(res.Report.Dumps), len(res.Report.Spikes))
	}
}

func TestFromConfig_SelectsStrategy(t *testing.T) {
	store := memory.NewHistoryStore(domain.GranularityFine)
	items := newTestCatalog()

	scored, err := FromConfig(FactoryConfig{Mode: ModeScored, History: store, Items: items})
	if err != nil {
		t.Fatalf("FromConfig scored failed: %v", err)
	}
	if scored.Name() != "scored" {
		t.Errorf("expected scored detector, got %s", scored.Name())
	}

	threshold, err := FromConfig(FactoryConfig{Mode: ModeThreshold, History: store, Items: items})
	if err != nil {
		t.Fatalf("FromConfig threshold failed: %v", err)
	}
	if threshold.Name() != "threshold" {
		t.Errorf("expected threshold detector, got %s", threshold.Name())
	}

	// Empty mode defaults to scored.
	def, err := FromConfig(FactoryConfig{History: store, Items: items})
	if err != nil || def.Name() != "scored" {
		t.Errorf("expected scored default, got %v err=%v", def, err)
	}

	if _, err := FromConfig(FactoryConfig{Mode: "oracle", History: store, Items: items}); err == nil {
		t.Error("expected error for an unknown mode")
	}
}
