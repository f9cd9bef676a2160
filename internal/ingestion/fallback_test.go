package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/ingestion/stub"
	"ge-market-watch/internal/observability"
)

func fineSnapshots(low int64) map[domain.Granularity]map[int]domain.MarketSnapshot {
	return map[domain.Granularity]map[int]domain.MarketSnapshot{
		domain.GranularityFine: {
			4151: {ItemID: 4151, Timestamp: 1000, Low: low, High: low + 20, Volume: 50},
		},
	}
}

func TestFallbackSource_PrimaryServes(t *testing.T) {
	primary := stub.NewStubSnapshotSource("primary", fineSnapshots(100))
	secondary := stub.NewStubSnapshotSource("secondary", fineSnapshots(999))
	source := NewFallbackSource(primary, secondary, nil)

	snaps, err := source.FetchSnapshots(context.Background(), domain.GranularityFine)
	if err != nil {
		t.Fatalf("FetchSnapshots failed: %v", err)
	}
	if snaps[4151].Low != 100 {
		t.Errorf("expected the primary's data, got %+v", snaps[4151])
	}
	if source.LastUsed() != "primary" {
		t.Errorf("expected primary as last used, got %q", source.LastUsed())
	}
}

func TestFallbackSource_SecondaryOnPrimaryFailure(t *testing.T) {
	primary := stub.NewFailingSnapshotSource("primary", errors.New("timeout"))
	secondary := stub.NewStubSnapshotSource("secondary", fineSnapshots(200))
	source := NewFallbackSource(primary, secondary, nil)

	snaps, err := source.FetchSnapshots(context.Background(), domain.GranularityFine)
	if err != nil {
		t.Fatalf("expected the secondary to serve, got %v", err)
	}
	if snaps[4151].Low != 200 {
		t.Errorf("expected the secondary's data, got %+v", snaps[4151])
	}
	if source.LastUsed() != "secondary" {
		t.Errorf("expected secondary as last used, got %q", source.LastUsed())
	}
}

func TestFallbackSource_RecordsFetchMetrics(t *testing.T) {
	// Counters on the shared instance are monotonic, so assert deltas.
	m := observability.DefaultMetrics
	errorsBefore := testutil.ToFloat64(m.FetchErrors.WithLabelValues("primary"))
	activatedBefore := testutil.ToFloat64(m.FallbackActivated)

	primary := stub.NewFailingSnapshotSource("primary", errors.New("timeout"))
	secondary := stub.NewStubSnapshotSource("secondary", fineSnapshots(200))
	source := NewFallbackSource(primary, secondary, nil)

	if _, err := source.FetchSnapshots(context.Background(), domain.GranularityFine); err != nil {
		t.Fatalf("expected the secondary to serve, got %v", err)
	}

	if got := testutil.ToFloat64(m.FetchErrors.WithLabelValues("primary")) - errorsBefore; got != 1 {
		t.Errorf("expected one primary fetch error recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.FallbackActivated) - activatedBefore; got != 1 {
		t.Errorf("expected one fallback activation recorded, got %v", got)
	}
}

func TestFallbackSource_AllFail(t *testing.T) {
	primary := stub.NewFailingSnapshotSource("primary", errors.New("timeout"))
	secondary := stub.NewFailingSnapshotSource("secondary", errors.New("http 503"))
	source := NewFallbackSource(primary, secondary, nil)

	_, err := source.FetchSnapshots(context.Background(), domain.GranularityFine)
	if !errors.Is(err, ErrAllSourcesFailed) {
		t.Errorf("expected ErrAllSourcesFailed, got %v", err)
	}
}

func TestFallbackSource_NoSecondary(t *testing.T) {
	primary := stub.NewFailingSnapshotSource("primary", errors.New("timeout"))
	source := NewFallbackSource(primary, nil, nil)

	_, err := source.FetchSnapshots(context.Background(), domain.GranularityFine)
	if !errors.Is(err, ErrAllSourcesFailed) {
		t.Errorf("expected ErrAllSourcesFailed, got %v", err)
	}
}
