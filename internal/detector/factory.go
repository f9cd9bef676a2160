package detector

import (
	"errors"
	"fmt"
	"log"

	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/metrics"
	"ge-market-watch/internal/storage"
)

// Detection mode names accepted by FromConfig.
const (
	ModeScored    = "scored"
	ModeThreshold = "threshold"
)

var ErrUnknownMode = errors.New("unknown detector mode")

// FactoryConfig carries everything FromConfig needs to assemble either
// strategy. Floors only apply to the threshold mode.
type FactoryConfig struct {
	Mode    string
	History storage.HistoryStore
	Items   ItemLookup
	Logger  *log.Logger

	WindowMinutes int

	MarginFloorGP   int64
	PriceFloorGP    int64
	DumpDropPct     float64
	DumpVolumeFloor int64
	SpikeRisePct    float64
}

// FromConfig builds the detector named by cfg.Mode.
func FromConfig(cfg FactoryConfig) (Detector, error) {
	switch cfg.Mode {
	case ModeScored, "":
		return NewScoredDetector(ScoredOptions{
			History:       cfg.History,
			Items:         cfg.Items,
			Logger:        cfg.Logger,
			WindowMinutes: cfg.WindowMinutes,
		})
	case ModeThreshold:
		return NewThresholdDetector(ThresholdOptions{
			History:         cfg.History,
			Items:           cfg.Items,
			Logger:          cfg.Logger,
			WindowMinutes:   cfg.WindowMinutes,
			MarginFloorGP:   cfg.MarginFloorGP,
			PriceFloorGP:    cfg.PriceFloorGP,
			DumpDropPct:     cfg.DumpDropPct,
			DumpVolumeFloor: cfg.DumpVolumeFloor,
			SpikeRisePct:    cfg.SpikeRisePct,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
}

// WindowForGranularity returns a sensible history window for a granularity:
// enough rows to fill the baseline window plus the current point.
func WindowForGranularity(g domain.Granularity) int {
	switch g {
	case domain.GranularityCoarse:
		return (metrics.DefaultWindowSize + 1) * 60
	default:
		return DefaultHistoryWindowMinutes
	}
}
