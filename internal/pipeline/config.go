package pipeline

import (
	"github.com/banshee-data/meshseg/internal/config"
	"github.com/banshee-data/meshseg/internal/segment"
)

// Config holds the pipeline parameters.
type Config struct {
	Segmenter segment.Config

	// PruneInterval is the number of cycles between pending-linkage prunes.
	// Values below 1 prune every cycle.
	PruneInterval int

	// PlaceLinkRadiusM bounds the distance between an object and the place
	// it is linked to. Zero disables place linking.
	PlaceLinkRadiusM float64
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Segmenter:        segment.ConfigFromTuning(cfg),
		PruneInterval:    cfg.GetPruneInterval(),
		PlaceLinkRadiusM: cfg.GetPlaceLinkRadiusM(),
	}
}
