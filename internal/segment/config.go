package segment

import (
	"sort"

	"github.com/banshee-data/meshseg/internal/bbox"
	"github.com/banshee-data/meshseg/internal/cluster"
	"github.com/banshee-data/meshseg/internal/config"
	"github.com/banshee-data/meshseg/internal/mesh"
)

// Config holds the segmenter parameters.
type Config struct {
	Prefix              byte         // Node symbol key for created objects
	Labels              []mesh.Label // Labels of interest
	ClusterTolerance    float64      // Neighbourhood radius (metres)
	MinClusterSize      int          // Also the pre-filter for sending a label to the clusterer
	MaxClusterSize      int
	ActiveIndexHorizonM float64 // Active region radius around the reference position (metres)
	ArchiveHorizonS     float64 // Unobserved time before an object is archived (seconds)
	BoundingBoxKind     bbox.Kind
}

// DefaultConfig returns the built-in defaults with no labels of interest.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	kind, err := bbox.ParseKind(cfg.GetBoundingBoxType())
	if err != nil {
		kind = bbox.KindAABB
	}

	labels := make([]mesh.Label, 0, len(cfg.Labels))
	for _, l := range cfg.GetLabels() {
		labels = append(labels, mesh.Label(l))
	}

	return Config{
		Prefix:              cfg.GetPrefix(),
		Labels:              labels,
		ClusterTolerance:    cfg.GetClusterTolerance(),
		MinClusterSize:      cfg.GetMinClusterSize(),
		MaxClusterSize:      cfg.GetMaxClusterSize(),
		ActiveIndexHorizonM: cfg.GetActiveIndexHorizonM(),
		ArchiveHorizonS:     cfg.GetActiveHorizonS(),
		BoundingBoxKind:     kind,
	}
}

// ClusterParams returns the clustering oracle parameters.
func (c Config) ClusterParams() cluster.Params {
	return cluster.Params{
		Tolerance: c.ClusterTolerance,
		MinSize:   c.MinClusterSize,
		MaxSize:   c.MaxClusterSize,
	}
}

// ArchiveHorizonNs returns the archive horizon in nanoseconds.
func (c Config) ArchiveHorizonNs() int64 {
	return int64(c.ArchiveHorizonS * 1e9)
}

// sortedLabels returns the configured labels deduplicated in ascending order.
func (c Config) sortedLabels() []mesh.Label {
	seen := make(map[mesh.Label]bool, len(c.Labels))
	out := make([]mesh.Label, 0, len(c.Labels))
	for _, l := range c.Labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
