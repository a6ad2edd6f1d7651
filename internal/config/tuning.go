package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Bounding box kinds accepted by bounding_box_type.
const (
	BoxTypeAABB = "aabb"
	BoxTypeOBB  = "obb"
)

// TuningConfig represents the root configuration for the object segmenter
// and the pipeline that owns it. Every field is optional: the Get* accessors
// fall back to built-in defaults, so partial configs are safe.
type TuningConfig struct {
	// Segmenter params
	Prefix              *string  `json:"prefix,omitempty"` // single character node symbol key
	Labels              []int    `json:"labels,omitempty"` // semantic labels of interest
	ClusterTolerance    *float64 `json:"cluster_tolerance,omitempty"`
	MinClusterSize      *int     `json:"min_cluster_size,omitempty"`
	MaxClusterSize      *int     `json:"max_cluster_size,omitempty"`
	ActiveIndexHorizonM *float64 `json:"active_index_horizon_m,omitempty"`
	ActiveHorizonS      *float64 `json:"active_horizon_s,omitempty"` // archive horizon
	BoundingBoxType     *string  `json:"bounding_box_type,omitempty"`

	// Pipeline params
	PruneInterval    *int     `json:"prune_interval,omitempty"` // cycles between pending-linkage prunes
	PlaceLinkRadiusM *float64 `json:"place_link_radius_m,omitempty"`
	LabelMapPath     *string  `json:"label_map_path,omitempty"`
	ArchiveDBPath    *string  `json:"archive_db_path,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/storage/sqlite/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.Prefix != nil && len(*c.Prefix) != 1 {
		return fmt.Errorf("prefix must be a single character, got %q", *c.Prefix)
	}

	for _, label := range c.Labels {
		if label < 0 || label > 255 {
			return fmt.Errorf("labels must be in [0, 255], got %d", label)
		}
	}

	if c.ClusterTolerance != nil && *c.ClusterTolerance <= 0 {
		return fmt.Errorf("cluster_tolerance must be positive, got %f", *c.ClusterTolerance)
	}

	if c.MinClusterSize != nil && *c.MinClusterSize < 1 {
		return fmt.Errorf("min_cluster_size must be at least 1, got %d", *c.MinClusterSize)
	}

	if c.GetMaxClusterSize() < c.GetMinClusterSize() {
		return fmt.Errorf("max_cluster_size (%d) must not be less than min_cluster_size (%d)",
			c.GetMaxClusterSize(), c.GetMinClusterSize())
	}

	if c.ActiveIndexHorizonM != nil && *c.ActiveIndexHorizonM <= 0 {
		return fmt.Errorf("active_index_horizon_m must be positive, got %f", *c.ActiveIndexHorizonM)
	}

	if c.ActiveHorizonS != nil && *c.ActiveHorizonS < 0 {
		return fmt.Errorf("active_horizon_s must be non-negative, got %f", *c.ActiveHorizonS)
	}

	if c.BoundingBoxType != nil {
		switch strings.ToLower(*c.BoundingBoxType) {
		case BoxTypeAABB, BoxTypeOBB:
		default:
			return fmt.Errorf("bounding_box_type must be %q or %q, got %q", BoxTypeAABB, BoxTypeOBB, *c.BoundingBoxType)
		}
	}

	if c.PruneInterval != nil && *c.PruneInterval < 1 {
		return fmt.Errorf("prune_interval must be at least 1, got %d", *c.PruneInterval)
	}

	if c.PlaceLinkRadiusM != nil && *c.PlaceLinkRadiusM < 0 {
		return fmt.Errorf("place_link_radius_m must be non-negative, got %f", *c.PlaceLinkRadiusM)
	}

	return nil
}

// GetPrefix returns the node symbol prefix or the default "O".
func (c *TuningConfig) GetPrefix() byte {
	if c.Prefix == nil || len(*c.Prefix) != 1 {
		return 'O'
	}
	return (*c.Prefix)[0]
}

// GetLabels returns the labels of interest as uint8 values.
func (c *TuningConfig) GetLabels() []uint8 {
	labels := make([]uint8, 0, len(c.Labels))
	for _, l := range c.Labels {
		labels = append(labels, uint8(l))
	}
	return labels
}

// GetClusterTolerance returns the cluster_tolerance value or the default.
func (c *TuningConfig) GetClusterTolerance() float64 {
	if c.ClusterTolerance == nil {
		return 0.25
	}
	return *c.ClusterTolerance
}

// GetMinClusterSize returns the min_cluster_size value or the default.
func (c *TuningConfig) GetMinClusterSize() int {
	if c.MinClusterSize == nil {
		return 40
	}
	return *c.MinClusterSize
}

// GetMaxClusterSize returns the max_cluster_size value or the default.
func (c *TuningConfig) GetMaxClusterSize() int {
	if c.MaxClusterSize == nil {
		return 100000
	}
	return *c.MaxClusterSize
}

// GetActiveIndexHorizonM returns the active_index_horizon_m value or the default.
func (c *TuningConfig) GetActiveIndexHorizonM() float64 {
	if c.ActiveIndexHorizonM == nil {
		return 7.0
	}
	return *c.ActiveIndexHorizonM
}

// GetActiveHorizonS returns the archive horizon in seconds or the default.
func (c *TuningConfig) GetActiveHorizonS() float64 {
	if c.ActiveHorizonS == nil {
		return 10.0
	}
	return *c.ActiveHorizonS
}

// GetBoundingBoxType returns the normalised bounding_box_type or "aabb".
func (c *TuningConfig) GetBoundingBoxType() string {
	if c.BoundingBoxType == nil || *c.BoundingBoxType == "" {
		return BoxTypeAABB
	}
	return strings.ToLower(*c.BoundingBoxType)
}

// GetPruneInterval returns the prune_interval value or the default.
func (c *TuningConfig) GetPruneInterval() int {
	if c.PruneInterval == nil {
		return 1
	}
	return *c.PruneInterval
}

// GetPlaceLinkRadiusM returns the place_link_radius_m value or the default.
func (c *TuningConfig) GetPlaceLinkRadiusM() float64 {
	if c.PlaceLinkRadiusM == nil {
		return 3.0
	}
	return *c.PlaceLinkRadiusM
}

// GetLabelMapPath returns the label_map_path value or "" for the built-in map.
func (c *TuningConfig) GetLabelMapPath() string {
	if c.LabelMapPath == nil {
		return ""
	}
	return *c.LabelMapPath
}

// GetArchiveDBPath returns the archive_db_path value or the default.
func (c *TuningConfig) GetArchiveDBPath() string {
	if c.ArchiveDBPath == nil || *c.ArchiveDBPath == "" {
		return "meshseg_archive.db"
	}
	return *c.ArchiveDBPath
}
