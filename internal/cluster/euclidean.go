package cluster

import (
	"sort"

	"github.com/banshee-data/meshseg/internal/mesh"
)

// Defaults for Euclidean cluster extraction.
const (
	DefaultTolerance = 0.25   // metres
	DefaultMinSize   = 40     // vertices
	DefaultMaxSize   = 100000 // vertices
)

// Params holds Euclidean cluster extraction parameters.
type Params struct {
	Tolerance float64 // Neighbourhood radius in metres
	MinSize   int     // Smallest cluster kept (inclusive)
	MaxSize   int     // Largest cluster kept (inclusive)
}

// DefaultParams returns the default extraction parameters.
func DefaultParams() Params {
	return Params{
		Tolerance: DefaultTolerance,
		MinSize:   DefaultMinSize,
		MaxSize:   DefaultMaxSize,
	}
}

// Clusterer abstracts the clustering implementation so callers can be tested
// with deterministic fakes.
type Clusterer interface {
	// Extract partitions indices (vertex indices into cloud) into connected
	// components and returns the membership of every component whose size
	// is within [MinSize, MaxSize].
	Extract(cloud *mesh.Cloud, indices []int, params Params) [][]int
}

// EuclideanClusterer grows clusters by repeatedly absorbing every indexed
// vertex within Tolerance of a member, the same connectivity rule as DBSCAN
// with MinPts = 1.
type EuclideanClusterer struct{}

// NewEuclideanClusterer creates a Euclidean clusterer.
func NewEuclideanClusterer() *EuclideanClusterer {
	return &EuclideanClusterer{}
}

// Extract implements Clusterer. The output is deterministic: members are
// sorted ascending and clusters are ordered by size (largest first), then
// by lowest member index.
func (c *EuclideanClusterer) Extract(cloud *mesh.Cloud, indices []int, params Params) [][]int {
	if len(indices) == 0 || params.Tolerance <= 0 {
		return nil
	}

	valid := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < cloud.Len() {
			valid = append(valid, idx)
		}
	}

	si := NewSpatialIndex(params.Tolerance)
	si.Build(cloud, valid)

	processed := make(map[int]bool, len(valid))
	var clusters [][]int

	for _, seed := range valid {
		if processed[seed] {
			continue
		}
		processed[seed] = true

		// Queue-based expansion; the queue doubles as the membership list.
		queue := []int{seed}
		for j := 0; j < len(queue); j++ {
			for _, nb := range si.RegionQuery(cloud, queue[j], params.Tolerance) {
				if processed[nb] {
					continue
				}
				processed[nb] = true
				queue = append(queue, nb)
			}
		}

		if len(queue) < params.MinSize || (params.MaxSize > 0 && len(queue) > params.MaxSize) {
			continue
		}
		sort.Ints(queue)
		clusters = append(clusters, queue)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		if len(clusters[i]) != len(clusters[j]) {
			return len(clusters[i]) > len(clusters[j])
		}
		return clusters[i][0] < clusters[j][0]
	})

	return clusters
}

// Verify at compile time that *EuclideanClusterer implements Clusterer.
var _ Clusterer = (*EuclideanClusterer)(nil)
