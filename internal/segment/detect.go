package segment

import (
	"sort"

	"github.com/banshee-data/meshseg/internal/cluster"
	"github.com/banshee-data/meshseg/internal/mesh"
	"github.com/banshee-data/meshseg/internal/monitoring"
	"gonum.org/v1/gonum/spatial/r3"
)

// ActiveIndices restricts indices to vertices strictly closer than the
// active region horizon to pos. With a nil pos the input is returned
// unchanged. Indices outside the vertex buffer have no position and are
// dropped when filtering.
func (s *MeshSegmenter) ActiveIndices(indices []int, pos *r3.Vec) []int {
	if pos == nil {
		monitoring.Debugf(1, "[MeshSegmenter] active indices: %d used: %d", len(indices), len(indices))
		return indices
	}

	active := make([]int, 0, len(indices))
	for _, idx := range indices {
		v, ok := s.vertices.At(idx)
		if !ok {
			continue
		}
		if r3.Norm(r3.Sub(v.Pos, *pos)) < s.Config.ActiveIndexHorizonM {
			active = append(active, idx)
		}
	}

	monitoring.Debugf(1, "[MeshSegmenter] active indices: %d used: %d", len(indices), len(active))
	return active
}

// VertexLabel resolves the semantic label of the vertex at idx. It reports
// false when idx is outside the vertex buffer or its color has no label.
func (s *MeshSegmenter) VertexLabel(labelMap LabelResolver, idx int) (mesh.Label, bool) {
	v, ok := s.vertices.At(idx)
	if !ok {
		return 0, false
	}
	return labelMap.LabelOf(v.Color.Opaque())
}

// LabelIndices partitions indices by semantic label, keeping only labels of
// interest. Indices that cannot be resolved are logged, counted and skipped.
func (s *MeshSegmenter) LabelIndices(labelMap LabelResolver, indices []int) LabelIndices {
	labelIndices := make(LabelIndices)
	seen := make(map[mesh.Label]bool)

	for _, idx := range indices {
		if _, inRange := s.vertices.At(idx); !inRange {
			s.lastDetect.BadIndices++
			monitoring.Logf("[MeshSegmenter] bad index %d (of %d)", idx, s.vertices.Len())
			continue
		}

		label, ok := s.VertexLabel(labelMap, idx)
		if !ok {
			s.lastDetect.UnlabeledIndices++
			monitoring.Debugf(3, "[MeshSegmenter] no label for index %d", idx)
			continue
		}
		seen[label] = true

		if !s.labelSet[label] {
			continue
		}
		labelIndices[label] = append(labelIndices[label], idx)
	}

	seenLabels := make([]mesh.Label, 0, len(seen))
	for l := range seen {
		seenLabels = append(seenLabels, l)
	}
	sort.Slice(seenLabels, func(i, j int) bool { return seenLabels[i] < seenLabels[j] })
	s.lastDetect.SeenLabels = seenLabels
	monitoring.Debugf(3, "[MeshSegmenter] seen labels: %v", seenLabels)

	return labelIndices
}

// Detect clusters the active, labeled subset of indices. pos is the
// reference position of the active region (nil disables the filter).
//
// Labels with fewer than MinClusterSize indices are not clustered. Only
// labels that yield at least one non-empty cluster appear in the result.
// Registered callbacks run before Detect returns, including on the early
// exits for an empty active region or no labels of interest.
func (s *MeshSegmenter) Detect(labelMap LabelResolver, indices []int, pos *r3.Vec) LabelClusters {
	s.lastDetect = DetectionStats{InputIndices: len(indices)}

	active := s.ActiveIndices(indices, pos)
	s.lastDetect.ActiveIndices = len(active)

	labelClusters := make(LabelClusters)

	if len(active) == 0 {
		monitoring.Debugf(3, "[MeshSegmenter] no active indices in mesh")
		s.notify(active, LabelIndices{})
		return labelClusters
	}

	labelIndices := s.LabelIndices(labelMap, active)
	if len(labelIndices) == 0 {
		monitoring.Debugf(3, "[MeshSegmenter] no vertices found matching desired labels")
		s.notify(active, labelIndices)
		return labelClusters
	}

	params := s.Config.ClusterParams()
	for _, label := range s.labels {
		indices, ok := labelIndices[label]
		if !ok {
			continue
		}
		if len(indices) < s.Config.MinClusterSize {
			s.lastDetect.SkippedLabels++
			continue
		}

		clusters := s.findClusters(indices, params)
		monitoring.Debugf(3, "[MeshSegmenter]  - found %d clusters of label %d", len(clusters), label)
		if len(clusters) == 0 {
			continue
		}
		labelClusters[label] = clusters
		s.lastDetect.Clusters += len(clusters)
	}

	s.notify(active, labelIndices)
	return labelClusters
}

// findClusters runs the clustering oracle over one label's indices with the
// full vertex buffer as the point universe, then builds each cluster's point
// subset and centroid from the returned membership.
func (s *MeshSegmenter) findClusters(indices []int, params cluster.Params) []cluster.Cluster {
	memberships := s.Clusterer.Extract(s.vertices, indices, params)

	clusters := make([]cluster.Cluster, 0, len(memberships))
	for _, members := range memberships {
		c := cluster.FromIndices(s.vertices, members)
		if c.Empty() {
			continue
		}
		clusters = append(clusters, c)
	}
	return clusters
}

func (s *MeshSegmenter) notify(active []int, labelIndices LabelIndices) {
	for _, cb := range s.callbacks {
		cb(s.vertices, active, labelIndices)
	}
}
