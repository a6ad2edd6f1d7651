package segment

import (
	"sort"

	"github.com/banshee-data/meshseg/internal/cluster"
	"github.com/banshee-data/meshseg/internal/mesh"
	"github.com/banshee-data/meshseg/internal/monitoring"
	"github.com/banshee-data/meshseg/internal/scenegraph"
)

// Reconcile folds one cycle of detections into the graph and returns the
// ids archived by the time horizon, in ascending order.
//
// Steps, in order:
//  1. Archive: objects unobserved for longer than the archive horizon are
//     dropped and reported; live objects whose node vanished from the graph
//     are dropped too, silently unless they are also past the horizon.
//  2. Per label, every cluster is matched against the label's live objects
//     in creation order; the first object whose box contains the cluster
//     centroid is updated, otherwise a new object is created.
//  3. Per label, overlapping live objects are collapsed to the larger one.
//
// Objects removed in step 3 are not part of the returned set.
func (s *MeshSegmenter) Reconcile(graph NodeStore, clusters LabelClusters, timestamp int64) []scenegraph.NodeID {
	s.lastReconcile = ReconcileStats{}

	archived := s.archiveOldObjects(graph, timestamp)

	labels := make([]mesh.Label, 0, len(clusters))
	for label := range clusters {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	for _, label := range labels {
		if !s.labelSet[label] {
			monitoring.Logf("[MeshSegmenter] ignoring %d clusters of unconfigured label %d", len(clusters[label]), label)
			continue
		}

		for _, c := range clusters[label] {
			if id, ok := s.findMatch(graph, label, c); ok {
				s.updateObject(graph, c, id, timestamp)
				continue
			}
			s.addObject(graph, c, label, timestamp)
		}

		s.mergeDuplicates(graph, label)
	}

	return archived
}

// archiveOldObjects removes stale and vanished ids from the live set and
// returns the ids past the archive horizon, whether or not their node is
// still in the graph. Vanished ids inside the horizon are dropped silently.
func (s *MeshSegmenter) archiveOldObjects(graph NodeStore, timestamp int64) []scenegraph.NodeID {
	horizon := s.Config.ArchiveHorizonNs()
	var archived []scenegraph.NodeID

	for _, label := range s.labels {
		for _, id := range s.state.activeObjects[label].sorted() {
			gone := !graph.HasNode(id)
			expired := timestamp-s.state.lastSeen[id] > horizon
			if expired {
				archived = append(archived, id)
			}

			switch {
			case gone:
				s.state.forget(label, id)
				s.lastReconcile.Vanished++
			case expired:
				s.state.untrack(label, id)
			}
		}
	}

	sort.Slice(archived, func(i, j int) bool { return archived[i] < archived[j] })
	s.lastReconcile.Archived = len(archived)
	return archived
}

// findMatch returns the first live object of label, in creation order,
// whose bounding box contains the cluster centroid. Linear in the number of
// live objects of the label.
func (s *MeshSegmenter) findMatch(graph NodeStore, label mesh.Label, c cluster.Cluster) (scenegraph.NodeID, bool) {
	centroid := c.Centroid.Get()
	for _, id := range s.state.activeObjects[label].sorted() {
		node, ok := graph.GetNode(id)
		if !ok {
			continue
		}
		attrs, err := scenegraph.ObjectAttrs(node)
		if err != nil {
			monitoring.Logf("[MeshSegmenter] skipping match candidate: %v", err)
			continue
		}
		if attrs.BoundingBox.IsInside(centroid) {
			return id, true
		}
	}
	return 0, false
}

// updateObject refreshes a matched object. Mesh edges are always added;
// the box and position are only replaced when the new detection is larger
// than the stored one.
func (s *MeshSegmenter) updateObject(graph NodeStore, c cluster.Cluster, id scenegraph.NodeID, timestamp int64) {
	s.state.lastSeen[id] = timestamp
	s.lastReconcile.Matched++

	for _, idx := range c.Indices {
		graph.InsertMeshEdge(id, idx, true)
	}

	node, ok := graph.GetNode(id)
	if !ok {
		return
	}
	attrs, err := scenegraph.ObjectAttrs(node)
	if err != nil {
		monitoring.Logf("[MeshSegmenter] cannot update object: %v", err)
		return
	}

	newBox := s.Boxes.Extract(c.Points, s.Config.BoundingBoxKind)
	if attrs.BoundingBox.Volume() >= newBox.Volume() {
		// Prefer the largest detection; vertex membership is not merged.
		return
	}

	s.state.pendingLinks[id] = struct{}{}
	attrs.Position = c.Centroid.Get()
	attrs.BoundingBox = newBox
	s.lastReconcile.Grown++
}

// addObject creates a new object node from a cluster.
func (s *MeshSegmenter) addObject(graph NodeStore, c cluster.Cluster, label mesh.Label, timestamp int64) {
	if c.Empty() {
		monitoring.Logf("[MeshSegmenter] encountered empty cluster with label %d @ %d [ns]", label, timestamp)
		s.lastReconcile.Rejected++
		return
	}

	symbol := s.state.nextNodeID
	s.state.nextNodeID = symbol.Next()
	id := symbol.ID()

	attrs := &scenegraph.ObjectAttributes{
		SemanticAttributes: scenegraph.SemanticAttributes{
			Name:          symbol.Label(),
			SemanticLabel: label,
			BoundingBox:   s.Boxes.Extract(c.Points, s.Config.BoundingBoxKind),
			Color:         c.Points[0].Color.Opaque(),
			Position:      c.Centroid.Get(),
		},
	}

	if err := graph.EmplaceNode(scenegraph.LayerObjects, id, attrs); err != nil {
		monitoring.Logf("[MeshSegmenter] failed to add object %s: %v", symbol, err)
		s.lastReconcile.Rejected++
		return
	}

	s.state.track(label, id, timestamp)
	for _, idx := range c.Indices {
		graph.InsertMeshEdge(id, idx, true)
	}
	s.lastReconcile.Created++
}

// mergeDuplicates removes the smaller of every pair of live objects of
// label where either object's position lies inside the other's box. Each
// unordered pair is tested once: O(n²) in the live objects of the label.
// On equal volumes the older object is kept.
func (s *MeshSegmenter) mergeDuplicates(graph NodeStore, label mesh.Label) {
	ids := s.state.activeObjects[label].sorted()
	removed := make(map[scenegraph.NodeID]bool)

	attrsOf := func(id scenegraph.NodeID) (*scenegraph.SemanticAttributes, bool) {
		node, ok := graph.GetNode(id)
		if !ok {
			s.state.forget(label, id)
			removed[id] = true
			return nil, false
		}
		attrs, err := scenegraph.SemanticAttrs(node)
		if err != nil {
			monitoring.Logf("[MeshSegmenter] skipping duplicate check: %v", err)
			return nil, false
		}
		return attrs, true
	}

	for i := 0; i < len(ids); i++ {
		if removed[ids[i]] {
			continue
		}
		a, ok := attrsOf(ids[i])
		if !ok {
			continue
		}

		for j := i + 1; j < len(ids); j++ {
			if removed[ids[j]] {
				continue
			}
			b, ok := attrsOf(ids[j])
			if !ok {
				continue
			}

			if !a.BoundingBox.IsInside(b.Position) && !b.BoundingBox.IsInside(a.Position) {
				continue
			}

			if a.BoundingBox.Volume() >= b.BoundingBox.Volume() {
				s.removeObject(graph, label, ids[j])
				removed[ids[j]] = true
				continue
			}
			s.removeObject(graph, label, ids[i])
			removed[ids[i]] = true
			break
		}
	}
}

func (s *MeshSegmenter) removeObject(graph NodeStore, label mesh.Label, id scenegraph.NodeID) {
	if err := graph.RemoveNode(id); err != nil {
		monitoring.Logf("[MeshSegmenter] failed to remove duplicate %s: %v", id, err)
	}
	s.state.forget(label, id)
	s.lastReconcile.Merged++
	monitoring.Debugf(3, "[MeshSegmenter] merged duplicate object %s (label %d)", id, label)
}

// PruneObjectsToCheckForPlaces drops pending-linkage entries whose node is
// gone from the graph or already has a parent.
func (s *MeshSegmenter) PruneObjectsToCheckForPlaces(graph NodeStore) {
	for _, id := range s.state.pendingLinks.sorted() {
		node, ok := graph.GetNode(id)
		if !ok {
			monitoring.Logf("[MeshSegmenter] missing node %s", id)
			delete(s.state.pendingLinks, id)
			continue
		}
		if node.HasParent() {
			delete(s.state.pendingLinks, id)
		}
	}
}
