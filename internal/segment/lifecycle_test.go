package segment

import (
	"testing"

	"github.com/banshee-data/meshseg/internal/bbox"
	"github.com/banshee-data/meshseg/internal/cluster"
	"github.com/banshee-data/meshseg/internal/mesh"
	"github.com/banshee-data/meshseg/internal/scenegraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func symbolID(index uint64) scenegraph.NodeID {
	return scenegraph.NewNodeSymbol('O', index).ID()
}

func TestReconcile_CreatesObject(t *testing.T) {
	seg, cloud, graph := newTestSegmenter(testConfig())
	c := boxCluster(cloud, vec(0, 0, 0), vec(2, 1, 1), mesh.Color{R: 255, A: 7})

	archived := seg.Reconcile(graph, LabelClusters{labelChair: {c}}, 1e9)
	assert.Empty(t, archived)

	id := symbolID(0)
	require.True(t, graph.HasNode(id))
	attrs := objectAttrs(t, graph, id)
	assert.Equal(t, "O0", attrs.Name)
	assert.Equal(t, labelChair, attrs.SemanticLabel)
	assert.Equal(t, red, attrs.Color, "color is opaque")
	assert.Equal(t, vec(1, 0.5, 0.5), attrs.Position)
	assert.InDelta(t, 2.0, attrs.BoundingBox.Volume(), 1e-9)

	assert.Equal(t, c.Indices, graph.MeshEdges(id))
	assert.Empty(t, graph.NodesForVertex(c.Indices[0]), "object mesh edges are directed")

	assert.Equal(t, []scenegraph.NodeID{id}, seg.ActiveObjects(labelChair))
	assert.Equal(t, []scenegraph.NodeID{id}, seg.ObjectsToCheckForPlaces())
	ts, ok := seg.LastObserved(id)
	assert.True(t, ok)
	assert.Equal(t, int64(1e9), ts)
	assert.Equal(t, "O1", seg.NextNodeSymbol().Label())
	assert.Equal(t, 1, seg.LastReconcileStats().Created)
}

func TestReconcile_Idempotent(t *testing.T) {
	seg, cloud, graph := newTestSegmenter(testConfig())
	clusters := LabelClusters{
		labelChair: {boxCluster(cloud, vec(0, 0, 0), vec(1, 1, 1), red)},
		labelTable: {boxCluster(cloud, vec(5, 0, 0), vec(7, 1, 1), green)},
	}

	seg.Reconcile(graph, clusters, 1e9)
	nodes := graph.NodesInLayer(scenegraph.LayerObjects)
	require.Len(t, nodes, 2)
	pending := seg.ObjectsToCheckForPlaces()

	seg.Reconcile(graph, clusters, 1e9)
	assert.Equal(t, nodes, graph.NodesInLayer(scenegraph.LayerObjects))
	assert.Equal(t, pending, seg.ObjectsToCheckForPlaces())
	assert.Equal(t, 2, seg.NumActiveObjects())
	assert.Equal(t, 2, seg.LastReconcileStats().Matched)
	assert.Zero(t, seg.LastReconcileStats().Created)
}

func TestReconcile_SmallerDetectionKeepsBox(t *testing.T) {
	seg, cloud, graph := newTestSegmenter(testConfig())

	// Volume 10.
	seg.Reconcile(graph, LabelClusters{labelChair: {boxCluster(cloud, vec(0, 0, 0), vec(10, 1, 1), red)}}, 1e9)
	id := symbolID(0)
	before := objectAttrs(t, graph, id).BoundingBox
	seg.ClearObjectToCheck(id)

	// Volume 8, centroid (5, 0.5, 0.5) inside the stored box.
	smaller := boxCluster(cloud, vec(1, 0, 0), vec(9, 1, 1), red)
	seg.Reconcile(graph, LabelClusters{labelChair: {smaller}}, 2e9)

	ts, _ := seg.LastObserved(id)
	assert.Equal(t, int64(2e9), ts)
	assert.Equal(t, before, objectAttrs(t, graph, id).BoundingBox)
	for _, idx := range smaller.Indices {
		assert.Contains(t, graph.MeshEdges(id), idx)
	}
	assert.Equal(t, 16, graph.NumMeshEdges(id))
	assert.Empty(t, seg.ObjectsToCheckForPlaces())
	assert.Equal(t, 1, graph.NumNodes())
}

func TestReconcile_LargerDetectionGrowsBox(t *testing.T) {
	seg, cloud, graph := newTestSegmenter(testConfig())
	seg.Reconcile(graph, LabelClusters{labelChair: {boxCluster(cloud, vec(0, 0, 0), vec(10, 1, 1), red)}}, 1e9)
	id := symbolID(0)
	seg.ClearObjectToCheck(id)

	larger := boxCluster(cloud, vec(-1, 0, 0), vec(11, 1, 2), red)
	seg.Reconcile(graph, LabelClusters{labelChair: {larger}}, 2e9)

	attrs := objectAttrs(t, graph, id)
	assert.InDelta(t, 24.0, attrs.BoundingBox.Volume(), 1e-9)
	assert.Equal(t, vec(5, 0.5, 1), attrs.Position)
	assert.Equal(t, []scenegraph.NodeID{id}, seg.ObjectsToCheckForPlaces())
	assert.Equal(t, 1, seg.LastReconcileStats().Grown)
}

func TestReconcile_EqualVolumeKeepsStoredBox(t *testing.T) {
	seg, cloud, graph := newTestSegmenter(testConfig())
	stored := bbox.NewAABB(vec(-5, -5, -5), vec(5, 5, 5))
	shifted := bbox.NewAABB(vec(-4, -4, -4), vec(6, 6, 6))
	boxes := &fakeBoxes{boxes: []bbox.BoundingBox{stored, shifted}}
	seg.Boxes = boxes

	seg.Reconcile(graph, LabelClusters{labelChair: {boxCluster(cloud, vec(0, 0, 0), vec(1, 1, 1), red)}}, 1e9)
	id := symbolID(0)
	seg.ClearObjectToCheck(id)
	before := objectAttrs(t, graph, id).Position

	again := boxCluster(cloud, vec(1, 1, 1), vec(2, 2, 2), red)
	seg.Reconcile(graph, LabelClusters{labelChair: {again}}, 2e9)

	require.Equal(t, 2, boxes.calls)
	assert.Equal(t, []bbox.Kind{bbox.KindAABB, bbox.KindAABB}, boxes.kinds)
	attrs := objectAttrs(t, graph, id)
	assert.Equal(t, stored, attrs.BoundingBox)
	assert.Equal(t, before, attrs.Position)
	assert.Empty(t, seg.ObjectsToCheckForPlaces())
	assert.Zero(t, seg.LastReconcileStats().Grown)
	assert.Equal(t, 1, seg.LastReconcileStats().Matched)
	assert.Equal(t, 16, graph.NumMeshEdges(id))
}

func TestReconcile_FirstMatchInCreationOrder(t *testing.T) {
	seg, cloud, graph := newTestSegmenter(testConfig())

	// Overlapping boxes; neither centre lies inside the other box.
	seg.Reconcile(graph, LabelClusters{labelChair: {boxCluster(cloud, vec(0, 0, 0), vec(2, 1, 1), red)}}, 1e9)
	seg.Reconcile(graph, LabelClusters{labelChair: {boxCluster(cloud, vec(1.5, 0, 0), vec(3.5, 1, 1), red)}}, 1e9)
	a, b := symbolID(0), symbolID(1)
	require.Equal(t, []scenegraph.NodeID{a, b}, seg.ActiveObjects(labelChair))

	// Centroid (1.75, 0.5, 0.5) lies in both boxes.
	sample := boxCluster(cloud, vec(1.7, 0.45, 0.45), vec(1.8, 0.55, 0.55), red)
	seg.Reconcile(graph, LabelClusters{labelChair: {sample}}, 3e9)

	tsA, _ := seg.LastObserved(a)
	tsB, _ := seg.LastObserved(b)
	assert.Equal(t, int64(3e9), tsA)
	assert.Equal(t, int64(1e9), tsB)
	assert.Equal(t, 16, graph.NumMeshEdges(a))
	assert.Equal(t, 8, graph.NumMeshEdges(b))
}

func TestReconcile_MatchIsPerLabel(t *testing.T) {
	seg, cloud, graph := newTestSegmenter(testConfig())
	seg.Reconcile(graph, LabelClusters{labelChair: {boxCluster(cloud, vec(0, 0, 0), vec(2, 2, 2), red)}}, 1e9)

	// Same region, different label: a new object.
	seg.Reconcile(graph, LabelClusters{labelTable: {boxCluster(cloud, vec(0, 0, 0), vec(2, 2, 2), green)}}, 1e9)
	assert.Len(t, seg.ActiveObjects(labelChair), 1)
	assert.Len(t, seg.ActiveObjects(labelTable), 1)
	assert.Equal(t, 2, graph.NumNodes())
}

func TestReconcile_Archive(t *testing.T) {
	seg, cloud, graph := newTestSegmenter(testConfig()) // 5 s horizon
	seg.Reconcile(graph, LabelClusters{labelChair: {boxCluster(cloud, vec(0, 0, 0), vec(1, 1, 1), red)}}, 0)
	id := symbolID(0)

	// Exactly on the horizon is still live.
	assert.Empty(t, seg.Reconcile(graph, LabelClusters{}, 5e9))
	assert.Equal(t, []scenegraph.NodeID{id}, seg.ActiveObjects(labelChair))

	archived := seg.Reconcile(graph, LabelClusters{}, 6e9)
	assert.Equal(t, []scenegraph.NodeID{id}, archived)
	assert.Empty(t, seg.ActiveObjects(labelChair))
	_, ok := seg.LastObserved(id)
	assert.False(t, ok)
	assert.True(t, graph.HasNode(id), "archived objects stay in the graph")
	assert.Equal(t, []scenegraph.NodeID{id}, seg.ObjectsToCheckForPlaces())

	// Archived objects are never matched again.
	seg.Reconcile(graph, LabelClusters{labelChair: {boxCluster(cloud, vec(0, 0, 0), vec(1, 1, 1), red)}}, 7e9)
	assert.Equal(t, []scenegraph.NodeID{symbolID(1)}, seg.ActiveObjects(labelChair))
	assert.Empty(t, seg.Reconcile(graph, LabelClusters{}, 8e9), "reported exactly once")
}

func TestReconcile_EarlierTimestampNotArchived(t *testing.T) {
	seg, cloud, graph := newTestSegmenter(testConfig())
	seg.Reconcile(graph, LabelClusters{labelChair: {boxCluster(cloud, vec(0, 0, 0), vec(1, 1, 1), red)}}, 20e9)

	assert.Empty(t, seg.Reconcile(graph, LabelClusters{}, 0))
	assert.Len(t, seg.ActiveObjects(labelChair), 1)
}

func TestReconcile_VanishedNodes(t *testing.T) {
	tests := []struct {
		name         string
		timestamp    int64
		wantArchived []scenegraph.NodeID
	}{
		{name: "inside horizon dropped silently", timestamp: 3e9, wantArchived: nil},
		{name: "past horizon still reported", timestamp: 60e9, wantArchived: []scenegraph.NodeID{symbolID(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, cloud, graph := newTestSegmenter(testConfig())
			seg.Reconcile(graph, LabelClusters{labelChair: {boxCluster(cloud, vec(0, 0, 0), vec(1, 1, 1), red)}}, 0)
			id := symbolID(0)
			require.NoError(t, graph.RemoveNode(id))

			archived := seg.Reconcile(graph, LabelClusters{}, tt.timestamp)
			assert.Equal(t, tt.wantArchived, archived)
			assert.Empty(t, seg.ActiveObjects(labelChair))
			assert.Empty(t, seg.ObjectsToCheckForPlaces())
			_, ok := seg.LastObserved(id)
			assert.False(t, ok)
			assert.Equal(t, 1, seg.LastReconcileStats().Vanished)
			assert.Equal(t, len(tt.wantArchived), seg.LastReconcileStats().Archived)

			assert.Empty(t, seg.Reconcile(graph, LabelClusters{}, tt.timestamp+60e9), "forgotten ids are reported once")
		})
	}
}

func TestReconcile_MergeDuplicates(t *testing.T) {
	tests := []struct {
		name      string
		first     [2][3]float64
		second    [2][3]float64
		wantAlive uint64
	}{
		{
			// Second box contains the first centre and is larger.
			name:      "older smaller object removed",
			first:     [2][3]float64{{0, 0, 0}, {1, 1, 1}},
			second:    [2][3]float64{{0.25, 0.25, 0}, {2.25, 2.25, 1}},
			wantAlive: 1,
		},
		{
			// Second box contains the first centre but is smaller.
			name:      "newer smaller object removed",
			first:     [2][3]float64{{0, 0, 0}, {10, 1, 0.125}},
			second:    [2][3]float64{{4.5, 0.25, 0}, {5.5, 2.25, 0.125}},
			wantAlive: 0,
		},
		{
			name:      "equal volume keeps the older object",
			first:     [2][3]float64{{0, 0, 0}, {4, 1, 1}},
			second:    [2][3]float64{{1.5, 0.25, 0}, {2.5, 4.25, 1}},
			wantAlive: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, cloud, graph := newTestSegmenter(testConfig())
			box := func(b [2][3]float64) cluster.Cluster {
				return boxCluster(cloud, vec(b[0][0], b[0][1], b[0][2]), vec(b[1][0], b[1][1], b[1][2]), red)
			}

			seg.Reconcile(graph, LabelClusters{labelChair: {box(tt.first)}}, 1e9)
			seg.Reconcile(graph, LabelClusters{labelChair: {box(tt.second)}}, 2e9)

			alive := symbolID(tt.wantAlive)
			removed := symbolID(1 - tt.wantAlive)

			assert.Equal(t, []scenegraph.NodeID{alive}, seg.ActiveObjects(labelChair))
			assert.True(t, graph.HasNode(alive))
			assert.False(t, graph.HasNode(removed))
			assert.NotContains(t, seg.ObjectsToCheckForPlaces(), removed)
			_, ok := seg.LastObserved(removed)
			assert.False(t, ok)
			assert.Equal(t, 1, seg.LastReconcileStats().Merged)

			// Ids are never reused after a merge.
			seg.Reconcile(graph, LabelClusters{labelChair: {box([2][3]float64{{50, 50, 0}, {51, 51, 1}})}}, 3e9)
			assert.True(t, graph.HasNode(symbolID(2)))
		})
	}
}

func TestReconcile_EmptyClusterRejected(t *testing.T) {
	seg, _, graph := newTestSegmenter(testConfig())

	seg.Reconcile(graph, LabelClusters{labelChair: {cluster.Cluster{}}}, 1e9)
	assert.Zero(t, graph.NumNodes())
	assert.Equal(t, 1, seg.LastReconcileStats().Rejected)
	assert.Equal(t, "O0", seg.NextNodeSymbol().Label())
}

func TestReconcile_FailedInsertStillAdvancesCounter(t *testing.T) {
	seg, cloud, graph := newTestSegmenter(testConfig())
	require.NoError(t, graph.EmplaceNode(scenegraph.LayerPlaces, symbolID(0), &scenegraph.PlaceAttributes{Name: "squatter"}))

	seg.Reconcile(graph, LabelClusters{labelChair: {boxCluster(cloud, vec(0, 0, 0), vec(1, 1, 1), red)}}, 1e9)
	assert.Empty(t, seg.ActiveObjects(labelChair))
	assert.Equal(t, 1, seg.LastReconcileStats().Rejected)

	seg.Reconcile(graph, LabelClusters{labelChair: {boxCluster(cloud, vec(0, 0, 0), vec(1, 1, 1), red)}}, 2e9)
	assert.Equal(t, []scenegraph.NodeID{symbolID(1)}, seg.ActiveObjects(labelChair))
}

func TestReconcile_IgnoresUnconfiguredLabels(t *testing.T) {
	seg, cloud, graph := newTestSegmenter(testConfig())
	seg.Reconcile(graph, LabelClusters{labelWall: {boxCluster(cloud, vec(0, 0, 0), vec(1, 1, 1), blue)}}, 1e9)
	assert.Zero(t, graph.NumNodes())
}

func TestReconcile_OrientedBoxes(t *testing.T) {
	cfg := testConfig()
	cfg.BoundingBoxKind = bbox.KindOBB
	seg, cloud, graph := newTestSegmenter(cfg)

	seg.Reconcile(graph, LabelClusters{labelChair: {boxCluster(cloud, vec(0, 0, 0), vec(4, 1, 0.5), red)}}, 1e9)
	attrs := objectAttrs(t, graph, symbolID(0))
	assert.Equal(t, bbox.KindOBB, attrs.BoundingBox.Kind)
	assert.InDelta(t, 2.0, attrs.BoundingBox.Volume(), 1e-6)
	assert.True(t, attrs.BoundingBox.IsInside(attrs.Position))
}

func TestPruneObjectsToCheckForPlaces(t *testing.T) {
	seg, cloud, graph := newTestSegmenter(testConfig())
	seg.Reconcile(graph, LabelClusters{labelChair: {
		boxCluster(cloud, vec(0, 0, 0), vec(1, 1, 1), red),
		boxCluster(cloud, vec(10, 0, 0), vec(11, 1, 1), red),
		boxCluster(cloud, vec(20, 0, 0), vec(21, 1, 1), red),
	}}, 1e9)
	gone, linked, waiting := symbolID(0), symbolID(1), symbolID(2)
	require.Equal(t, []scenegraph.NodeID{gone, linked, waiting}, seg.ObjectsToCheckForPlaces())

	place := scenegraph.NewNodeSymbol('p', 0).ID()
	require.NoError(t, graph.EmplaceNode(scenegraph.LayerPlaces, place, &scenegraph.PlaceAttributes{Name: "p0"}))
	require.NoError(t, graph.InsertParentEdge(place, linked))
	require.NoError(t, graph.RemoveNode(gone))

	seg.PruneObjectsToCheckForPlaces(graph)
	assert.Equal(t, []scenegraph.NodeID{waiting}, seg.ObjectsToCheckForPlaces())

	// Idempotent.
	seg.PruneObjectsToCheckForPlaces(graph)
	assert.Equal(t, []scenegraph.NodeID{waiting}, seg.ObjectsToCheckForPlaces())
}
