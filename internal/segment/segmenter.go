package segment

import (
	"github.com/banshee-data/meshseg/internal/bbox"
	"github.com/banshee-data/meshseg/internal/cluster"
	"github.com/banshee-data/meshseg/internal/mesh"
	"github.com/banshee-data/meshseg/internal/monitoring"
	"github.com/banshee-data/meshseg/internal/scenegraph"
)

// LabelIndices maps a semantic label to the active vertex indices carrying
// it, in first-seen order.
type LabelIndices map[mesh.Label][]int

// LabelClusters maps a semantic label to the clusters detected for it in
// one cycle.
type LabelClusters map[mesh.Label][]cluster.Cluster

// LabelResolver translates a vertex color to a semantic label.
type LabelResolver interface {
	LabelOf(c mesh.Color) (mesh.Label, bool)
}

// BoxExtractor computes bounding boxes for cluster point sets.
type BoxExtractor interface {
	Extract(vertices []mesh.Vertex, kind bbox.Kind) bbox.BoundingBox
}

// NodeStore is the subset of the scene graph the segmenter mutates.
// *scenegraph.Graph implements it.
type NodeStore interface {
	HasNode(id scenegraph.NodeID) bool
	GetNode(id scenegraph.NodeID) (*scenegraph.Node, bool)
	EmplaceNode(layer scenegraph.Layer, id scenegraph.NodeID, attrs scenegraph.Attributes) error
	RemoveNode(id scenegraph.NodeID) error
	InsertMeshEdge(id scenegraph.NodeID, vertex int, directed bool) bool
}

// DetectionCallback observes every Detect call after clustering. Callbacks
// must not mutate the cloud or the index sets they are given.
type DetectionCallback func(vertices *mesh.Cloud, activeIndices []int, labelIndices LabelIndices)

// DetectionStats summarises the most recent Detect call.
type DetectionStats struct {
	InputIndices     int
	ActiveIndices    int
	BadIndices       int // out of range of the vertex buffer
	UnlabeledIndices int // color not in the label map
	SkippedLabels    int // below MinClusterSize, never sent to the clusterer
	Clusters         int
	SeenLabels       []mesh.Label
}

// ReconcileStats summarises the most recent Reconcile call.
type ReconcileStats struct {
	Archived int // retired by the archive horizon
	Vanished int // active ids whose node disappeared from the graph
	Matched  int // clusters that matched a live object
	Grown    int // matches that replaced the object's box and position
	Created  int
	Rejected int // empty clusters or failed inserts
	Merged   int // objects removed as duplicates
}

// MeshSegmenter detects object clusters in the mesh and keeps the object
// layer of the scene graph in sync with them.
type MeshSegmenter struct {
	Config Config

	// Clusterer and Boxes default to the Euclidean clusterer and the PCA box
	// extractor; tests replace them with deterministic fakes.
	Clusterer cluster.Clusterer
	Boxes     BoxExtractor

	vertices  *mesh.Cloud
	labels    []mesh.Label
	labelSet  map[mesh.Label]bool
	callbacks []DetectionCallback
	state     trackingState

	lastDetect    DetectionStats
	lastReconcile ReconcileStats
}

// NewMeshSegmenter creates a segmenter over the shared mesh vertex buffer.
// The buffer may keep growing between cycles.
func NewMeshSegmenter(cfg Config, vertices *mesh.Cloud) *MeshSegmenter {
	labels := cfg.sortedLabels()
	labelSet := make(map[mesh.Label]bool, len(labels))
	for _, l := range labels {
		labelSet[l] = true
	}

	monitoring.Debugf(1, "[MeshSegmenter] detecting objects for labels: %v", labels)

	return &MeshSegmenter{
		Config:    cfg,
		Clusterer: cluster.NewEuclideanClusterer(),
		Boxes:     bbox.Extractor{},
		vertices:  vertices,
		labels:    labels,
		labelSet:  labelSet,
		state:     newTrackingState(cfg.Prefix, labels),
	}
}

// AddCallback registers an observer invoked at the end of every Detect call,
// in registration order.
func (s *MeshSegmenter) AddCallback(cb DetectionCallback) {
	s.callbacks = append(s.callbacks, cb)
}

// Labels returns the labels of interest in ascending order.
func (s *MeshSegmenter) Labels() []mesh.Label {
	return append([]mesh.Label(nil), s.labels...)
}

// ActiveObjects returns the live object ids of label in creation order.
func (s *MeshSegmenter) ActiveObjects(label mesh.Label) []scenegraph.NodeID {
	return s.state.activeObjects[label].sorted()
}

// NumActiveObjects returns the number of live objects across all labels.
func (s *MeshSegmenter) NumActiveObjects() int {
	return len(s.state.lastSeen)
}

// LastObserved returns the timestamp of the last observation of a live
// object.
func (s *MeshSegmenter) LastObserved(id scenegraph.NodeID) (int64, bool) {
	ts, ok := s.state.lastSeen[id]
	return ts, ok
}

// ObjectsToCheckForPlaces returns the pending-linkage set in ascending order.
func (s *MeshSegmenter) ObjectsToCheckForPlaces() []scenegraph.NodeID {
	return s.state.pendingLinks.sorted()
}

// ClearObjectToCheck removes id from the pending-linkage set once a
// downstream consumer has processed it.
func (s *MeshSegmenter) ClearObjectToCheck(id scenegraph.NodeID) {
	delete(s.state.pendingLinks, id)
}

// NextNodeSymbol returns the symbol the next created object will receive.
func (s *MeshSegmenter) NextNodeSymbol() scenegraph.NodeSymbol {
	return s.state.nextNodeID
}

// LastDetectionStats returns the counters of the most recent Detect call.
func (s *MeshSegmenter) LastDetectionStats() DetectionStats {
	return s.lastDetect
}

// LastReconcileStats returns the counters of the most recent Reconcile call.
func (s *MeshSegmenter) LastReconcileStats() ReconcileStats {
	return s.lastReconcile
}
