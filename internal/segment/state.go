package segment

import (
	"sort"

	"github.com/banshee-data/meshseg/internal/mesh"
	"github.com/banshee-data/meshseg/internal/scenegraph"
)

type idSet map[scenegraph.NodeID]struct{}

// sorted returns the ids in ascending order. Ids are allocated from a
// monotonic counter, so this is creation order.
func (s idSet) sorted() []scenegraph.NodeID {
	out := make([]scenegraph.NodeID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// trackingState is the per-run bookkeeping of a MeshSegmenter.
//
// Invariants after every Reconcile:
//   - every id in activeObjects has exactly one entry in lastSeen and
//     vice versa
//   - an id removed from the graph by the segmenter is absent from
//     activeObjects, lastSeen and pendingLinks
type trackingState struct {
	activeObjects map[mesh.Label]idSet
	lastSeen      map[scenegraph.NodeID]int64 // unix nanos of last confirming observation
	pendingLinks  idSet                       // objects awaiting place linking
	nextNodeID    scenegraph.NodeSymbol       // never rewound
}

func newTrackingState(prefix byte, labels []mesh.Label) trackingState {
	st := trackingState{
		activeObjects: make(map[mesh.Label]idSet, len(labels)),
		lastSeen:      make(map[scenegraph.NodeID]int64),
		pendingLinks:  make(idSet),
		nextNodeID:    scenegraph.NewNodeSymbol(prefix, 0),
	}
	for _, l := range labels {
		st.activeObjects[l] = make(idSet)
	}
	return st
}

// track registers a freshly created object.
func (st *trackingState) track(label mesh.Label, id scenegraph.NodeID, timestamp int64) {
	st.activeObjects[label][id] = struct{}{}
	st.lastSeen[id] = timestamp
	st.pendingLinks[id] = struct{}{}
}

// untrack drops id from the active index and the timestamp map. The
// pending-linkage entry is kept: the node is still in the graph.
func (st *trackingState) untrack(label mesh.Label, id scenegraph.NodeID) {
	delete(st.activeObjects[label], id)
	delete(st.lastSeen, id)
}

// forget drops every trace of id, for objects no longer in the graph.
func (st *trackingState) forget(label mesh.Label, id scenegraph.NodeID) {
	st.untrack(label, id)
	delete(st.pendingLinks, id)
}
