package pipeline

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sync"
	"time"

	"github.com/banshee-data/meshseg/internal/mesh"
	"github.com/banshee-data/meshseg/internal/scenegraph"
	"github.com/banshee-data/meshseg/internal/segment"
	"github.com/banshee-data/meshseg/internal/storage/sqlite"
	"github.com/banshee-data/meshseg/internal/timeutil"
	"gonum.org/v1/gonum/spatial/r3"
)

// PlacePrefix is the node symbol key of places created by AddPlace.
const PlacePrefix = 'p'

// ArchiveWriter persists objects retired by the archive horizon.
// *sqlite.ArchiveStore implements it.
type ArchiveWriter interface {
	ArchiveObjects(ctx context.Context, objects []sqlite.ArchivedObject) error
}

var _ ArchiveWriter = (*sqlite.ArchiveStore)(nil)

// isNilInterface checks if an interface value is nil or contains a nil pointer.
func isNilInterface(i interface{}) bool {
	if i == nil {
		return true
	}
	v := reflect.ValueOf(i)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// MeshUpdate is one cycle of input: the vertex indices touched since the
// previous cycle, the reference position of the active region (nil to
// disable the filter) and the cycle timestamp.
type MeshUpdate struct {
	TimestampNs int64
	Indices     []int
	Position    *r3.Vec
}

// CycleResult summarises one Process call.
type CycleResult struct {
	Cycle       int
	TimestampNs int64
	Clusters    int
	Created     int
	Matched     int
	Merged      int
	Archived    []scenegraph.NodeID
	Persisted   int // archived objects written to the ArchiveWriter
	Linked      int // objects attached to a place this cycle
	Pending     int // pending-linkage set size after the cycle
	Active      int
	Pruned      bool
	Duration    time.Duration
}

// ObjectPipeline runs the segmenter over successive mesh updates and keeps
// the scene graph's object layer current. Process calls are serialized:
// the segmenter is not safe for concurrent cycles.
type ObjectPipeline struct {
	Config Config

	// Archive is optional; archived objects are only logged without it.
	Archive ArchiveWriter
	// Clock stamps cycle durations. Defaults to the real clock.
	Clock timeutil.Clock

	mu        sync.Mutex
	segmenter *segment.MeshSegmenter
	graph     *scenegraph.Graph
	labels    segment.LabelResolver
	cycles    int
	nextPlace scenegraph.NodeSymbol
	last      CycleResult
}

// NewObjectPipeline creates a pipeline over the shared vertex buffer and
// graph. labels translates vertex colors to semantic labels.
func NewObjectPipeline(cfg Config, vertices *mesh.Cloud, graph *scenegraph.Graph, labels segment.LabelResolver) *ObjectPipeline {
	return &ObjectPipeline{
		Config:    cfg,
		Clock:     timeutil.RealClock{},
		segmenter: segment.NewMeshSegmenter(cfg.Segmenter, vertices),
		graph:     graph,
		labels:    labels,
		nextPlace: scenegraph.NewNodeSymbol(PlacePrefix, 0),
	}
}

// Segmenter returns the owned segmenter, for registering callbacks or
// swapping collaborators before the first cycle.
func (p *ObjectPipeline) Segmenter() *segment.MeshSegmenter {
	return p.segmenter
}

// Process runs one full cycle. The returned error reports a failed archive
// write; the graph and segmenter state are updated regardless.
func (p *ObjectPipeline) Process(ctx context.Context, update MeshUpdate) (CycleResult, error) {
	if err := ctx.Err(); err != nil {
		return CycleResult{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.Clock.Now()
	p.cycles++
	result := CycleResult{Cycle: p.cycles, TimestampNs: update.TimestampNs}

	tracef("[ObjectPipeline] cycle %d: %d indices @ %d [ns]", p.cycles, len(update.Indices), update.TimestampNs)

	// Stage 1: detection
	clusters := p.segmenter.Detect(p.labels, update.Indices, update.Position)
	for _, cs := range clusters {
		result.Clusters += len(cs)
	}

	// Stage 2: reconciliation. Observation times are captured first so
	// archived records can carry them.
	lastSeen := p.observedTimes()
	result.Archived = p.segmenter.Reconcile(p.graph, clusters, update.TimestampNs)
	stats := p.segmenter.LastReconcileStats()
	result.Created, result.Matched, result.Merged = stats.Created, stats.Matched, stats.Merged

	// Stage 3: persistence of archived objects
	var archiveErr error
	if len(result.Archived) > 0 {
		records := p.archivedRecords(result.Archived, lastSeen, update.TimestampNs)
		if !isNilInterface(p.Archive) && len(records) > 0 {
			if err := p.Archive.ArchiveObjects(ctx, records); err != nil {
				opsf("[ObjectPipeline] failed to archive %d objects: %v", len(records), err)
				archiveErr = fmt.Errorf("archive objects: %w", err)
			} else {
				result.Persisted = len(records)
			}
		}
		diagf("[ObjectPipeline] archived %d objects", len(result.Archived))
	}

	// Stage 4: place linking
	result.Linked = p.linkPlaces()

	// Stage 5: pending-linkage maintenance
	interval := p.Config.PruneInterval
	if interval < 1 {
		interval = 1
	}
	if p.cycles%interval == 0 {
		p.segmenter.PruneObjectsToCheckForPlaces(p.graph)
		result.Pruned = true
	}

	result.Pending = len(p.segmenter.ObjectsToCheckForPlaces())
	result.Active = p.segmenter.NumActiveObjects()
	result.Duration = p.Clock.Since(start)
	p.last = result

	diagf("[ObjectPipeline] cycle %d: %d clusters, %d created, %d matched, %d merged, %d active, %d pending (%v)",
		result.Cycle, result.Clusters, result.Created, result.Matched, result.Merged,
		result.Active, result.Pending, result.Duration)

	return result, archiveErr
}

// observedTimes snapshots the last observation time of every live object.
func (p *ObjectPipeline) observedTimes() map[scenegraph.NodeID]int64 {
	out := make(map[scenegraph.NodeID]int64, p.segmenter.NumActiveObjects())
	for _, label := range p.segmenter.Labels() {
		for _, id := range p.segmenter.ActiveObjects(label) {
			if ts, ok := p.segmenter.LastObserved(id); ok {
				out[id] = ts
			}
		}
	}
	return out
}

func (p *ObjectPipeline) archivedRecords(ids []scenegraph.NodeID, lastSeen map[scenegraph.NodeID]int64, timestamp int64) []sqlite.ArchivedObject {
	records := make([]sqlite.ArchivedObject, 0, len(ids))
	for _, id := range ids {
		node, ok := p.graph.GetNode(id)
		if !ok {
			// Removed from the graph before it expired; nothing to persist.
			tracef("[ObjectPipeline] archived object %s no longer in graph", id)
			continue
		}
		attrs, err := scenegraph.SemanticAttrs(node)
		if err != nil {
			opsf("[ObjectPipeline] archived object %s: %v", id, err)
			continue
		}
		box := attrs.BoundingBox
		records = append(records, sqlite.ArchivedObject{
			NodeID:        id,
			Name:          attrs.Name,
			SemanticLabel: attrs.SemanticLabel,
			Position:      attrs.Position,
			BoxKind:       box.Kind.String(),
			BoxCenter:     box.Position(),
			BoxDimensions: box.Dimensions(),
			BoxVolume:     box.Volume(),
			Color:         attrs.Color,
			MeshEdges:     p.graph.NumMeshEdges(id),
			LastSeenNs:    lastSeen[id],
			ArchivedAtNs:  timestamp,
		})
		tracef("[ObjectPipeline] archived %s (label %d)", attrs.Name, attrs.SemanticLabel)
	}
	return records
}

// linkPlaces attaches every pending object to the nearest place within
// PlaceLinkRadiusM and clears it from the pending set. Objects with no
// place in range stay pending.
func (p *ObjectPipeline) linkPlaces() int {
	if p.Config.PlaceLinkRadiusM <= 0 {
		return 0
	}
	places := p.graph.NodesInLayer(scenegraph.LayerPlaces)
	if len(places) == 0 {
		return 0
	}

	linked := 0
	for _, id := range p.segmenter.ObjectsToCheckForPlaces() {
		node, ok := p.graph.GetNode(id)
		if !ok {
			continue
		}
		pos := node.Attributes().NodePosition()

		best, bestDist := scenegraph.NodeID(0), math.Inf(1)
		for _, placeID := range places {
			place, ok := p.graph.GetNode(placeID)
			if !ok {
				continue
			}
			d := r3.Norm(r3.Sub(place.Attributes().NodePosition(), pos))
			if d <= p.Config.PlaceLinkRadiusM && d < bestDist {
				best, bestDist = placeID, d
			}
		}
		if math.IsInf(bestDist, 1) {
			continue
		}

		if err := p.graph.InsertParentEdge(best, id); err != nil {
			opsf("[ObjectPipeline] failed to link %s to %s: %v", id, best, err)
			continue
		}
		p.segmenter.ClearObjectToCheck(id)
		linked++
		tracef("[ObjectPipeline] linked %s to place %s (%.2f m)", id, best, bestDist)
	}
	return linked
}

// AddPlace inserts a place node at position and returns its id.
func (p *ObjectPipeline) AddPlace(position r3.Vec, distance float64) (scenegraph.NodeID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	symbol := p.nextPlace
	p.nextPlace = symbol.Next()
	attrs := &scenegraph.PlaceAttributes{Name: symbol.Label(), Position: position, Distance: distance}
	if err := p.graph.EmplaceNode(scenegraph.LayerPlaces, symbol.ID(), attrs); err != nil {
		return 0, fmt.Errorf("add place: %w", err)
	}
	return symbol.ID(), nil
}

// View runs fn with exclusive access to the graph and segmenter. Readers
// outside the cycle loop (HTTP handlers, plotters) must go through View:
// object attributes are updated in place during Process.
func (p *ObjectPipeline) View(fn func(graph *scenegraph.Graph, seg *segment.MeshSegmenter)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.graph, p.segmenter)
}

// LastResult returns the summary of the most recent cycle.
func (p *ObjectPipeline) LastResult() CycleResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Cycles returns the number of completed Process calls.
func (p *ObjectPipeline) Cycles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycles
}
