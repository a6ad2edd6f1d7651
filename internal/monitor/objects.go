package monitor

import (
	"sort"

	"github.com/banshee-data/meshseg/internal/bbox"
	"github.com/banshee-data/meshseg/internal/mesh"
	"github.com/banshee-data/meshseg/internal/monitoring"
	"github.com/banshee-data/meshseg/internal/scenegraph"
	"gonum.org/v1/gonum/spatial/r3"
)

// Object is a render-ready copy of one object node.
type Object struct {
	ID       scenegraph.NodeID
	Name     string
	Label    mesh.Label
	Position r3.Vec
	Box      bbox.BoundingBox
	Color    mesh.Color
	Active   bool // still tracked by the segmenter
	Linked   bool // attached to a place
}

// ObjectSource supplies a consistent snapshot of the object layer.
type ObjectSource interface {
	Objects() []Object
}

// SourceFunc adapts a function to ObjectSource.
type SourceFunc func() []Object

// Objects implements ObjectSource.
func (f SourceFunc) Objects() []Object { return f() }

// CollectObjects copies every object node of graph. isActive may be nil.
// The caller must hold whatever lock guards attribute updates.
func CollectObjects(graph *scenegraph.Graph, isActive func(scenegraph.NodeID) bool) []Object {
	ids := graph.NodesInLayer(scenegraph.LayerObjects)
	out := make([]Object, 0, len(ids))
	for _, id := range ids {
		node, ok := graph.GetNode(id)
		if !ok {
			continue
		}
		attrs, err := scenegraph.SemanticAttrs(node)
		if err != nil {
			monitoring.Logf("[monitor] skipping %s: %v", id, err)
			continue
		}
		out = append(out, Object{
			ID:       id,
			Name:     attrs.Name,
			Label:    attrs.SemanticLabel,
			Position: attrs.Position,
			Box:      attrs.BoundingBox,
			Color:    attrs.Color,
			Active:   isActive != nil && isActive(id),
			Linked:   node.HasParent(),
		})
	}
	return out
}

// groupByLabel splits objects per label, labels ascending.
func groupByLabel(objects []Object) ([]mesh.Label, map[mesh.Label][]Object) {
	groups := make(map[mesh.Label][]Object)
	for _, o := range objects {
		groups[o.Label] = append(groups[o.Label], o)
	}
	labels := make([]mesh.Label, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels, groups
}
