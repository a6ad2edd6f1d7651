package scenegraph

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Layer identifies a scene graph layer.
type Layer int

const (
	LayerObjects Layer = 2
	LayerPlaces  Layer = 3
)

func (l Layer) String() string {
	switch l {
	case LayerObjects:
		return "objects"
	case LayerPlaces:
		return "places"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

var (
	// ErrNodeNotFound is returned when an operation references a missing node.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNodeExists is returned when emplacing a node whose id is taken.
	ErrNodeExists = errors.New("node already exists")
)

// Node is a single scene graph node. Attributes are owned by the graph and
// mutated in place through the typed accessors.
type Node struct {
	ID    NodeID
	Layer Layer

	attrs     Attributes
	parent    NodeID
	hasParent bool
	children  map[NodeID]struct{}
}

// NewNode creates a detached node. Graph stores create their own nodes;
// this is for alternative NodeStore implementations.
func NewNode(id NodeID, layer Layer, attrs Attributes) *Node {
	return &Node{ID: id, Layer: layer, attrs: attrs, children: make(map[NodeID]struct{})}
}

// Attributes returns the node's attribute variant.
func (n *Node) Attributes() Attributes {
	return n.attrs
}

// HasParent reports whether the node has been linked under a parent.
func (n *Node) HasParent() bool {
	return n.hasParent
}

// Parent returns the parent id, if any.
func (n *Node) Parent() (NodeID, bool) {
	return n.parent, n.hasParent
}

// Children returns the child ids in ascending order.
func (n *Node) Children() []NodeID {
	out := make([]NodeID, 0, len(n.children))
	for id := range n.children {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Graph is an in-memory layered scene graph.
//
// Mutating calls take the write lock so read-only consumers (HTTP debug
// handlers, plotters) can inspect the graph while a pipeline owns it.
type Graph struct {
	mu sync.RWMutex

	nodes map[NodeID]*Node

	// meshEdges maps node → mesh vertex indices it covers.
	meshEdges map[NodeID]map[int]struct{}
	// vertexNodes is the reverse lookup for undirected mesh edges.
	vertexNodes map[int]map[NodeID]struct{}
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:       make(map[NodeID]*Node),
		meshEdges:   make(map[NodeID]map[int]struct{}),
		vertexNodes: make(map[int]map[NodeID]struct{}),
	}
}

// HasNode reports whether id exists.
func (g *Graph) HasNode(id NodeID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// GetNode returns the node for id.
func (g *Graph) GetNode(id NodeID) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// EmplaceNode inserts a new node into layer.
func (g *Graph) EmplaceNode(layer Layer, id NodeID, attrs Attributes) error {
	if attrs == nil {
		return fmt.Errorf("emplace node %s: nil attributes", id)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; ok {
		return fmt.Errorf("emplace node %s: %w", id, ErrNodeExists)
	}
	g.nodes[id] = NewNode(id, layer, attrs)
	return nil
}

// RemoveNode deletes a node together with its mesh edges and structure
// edges. Children of the removed node become parentless.
func (g *Graph) RemoveNode(id NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("remove node %s: %w", id, ErrNodeNotFound)
	}

	if n.hasParent {
		if parent, ok := g.nodes[n.parent]; ok {
			delete(parent.children, id)
		}
	}
	for childID := range n.children {
		if child, ok := g.nodes[childID]; ok {
			child.hasParent = false
			child.parent = 0
		}
	}

	for vertex := range g.meshEdges[id] {
		if owners, ok := g.vertexNodes[vertex]; ok {
			delete(owners, id)
			if len(owners) == 0 {
				delete(g.vertexNodes, vertex)
			}
		}
	}
	delete(g.meshEdges, id)
	delete(g.nodes, id)
	return nil
}

// InsertMeshEdge links node id to mesh vertex. Directed edges are only
// reachable from the node; undirected edges are also indexed by vertex.
// Returns false when the node does not exist.
func (g *Graph) InsertMeshEdge(id NodeID, vertex int, directed bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return false
	}
	edges, ok := g.meshEdges[id]
	if !ok {
		edges = make(map[int]struct{})
		g.meshEdges[id] = edges
	}
	edges[vertex] = struct{}{}

	if !directed {
		owners, ok := g.vertexNodes[vertex]
		if !ok {
			owners = make(map[NodeID]struct{})
			g.vertexNodes[vertex] = owners
		}
		owners[id] = struct{}{}
	}
	return true
}

// MeshEdges returns the mesh vertices linked to id in ascending order.
func (g *Graph) MeshEdges(id NodeID) []int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]int, 0, len(g.meshEdges[id]))
	for v := range g.meshEdges[id] {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// NumMeshEdges returns the number of mesh vertices linked to id.
func (g *Graph) NumMeshEdges(id NodeID) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.meshEdges[id])
}

// NodesForVertex returns the nodes holding an undirected edge to vertex.
func (g *Graph) NodesForVertex(vertex int) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]NodeID, 0, len(g.vertexNodes[vertex]))
	for id := range g.vertexNodes[vertex] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// InsertParentEdge makes child a child of parent, replacing any previous
// parent.
func (g *Graph) InsertParentEdge(parentID, childID NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	parent, ok := g.nodes[parentID]
	if !ok {
		return fmt.Errorf("insert parent edge: parent %s: %w", parentID, ErrNodeNotFound)
	}
	child, ok := g.nodes[childID]
	if !ok {
		return fmt.Errorf("insert parent edge: child %s: %w", childID, ErrNodeNotFound)
	}
	if parentID == childID {
		return fmt.Errorf("insert parent edge: node %s cannot parent itself", childID)
	}

	if child.hasParent {
		if old, ok := g.nodes[child.parent]; ok {
			delete(old.children, childID)
		}
	}
	child.parent = parentID
	child.hasParent = true
	parent.children[childID] = struct{}{}
	return nil
}

// NodesInLayer returns the ids of all nodes in layer in ascending order.
func (g *Graph) NodesInLayer(layer Layer) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []NodeID
	for id, n := range g.nodes {
		if n.Layer == layer {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NumNodes returns the total node count.
func (g *Graph) NumNodes() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}
