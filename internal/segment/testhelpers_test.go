package segment

import (
	"testing"

	"github.com/banshee-data/meshseg/internal/bbox"
	"github.com/banshee-data/meshseg/internal/cluster"
	"github.com/banshee-data/meshseg/internal/mesh"
	"github.com/banshee-data/meshseg/internal/scenegraph"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	red   = mesh.Color{R: 255, A: 255}
	green = mesh.Color{G: 255, A: 255}
	blue  = mesh.Color{B: 255, A: 255}
	grey  = mesh.Color{R: 128, G: 128, B: 128, A: 255}
)

const (
	labelChair mesh.Label = 3
	labelTable mesh.Label = 4
	labelWall  mesh.Label = 9
)

func testLabelMap() *mesh.LabelMap {
	return mesh.NewLabelMap(
		mesh.LabelEntry{Name: "chair", Label: labelChair, Color: red},
		mesh.LabelEntry{Name: "table", Label: labelTable, Color: green},
		mesh.LabelEntry{Name: "wall", Label: labelWall, Color: blue},
	)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Labels = []mesh.Label{labelTable, labelChair}
	cfg.MinClusterSize = 2
	cfg.ArchiveHorizonS = 5
	return cfg
}

func newTestSegmenter(cfg Config) (*MeshSegmenter, *mesh.Cloud, *scenegraph.Graph) {
	cloud := mesh.NewCloud(64)
	return NewMeshSegmenter(cfg, cloud), cloud, scenegraph.NewGraph()
}

// boxCluster appends the eight corners of the axis-aligned box [min, max]
// to cloud and returns them as a cluster. Its AABB is exactly [min, max] and
// its centroid is the box centre.
func boxCluster(cloud *mesh.Cloud, min, max r3.Vec, color mesh.Color) cluster.Cluster {
	first := cloud.Len()
	for i := 0; i < 8; i++ {
		p := min
		if i&1 != 0 {
			p.X = max.X
		}
		if i&2 != 0 {
			p.Y = max.Y
		}
		if i&4 != 0 {
			p.Z = max.Z
		}
		cloud.Append(mesh.Vertex{Pos: p, Color: color})
	}
	indices := make([]int, 8)
	for i := range indices {
		indices[i] = first + i
	}
	return cluster.FromIndices(cloud, indices)
}

func vec(x, y, z float64) r3.Vec {
	return r3.Vec{X: x, Y: y, Z: z}
}

// fakeClusterer returns every input index as one cluster and records the
// calls it receives.
type fakeClusterer struct {
	calls [][]int
}

func (f *fakeClusterer) Extract(_ *mesh.Cloud, indices []int, _ cluster.Params) [][]int {
	f.calls = append(f.calls, append([]int(nil), indices...))
	if len(indices) == 0 {
		return nil
	}
	return [][]int{append([]int(nil), indices...)}
}

// fakeBoxes hands out a fixed sequence of boxes, one per Extract call,
// repeating the last one when the sequence runs out.
type fakeBoxes struct {
	boxes []bbox.BoundingBox
	calls int
	kinds []bbox.Kind
}

func (f *fakeBoxes) Extract(_ []mesh.Vertex, kind bbox.Kind) bbox.BoundingBox {
	f.kinds = append(f.kinds, kind)
	i := f.calls
	if i >= len(f.boxes) {
		i = len(f.boxes) - 1
	}
	f.calls++
	return f.boxes[i]
}

func objectAttrs(t *testing.T, g *scenegraph.Graph, id scenegraph.NodeID) *scenegraph.ObjectAttributes {
	t.Helper()
	node, ok := g.GetNode(id)
	if !ok {
		t.Fatalf("node %s not in graph", id)
	}
	attrs, err := scenegraph.ObjectAttrs(node)
	if err != nil {
		t.Fatalf("node %s: %v", id, err)
	}
	return attrs
}
