package cluster

import (
	"github.com/banshee-data/meshseg/internal/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Centroid incrementally accumulates the mean of added points.
type Centroid struct {
	sum   r3.Vec
	count int
}

// Add accumulates a point.
func (c *Centroid) Add(p r3.Vec) {
	c.sum = r3.Add(c.sum, p)
	c.count++
}

// Count returns the number of accumulated points.
func (c Centroid) Count() int {
	return c.count
}

// Get returns the mean of the accumulated points, or the origin when no
// points were added.
func (c Centroid) Get() r3.Vec {
	if c.count == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/float64(c.count), c.sum)
}

// Cluster is one connected group of same-label vertices found in a single
// detection cycle. Points[i] is the vertex at Indices[i].
type Cluster struct {
	Indices  []int
	Points   []mesh.Vertex
	Centroid Centroid
}

// FromIndices builds a Cluster from a membership list, copying the member
// vertices from cloud and accumulating their centroid. Indices outside the
// cloud are dropped.
func FromIndices(cloud *mesh.Cloud, indices []int) Cluster {
	c := Cluster{
		Indices: make([]int, 0, len(indices)),
		Points:  make([]mesh.Vertex, 0, len(indices)),
	}
	for _, idx := range indices {
		v, ok := cloud.At(idx)
		if !ok {
			continue
		}
		c.Indices = append(c.Indices, idx)
		c.Points = append(c.Points, v)
		c.Centroid.Add(v.Pos)
	}
	return c
}

// Empty reports whether the cluster has no member points.
func (c Cluster) Empty() bool {
	return len(c.Points) == 0
}
