package mesh

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Vertex is a single mesh vertex with its world position and semantic color.
type Vertex struct {
	Pos   r3.Vec // World frame position (metres)
	Color Color
}

// Cloud is the full mesh vertex buffer. Indices into Vertices are the
// vertex indices used throughout the segmenter and the scene graph.
type Cloud struct {
	Vertices []Vertex
}

// NewCloud creates an empty cloud with room for capacity vertices.
func NewCloud(capacity int) *Cloud {
	return &Cloud{Vertices: make([]Vertex, 0, capacity)}
}

// Len returns the number of vertices in the buffer.
func (c *Cloud) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Vertices)
}

// At returns the vertex at idx, or false if idx is out of range.
func (c *Cloud) At(idx int) (Vertex, bool) {
	if c == nil || idx < 0 || idx >= len(c.Vertices) {
		return Vertex{}, false
	}
	return c.Vertices[idx], true
}

// Append adds vertices to the buffer and returns the index of the first
// appended vertex.
func (c *Cloud) Append(vertices ...Vertex) int {
	first := len(c.Vertices)
	c.Vertices = append(c.Vertices, vertices...)
	return first
}

// Subset copies the vertices at the given indices. Out-of-range indices
// are skipped.
func (c *Cloud) Subset(indices []int) []Vertex {
	out := make([]Vertex, 0, len(indices))
	for _, idx := range indices {
		if v, ok := c.At(idx); ok {
			out = append(out, v)
		}
	}
	return out
}

// Positions extracts the positions of a vertex slice.
func Positions(vertices []Vertex) []r3.Vec {
	out := make([]r3.Vec, len(vertices))
	for i, v := range vertices {
		out[i] = v.Pos
	}
	return out
}
