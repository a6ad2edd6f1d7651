package cluster

import (
	"math"

	"github.com/banshee-data/meshseg/internal/mesh"
)

// EstimatedPointsPerCell is used for initial spatial index capacity estimation.
const EstimatedPointsPerCell = 4

type cellKey struct {
	x, y, z int64
}

// SpatialIndex provides radius queries over a subset of cloud vertices
// using a regular 3-D grid. Cell size should approximately match the
// query radius so a query only needs the 3x3x3 neighbourhood.
type SpatialIndex struct {
	CellSize float64
	Grid     map[cellKey][]int // Cell → vertex indices
}

// NewSpatialIndex creates a spatial index with the specified cell size.
func NewSpatialIndex(cellSize float64) *SpatialIndex {
	return &SpatialIndex{
		CellSize: cellSize,
		Grid:     make(map[cellKey][]int),
	}
}

// Build populates the index with the given vertex indices of cloud.
// Indices that are out of range are ignored.
func (si *SpatialIndex) Build(cloud *mesh.Cloud, indices []int) {
	si.Grid = make(map[cellKey][]int, len(indices)/EstimatedPointsPerCell+1)

	for _, idx := range indices {
		v, ok := cloud.At(idx)
		if !ok {
			continue
		}
		key := si.cellOf(v.Pos.X, v.Pos.Y, v.Pos.Z)
		si.Grid[key] = append(si.Grid[key], idx)
	}
}

func (si *SpatialIndex) cellOf(x, y, z float64) cellKey {
	return cellKey{
		x: int64(math.Floor(x / si.CellSize)),
		y: int64(math.Floor(y / si.CellSize)),
		z: int64(math.Floor(z / si.CellSize)),
	}
}

// RegionQuery returns the indexed vertex indices within radius of the
// vertex at idx (3-D Euclidean distance, inclusive). The query vertex
// itself is included when indexed.
func (si *SpatialIndex) RegionQuery(cloud *mesh.Cloud, idx int, radius float64) []int {
	p, ok := cloud.At(idx)
	if !ok {
		return nil
	}
	neighbors := []int{}
	r2 := radius * radius // squared distance avoids sqrt

	base := si.cellOf(p.Pos.X, p.Pos.Y, p.Pos.Z)
	reach := int64(1)
	if radius > si.CellSize {
		reach = int64(math.Ceil(radius / si.CellSize))
	}

	for dx := -reach; dx <= reach; dx++ {
		for dy := -reach; dy <= reach; dy++ {
			for dz := -reach; dz <= reach; dz++ {
				key := cellKey{x: base.x + dx, y: base.y + dy, z: base.z + dz}
				for _, candidateIdx := range si.Grid[key] {
					c := cloud.Vertices[candidateIdx].Pos
					ddx := c.X - p.Pos.X
					ddy := c.Y - p.Pos.Y
					ddz := c.Z - p.Pos.Z
					if ddx*ddx+ddy*ddy+ddz*ddz <= r2 {
						neighbors = append(neighbors, candidateIdx)
					}
				}
			}
		}
	}

	return neighbors
}
