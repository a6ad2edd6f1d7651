package bbox

import (
	"math"
	"testing"

	"github.com/banshee-data/meshseg/internal/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func gridPoints(min, max r3.Vec, steps int) []r3.Vec {
	var pts []r3.Vec
	for i := 0; i <= steps; i++ {
		for j := 0; j <= steps; j++ {
			for k := 0; k <= steps; k++ {
				f := func(lo, hi float64, s int) float64 { return lo + (hi-lo)*float64(s)/float64(steps) }
				pts = append(pts, r3.Vec{X: f(min.X, max.X, i), Y: f(min.Y, max.Y, j), Z: f(min.Z, max.Z, k)})
			}
		}
	}
	return pts
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("AABB")
	require.NoError(t, err)
	assert.Equal(t, KindAABB, k)

	k, err = ParseKind("obb")
	require.NoError(t, err)
	assert.Equal(t, KindOBB, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindAABB, k)

	_, err = ParseKind("sphere")
	assert.Error(t, err)

	assert.Equal(t, "obb", KindOBB.String())
	assert.Equal(t, "invalid", KindInvalid.String())
}

func TestNewAABB(t *testing.T) {
	box := NewAABB(r3.Vec{X: 0, Y: 0, Z: 0}, r3.Vec{X: 2, Y: 1, Z: 5})

	assert.Equal(t, r3.Vec{X: 1, Y: 0.5, Z: 2.5}, box.Position())
	assert.InDelta(t, 10.0, box.Volume(), 1e-12)
	assert.Equal(t, r3.Vec{X: 2, Y: 1, Z: 5}, box.Dimensions())

	assert.True(t, box.IsInside(r3.Vec{X: 1, Y: 0.5, Z: 2.5}))
	assert.True(t, box.IsInside(r3.Vec{X: 2, Y: 1, Z: 5}), "surface points are inside")
	assert.False(t, box.IsInside(r3.Vec{X: 2.1, Y: 0.5, Z: 2.5}))
	assert.False(t, box.IsInside(r3.Vec{X: 1, Y: -0.1, Z: 2.5}))
}

func TestExtract_Empty(t *testing.T) {
	box := Extract(nil, KindAABB)
	assert.Equal(t, KindInvalid, box.Kind)
	assert.Zero(t, box.Volume())
	assert.False(t, box.IsInside(r3.Vec{}))
}

func TestExtract_AABB(t *testing.T) {
	pts := []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: -1, Y: 0, Z: 1}, {X: 0, Y: 4, Z: 2}}
	box := Extract(pts, KindAABB)

	require.Equal(t, KindAABB, box.Kind)
	assert.Equal(t, r3.Vec{X: 0, Y: 2, Z: 2}, box.Center)
	assert.InDelta(t, 2*4*2, box.Volume(), 1e-12)
	for _, p := range pts {
		assert.True(t, box.IsInside(p))
	}
}

func TestExtract_SinglePointOBBFallsBack(t *testing.T) {
	box := Extract([]r3.Vec{{X: 1, Y: 1, Z: 1}}, KindOBB)

	assert.NotEqual(t, KindInvalid, box.Kind)
	assert.Zero(t, box.Volume())
	assert.True(t, box.IsInside(r3.Vec{X: 1, Y: 1, Z: 1}))
}

func TestExtract_OBBRotated(t *testing.T) {
	// A 4 x 1 x 0.5 block rotated 45 degrees about Z. Distinct extents keep
	// the principal axes well defined.
	base := gridPoints(r3.Vec{X: -2, Y: -0.5, Z: 0}, r3.Vec{X: 2, Y: 0.5, Z: 0.5}, 6)
	rot := r3.NewRotation(math.Pi/4, r3.Vec{Z: 1})
	pts := make([]r3.Vec, len(base))
	for i, p := range base {
		pts[i] = r3.Add(rot.Rotate(p), r3.Vec{X: 10, Y: 5})
	}

	obb := Extract(pts, KindOBB)
	aabb := Extract(pts, KindAABB)

	require.Equal(t, KindOBB, obb.Kind)
	assert.InDelta(t, 2.0, obb.Volume(), 1e-6)
	assert.Greater(t, aabb.Volume(), obb.Volume(), "oriented box must be tighter")
	assert.InDelta(t, 10.0, obb.Center.X, 1e-6)
	assert.InDelta(t, 5.0, obb.Center.Y, 1e-6)
	assert.InDelta(t, 0.25, obb.Center.Z, 1e-6)

	// principal axis follows the long side
	assert.InDelta(t, 1.0, math.Abs(r3.Dot(obb.Axes[0], r3.Unit(r3.Vec{X: 1, Y: 1}))), 1e-6)

	for _, p := range pts {
		assert.True(t, obb.IsInside(p))
	}
	// a corner of the axis-aligned hull is outside the oriented box
	corner := r3.Add(aabb.Center, aabb.HalfExtents)
	assert.False(t, obb.IsInside(corner))
}

func TestFootprint(t *testing.T) {
	box := NewAABB(r3.Vec{X: 0, Y: 0, Z: 0}, r3.Vec{X: 2, Y: 2, Z: 2})
	fp := box.Footprint()
	assert.Equal(t, r3.Vec{X: 2, Y: 2, Z: 1}, fp[0])
	assert.Equal(t, r3.Vec{X: 0, Y: 0, Z: 1}, fp[2])
}

func TestExtractor_Vertices(t *testing.T) {
	vertices := []mesh.Vertex{
		{Pos: r3.Vec{X: 0, Y: 0, Z: 0}},
		{Pos: r3.Vec{X: 1, Y: 2, Z: 3}},
	}
	box := Extractor{}.Extract(vertices, KindAABB)
	assert.InDelta(t, 6.0, box.Volume(), 1e-12)
}
