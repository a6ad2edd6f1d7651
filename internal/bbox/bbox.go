// Package bbox extracts axis-aligned and oriented bounding boxes from point
// sets and answers volume and containment queries against them.
package bbox

import (
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/meshseg/internal/mesh"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// containmentEpsilon absorbs floating point error on box faces so that the
// points a box was built from always test as inside it.
const containmentEpsilon = 1e-9

// Kind selects the box representation.
type Kind int

const (
	KindInvalid Kind = iota // Empty input; contains nothing
	KindAABB                // Axis-aligned in the world frame
	KindOBB                 // Oriented along the principal axes of the points
)

func (k Kind) String() string {
	switch k {
	case KindAABB:
		return "aabb"
	case KindOBB:
		return "obb"
	default:
		return "invalid"
	}
}

// ParseKind converts a config string ("aabb", "obb") to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aabb", "":
		return KindAABB, nil
	case "obb":
		return KindOBB, nil
	default:
		return KindInvalid, fmt.Errorf("unknown bounding box kind %q", s)
	}
}

var worldAxes = [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}

// BoundingBox is a box in the world frame described by its centre, its
// half extents along each box axis and the orthonormal box axes.
type BoundingBox struct {
	Kind        Kind
	Center      r3.Vec
	HalfExtents r3.Vec
	Axes        [3]r3.Vec
}

// NewAABB builds an axis-aligned box spanning min and max.
func NewAABB(min, max r3.Vec) BoundingBox {
	return BoundingBox{
		Kind:        KindAABB,
		Center:      r3.Scale(0.5, r3.Add(min, max)),
		HalfExtents: r3.Scale(0.5, r3.Sub(max, min)),
		Axes:        worldAxes,
	}
}

// Position returns the box centre.
func (b BoundingBox) Position() r3.Vec {
	return b.Center
}

// Dimensions returns the full edge lengths along the box axes.
func (b BoundingBox) Dimensions() r3.Vec {
	return r3.Scale(2, b.HalfExtents)
}

// Volume returns the box volume. Invalid boxes have zero volume.
func (b BoundingBox) Volume() float64 {
	if b.Kind == KindInvalid {
		return 0
	}
	return 8 * b.HalfExtents.X * b.HalfExtents.Y * b.HalfExtents.Z
}

// IsValid reports whether the box was built from at least one point.
func (b BoundingBox) IsValid() bool {
	return b.Kind != KindInvalid
}

// IsInside reports whether p lies inside or on the surface of the box.
func (b BoundingBox) IsInside(p r3.Vec) bool {
	if b.Kind == KindInvalid {
		return false
	}
	d := r3.Sub(p, b.Center)
	half := [3]float64{b.HalfExtents.X, b.HalfExtents.Y, b.HalfExtents.Z}
	for i, axis := range b.Axes {
		if math.Abs(r3.Dot(d, axis)) > half[i]+containmentEpsilon {
			return false
		}
	}
	return true
}

// Footprint returns the four corners of the box projected onto the
// ground plane, ordered around the perimeter.
func (b BoundingBox) Footprint() [4]r3.Vec {
	var corners [4]r3.Vec
	signs := [4][2]float64{{1, 1}, {-1, 1}, {-1, -1}, {1, -1}}
	for i, s := range signs {
		c := r3.Add(b.Center, r3.Add(
			r3.Scale(s[0]*b.HalfExtents.X, b.Axes[0]),
			r3.Scale(s[1]*b.HalfExtents.Y, b.Axes[1]),
		))
		c.Z = b.Center.Z
		corners[i] = c
	}
	return corners
}

// Extract computes a box of the requested kind around points.
// An empty point set yields an invalid box.
func Extract(points []r3.Vec, kind Kind) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{Kind: KindInvalid}
	}
	if kind == KindOBB {
		if box, ok := extractOBB(points); ok {
			return box
		}
		// Degenerate covariance: fall back to the axis-aligned box.
	}
	return extractAABB(points)
}

func extractAABB(points []r3.Vec) BoundingBox {
	min, max := points[0], points[0]
	for _, p := range points[1:] {
		min = r3.Vec{X: math.Min(min.X, p.X), Y: math.Min(min.Y, p.Y), Z: math.Min(min.Z, p.Z)}
		max = r3.Vec{X: math.Max(max.X, p.X), Y: math.Max(max.Y, p.Y), Z: math.Max(max.Z, p.Z)}
	}
	return NewAABB(min, max)
}

// extractOBB fits a box along the principal components of the points.
//
// Algorithm:
//  1. Compute the mean position
//  2. Build the 3x3 covariance matrix
//  3. Eigen-decompose it; eigenvectors ordered by descending eigenvalue
//     become the box axes (third axis re-derived for a right-handed frame)
//  4. Project points onto the axes to find extents
func extractOBB(points []r3.Vec) (BoundingBox, bool) {
	n := float64(len(points))
	var mean r3.Vec
	for _, p := range points {
		mean = r3.Add(mean, p)
	}
	mean = r3.Scale(1/n, mean)

	var cxx, cxy, cxz, cyy, cyz, czz float64
	for _, p := range points {
		d := r3.Sub(p, mean)
		cxx += d.X * d.X
		cxy += d.X * d.Y
		cxz += d.X * d.Z
		cyy += d.Y * d.Y
		cyz += d.Y * d.Z
		czz += d.Z * d.Z
	}
	cov := mat.NewSymDense(3, []float64{
		cxx / n, cxy / n, cxz / n,
		cxy / n, cyy / n, cyz / n,
		cxz / n, cyz / n, czz / n,
	})

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return BoundingBox{}, false
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Values are ascending; the principal axis is the last column.
	var axes [3]r3.Vec
	for i := 0; i < 3; i++ {
		col := 2 - i
		axes[i] = r3.Unit(r3.Vec{X: vecs.At(0, col), Y: vecs.At(1, col), Z: vecs.At(2, col)})
	}
	axes[2] = r3.Cross(axes[0], axes[1])
	if r3.Norm(axes[2]) < containmentEpsilon {
		return BoundingBox{}, false
	}
	axes[2] = r3.Unit(axes[2])

	lo := [3]float64{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64}
	hi := [3]float64{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64}
	for _, p := range points {
		d := r3.Sub(p, mean)
		for i, axis := range axes {
			proj := r3.Dot(d, axis)
			lo[i] = math.Min(lo[i], proj)
			hi[i] = math.Max(hi[i], proj)
		}
	}

	center := mean
	for i, axis := range axes {
		center = r3.Add(center, r3.Scale((lo[i]+hi[i])/2, axis))
	}

	return BoundingBox{
		Kind:        KindOBB,
		Center:      center,
		HalfExtents: r3.Vec{X: (hi[0] - lo[0]) / 2, Y: (hi[1] - lo[1]) / 2, Z: (hi[2] - lo[2]) / 2},
		Axes:        axes,
	}, true
}

// Extractor adapts Extract to mesh vertices.
type Extractor struct{}

// Extract computes a box of the requested kind around the vertex positions.
func (Extractor) Extract(vertices []mesh.Vertex, kind Kind) BoundingBox {
	return Extract(mesh.Positions(vertices), kind)
}
