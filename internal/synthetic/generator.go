// Package synthetic generates a labeled, growing mesh for demos and tests:
// a robot drives along the X axis and each frame reveals floor and object
// vertices near it.
package synthetic

import (
	"math/rand"
	"time"

	"github.com/banshee-data/meshseg/internal/mesh"
	"github.com/banshee-data/meshseg/internal/timeutil"
	"gonum.org/v1/gonum/spatial/r3"
)

// Labels used by the built-in scene.
const (
	LabelFloor mesh.Label = 1
	LabelChair mesh.Label = 3
	LabelTable mesh.Label = 4
	LabelPlant mesh.Label = 5
	LabelWall  mesh.Label = 9
)

// DefaultLabelMap returns the color table of the built-in scene.
func DefaultLabelMap() *mesh.LabelMap {
	return mesh.NewLabelMap(
		mesh.LabelEntry{Name: "floor", Label: LabelFloor, Color: mesh.Color{R: 128, G: 128, B: 128, A: 255}},
		mesh.LabelEntry{Name: "chair", Label: LabelChair, Color: mesh.Color{R: 220, G: 20, B: 60, A: 255}},
		mesh.LabelEntry{Name: "table", Label: LabelTable, Color: mesh.Color{R: 255, G: 165, B: 0, A: 255}},
		mesh.LabelEntry{Name: "plant", Label: LabelPlant, Color: mesh.Color{R: 34, G: 139, B: 34, A: 255}},
		mesh.LabelEntry{Name: "wall", Label: LabelWall, Color: mesh.Color{R: 70, G: 130, B: 180, A: 255}},
	)
}

// SceneObject is a box-shaped object in the synthetic world. It is visible
// from AppearFrame until VanishFrame (exclusive); VanishFrame zero means
// it never disappears.
type SceneObject struct {
	Name        string
	Label       mesh.Label
	Min, Max    r3.Vec
	AppearFrame int
	VanishFrame int
}

func (o SceneObject) visible(frame int) bool {
	return frame >= o.AppearFrame && (o.VanishFrame == 0 || frame < o.VanishFrame)
}

func (o SceneObject) center() r3.Vec {
	return r3.Scale(0.5, r3.Add(o.Min, o.Max))
}

// DefaultScene returns a corridor of furniture along the X axis. The second
// chair is removed partway through the run.
func DefaultScene() []SceneObject {
	return []SceneObject{
		{Name: "chair-a", Label: LabelChair, Min: r3.Vec{X: 2, Y: 1}, Max: r3.Vec{X: 2.5, Y: 1.5, Z: 0.9}},
		{Name: "table-a", Label: LabelTable, Min: r3.Vec{X: 4, Y: -2}, Max: r3.Vec{X: 5.5, Y: -1.2, Z: 0.75}},
		{Name: "chair-b", Label: LabelChair, Min: r3.Vec{X: 7, Y: 1.2}, Max: r3.Vec{X: 7.5, Y: 1.7, Z: 0.9}, VanishFrame: 40},
		{Name: "plant-a", Label: LabelPlant, Min: r3.Vec{X: 10, Y: -1.5}, Max: r3.Vec{X: 10.4, Y: -1.1, Z: 1.2}},
		{Name: "table-b", Label: LabelTable, Min: r3.Vec{X: 14, Y: 1}, Max: r3.Vec{X: 15.2, Y: 2, Z: 0.75}},
		{Name: "chair-c", Label: LabelChair, Min: r3.Vec{X: 16, Y: 1.2}, Max: r3.Vec{X: 16.5, Y: 1.7, Z: 0.9}, AppearFrame: 25},
		{Name: "wall-a", Label: LabelWall, Min: r3.Vec{X: 0, Y: 3}, Max: r3.Vec{X: 20, Y: 3.2, Z: 2.5}},
	}
}

// Frame is one generator step.
type Frame struct {
	Index       int
	TimestampNs int64
	Indices     []int  // vertices appended this frame
	Position    r3.Vec // robot position
	Place       *r3.Vec
}

// Generator grows a mesh.Cloud frame by frame.
type Generator struct {
	Cloud    *mesh.Cloud
	LabelMap *mesh.LabelMap
	Objects  []SceneObject

	// Configuration
	FrameInterval   time.Duration // simulated time between frames
	SpeedMPS        float64       // robot speed along +X
	SensorRange     float64       // metres; objects closer than this are observed
	PointsPerObject int           // surface samples per visible object per frame
	FloorPoints     int           // floor samples per frame
	PlaceEvery      int           // frames between places; zero disables places

	clock   timeutil.Clock
	rng     *rand.Rand
	frame   int
	startNs int64
}

// NewGenerator creates a generator over cloud with the default scene.
// The clock provides the timestamp of frame zero.
func NewGenerator(cloud *mesh.Cloud, clock timeutil.Clock, seed int64) *Generator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Generator{
		Cloud:           cloud,
		LabelMap:        DefaultLabelMap(),
		Objects:         DefaultScene(),
		FrameInterval:   200 * time.Millisecond,
		SpeedMPS:        1.0,
		SensorRange:     4.0,
		PointsPerObject: 150,
		FloorPoints:     40,
		PlaceEvery:      5,
		clock:           clock,
		rng:             rand.New(rand.NewSource(seed)),
		startNs:         clock.Now().UnixNano(),
	}
}

// Frames returns the number of frames generated so far.
func (g *Generator) Frames() int {
	return g.frame
}

// NextFrame advances the robot and appends the newly observed vertices.
func (g *Generator) NextFrame() Frame {
	idx := g.frame
	g.frame++

	elapsed := time.Duration(idx) * g.FrameInterval
	pos := r3.Vec{X: g.SpeedMPS * elapsed.Seconds()}

	f := Frame{
		Index:       idx,
		TimestampNs: g.startNs + elapsed.Nanoseconds(),
		Position:    pos,
	}

	first := g.Cloud.Len()
	g.appendFloor(pos)
	for _, o := range g.Objects {
		if !o.visible(idx) {
			continue
		}
		if r3.Norm(r3.Sub(o.center(), pos)) > g.SensorRange {
			continue
		}
		g.appendObject(o)
	}
	for i := first; i < g.Cloud.Len(); i++ {
		f.Indices = append(f.Indices, i)
	}

	if g.PlaceEvery > 0 && idx%g.PlaceEvery == 0 {
		place := pos
		f.Place = &place
	}
	return f
}

func (g *Generator) colorOf(label mesh.Label) mesh.Color {
	c, ok := g.LabelMap.ColorOf(label)
	if !ok {
		return mesh.Color{A: 255}
	}
	return c
}

func (g *Generator) appendFloor(pos r3.Vec) {
	col := g.colorOf(LabelFloor)
	for i := 0; i < g.FloorPoints; i++ {
		g.Cloud.Append(mesh.Vertex{
			Pos: r3.Vec{
				X: pos.X + (g.rng.Float64()*2-1)*g.SensorRange,
				Y: (g.rng.Float64()*2 - 1) * g.SensorRange,
			},
			Color: col,
		})
	}
}

// appendObject samples points uniformly inside the object's box.
func (g *Generator) appendObject(o SceneObject) {
	col := g.colorOf(o.Label)
	size := r3.Sub(o.Max, o.Min)
	for i := 0; i < g.PointsPerObject; i++ {
		g.Cloud.Append(mesh.Vertex{
			Pos: r3.Vec{
				X: o.Min.X + g.rng.Float64()*size.X,
				Y: o.Min.Y + g.rng.Float64()*size.Y,
				Z: o.Min.Z + g.rng.Float64()*size.Z,
			},
			Color: col,
		})
	}
}
