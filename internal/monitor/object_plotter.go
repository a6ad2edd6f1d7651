package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/banshee-data/meshseg/internal/mesh"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ObjectPlotter draws a top-down view of the object layer: one box
// footprint outline and one position marker per object, colored by the
// object's semantic color.
type ObjectPlotter struct {
	Title string
	// LabelNames maps labels to legend entries; unnamed labels print their id.
	LabelNames map[mesh.Label]string
	Width      vg.Length
	Height     vg.Length
}

// NewObjectPlotter creates a plotter with a 10x10 inch canvas.
func NewObjectPlotter(title string) *ObjectPlotter {
	return &ObjectPlotter{
		Title:      title,
		LabelNames: make(map[mesh.Label]string),
		Width:      10 * vg.Inch,
		Height:     10 * vg.Inch,
	}
}

// Save renders objects to path. The image format follows the file
// extension (.png, .svg, .pdf).
func (op *ObjectPlotter) Save(objects []Object, path string) error {
	p := plot.New()
	p.Title.Text = op.Title
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.Add(plotter.NewGrid())

	labels, groups := groupByLabel(objects)
	for _, label := range labels {
		group := groups[label]
		col := toRGBA(group[0].Color)

		for _, o := range group {
			if !o.Box.IsValid() {
				continue
			}
			corners := o.Box.Footprint()
			xys := make(plotter.XYs, len(corners))
			for i, c := range corners {
				xys[i] = plotter.XY{X: c.X, Y: c.Y}
			}
			poly, err := plotter.NewPolygon(xys)
			if err != nil {
				return fmt.Errorf("footprint of %s: %w", o.Name, err)
			}
			poly.Color = nil
			poly.LineStyle.Color = col
			poly.LineStyle.Width = vg.Points(1)
			if !o.Active {
				poly.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
			}
			p.Add(poly)
		}

		pts := make(plotter.XYs, len(group))
		for i, o := range group {
			pts[i] = plotter.XY{X: o.Position.X, Y: o.Position.Y}
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("positions of label %d: %w", label, err)
		}
		scatter.GlyphStyle.Color = col
		scatter.GlyphStyle.Radius = vg.Points(3)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
		p.Legend.Add(op.labelName(label), scatter)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	if err := p.Save(op.Width, op.Height, path); err != nil {
		return fmt.Errorf("save object plot: %w", err)
	}
	return nil
}

func (op *ObjectPlotter) labelName(label mesh.Label) string {
	if name, ok := op.LabelNames[label]; ok && name != "" {
		return fmt.Sprintf("%s (%d)", name, label)
	}
	return fmt.Sprintf("label %d", label)
}

func toRGBA(c mesh.Color) color.Color {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}
