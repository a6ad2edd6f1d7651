package monitor

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/banshee-data/meshseg/internal/httputil"
	"github.com/banshee-data/meshseg/internal/mesh"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// EchartsAssetsHost is the location the rendered pages load echarts from.
// Empty uses the go-echarts default CDN.
var EchartsAssetsHost = ""

// RenderObjectMap writes an HTML scatter of object positions, one series
// per label. Archived objects are drawn with a smaller symbol.
func RenderObjectMap(w io.Writer, objects []Object, names map[mesh.Label]string) error {
	maxAbs := 0.0
	for _, o := range objects {
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(o.Position.X), math.Abs(o.Position.Y)))
	}
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	active := 0
	for _, o := range objects {
		if o.Active {
			active++
		}
	}

	initOpts := opts.Initialization{PageTitle: "Mesh Objects", Theme: "dark", Width: "900px", Height: "900px"}
	if EchartsAssetsHost != "" {
		initOpts.AssetsHost = EchartsAssetsHost
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: "Mesh Objects", Subtitle: fmt.Sprintf("objects=%d active=%d", len(objects), active)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)

	labels, groups := groupByLabel(objects)
	for _, label := range labels {
		group := groups[label]
		pts := make([]opts.ScatterData, 0, len(group))
		for _, o := range group {
			size := 10
			if !o.Active {
				size = 5
			}
			pts = append(pts, opts.ScatterData{
				Name:       o.Name,
				Value:      []interface{}{o.Position.X, o.Position.Y, o.Box.Volume()},
				SymbolSize: size,
			})
		}
		c := group[0].Color
		scatter.AddSeries(seriesName(label, names), pts,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)}),
		)
	}

	return scatter.Render(w)
}

func seriesName(label mesh.Label, names map[mesh.Label]string) string {
	if name, ok := names[label]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("label %d", label)
}

// ObjectMapHandler serves RenderObjectMap over HTTP from a live source.
func ObjectMapHandler(src ObjectSource, names map[mesh.Label]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httputil.MethodNotAllowed(w, r, http.MethodGet, http.MethodHead) {
			return
		}

		var buf bytes.Buffer
		if err := RenderObjectMap(&buf, src.Objects(), names); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to render object map: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	})
}
