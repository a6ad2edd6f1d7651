package monitor

import (
	"context"
	"net/http"
	"time"

	"github.com/banshee-data/meshseg/internal/httputil"
	"github.com/banshee-data/meshseg/internal/mesh"
	"github.com/banshee-data/meshseg/internal/storage/sqlite"
)

type objectJSON struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Label       uint8      `json:"label"`
	LabelName   string     `json:"label_name,omitempty"`
	Position    [3]float64 `json:"position"`
	BoxKind     string     `json:"box_kind"`
	BoxCenter   [3]float64 `json:"box_center"`
	BoxExtents  [3]float64 `json:"box_half_extents"`
	BoxVolume   float64    `json:"box_volume"`
	ColorRGB    [3]uint8   `json:"color"`
	Active      bool       `json:"active"`
	LinkedPlace bool       `json:"linked"`
}

type archivedJSON struct {
	NodeID       string     `json:"id"`
	Name         string     `json:"name"`
	Label        uint8      `json:"label"`
	Position     [3]float64 `json:"position"`
	BoxKind      string     `json:"box_kind"`
	BoxVolume    float64    `json:"box_volume"`
	MeshEdges    int        `json:"mesh_edges"`
	LastSeenNs   int64      `json:"last_seen_ns"`
	ArchivedAtNs int64      `json:"archived_at_ns"`
}

// ArchiveLister is the read side of the archive store.
type ArchiveLister interface {
	RunID() string
	ListArchived(ctx context.Context, runID string) ([]sqlite.ArchivedObject, error)
}

var _ ArchiveLister = (*sqlite.ArchiveStore)(nil)

// ObjectListHandler serves the live object layer as JSON.
func ObjectListHandler(src ObjectSource, names map[mesh.Label]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httputil.MethodNotAllowed(w, r, http.MethodGet) {
			return
		}
		objects := src.Objects()
		out := make([]objectJSON, 0, len(objects))
		for _, obj := range objects {
			c, e := obj.Box.Center, obj.Box.HalfExtents
			out = append(out, objectJSON{
				ID:          obj.ID.String(),
				Name:        obj.Name,
				Label:       uint8(obj.Label),
				LabelName:   names[obj.Label],
				Position:    [3]float64{obj.Position.X, obj.Position.Y, obj.Position.Z},
				BoxKind:     obj.Box.Kind.String(),
				BoxCenter:   [3]float64{c.X, c.Y, c.Z},
				BoxExtents:  [3]float64{e.X, e.Y, e.Z},
				BoxVolume:   obj.Box.Volume(),
				ColorRGB:    [3]uint8{obj.Color.R, obj.Color.G, obj.Color.B},
				Active:      obj.Active,
				LinkedPlace: obj.Linked,
			})
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"count": len(out), "objects": out})
	})
}

// ArchiveHandler serves the archived objects of a run. The run query
// parameter selects the run and defaults to the store's own.
func ArchiveHandler(store ArchiveLister) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httputil.MethodNotAllowed(w, r, http.MethodGet) {
			return
		}
		runID := r.URL.Query().Get("run")
		if runID == "" {
			runID = store.RunID()
		}
		if len(runID) > 64 {
			httputil.BadRequest(w, "run id too long")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		rows, err := store.ListArchived(ctx, runID)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}

		out := make([]archivedJSON, 0, len(rows))
		for _, row := range rows {
			out = append(out, archivedJSON{
				NodeID:       row.NodeID.String(),
				Name:         row.Name,
				Label:        uint8(row.SemanticLabel),
				Position:     [3]float64{row.Position.X, row.Position.Y, row.Position.Z},
				BoxKind:      row.BoxKind,
				BoxVolume:    row.BoxVolume,
				MeshEdges:    row.MeshEdges,
				LastSeenNs:   row.LastSeenNs,
				ArchivedAtNs: row.ArchivedAtNs,
			})
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"run_id": runID, "count": len(out), "objects": out})
	})
}
