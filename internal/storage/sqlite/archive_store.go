package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/banshee-data/meshseg/internal/mesh"
	"github.com/banshee-data/meshseg/internal/scenegraph"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	_ "modernc.org/sqlite"
)

// ArchivedObject is the persisted snapshot of an object at the moment the
// segmenter stopped tracking it.
type ArchivedObject struct {
	RunID         string
	NodeID        scenegraph.NodeID
	Name          string
	SemanticLabel mesh.Label
	Position      r3.Vec
	BoxKind       string
	BoxCenter     r3.Vec
	BoxDimensions r3.Vec // full edge lengths along the box axes
	BoxVolume     float64
	Color         mesh.Color
	MeshEdges     int
	LastSeenNs    int64
	ArchivedAtNs  int64
}

// ArchiveStore writes archived objects to a sqlite database. Each store
// carries a run id so several runs can share one database file.
type ArchiveStore struct {
	db    *sql.DB
	runID string
}

// Open opens (or creates) the database at path and brings its schema up to
// date. A fresh run id is allocated.
func Open(path string) (*ArchiveStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	s := NewArchiveStore(db)
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewArchiveStore wraps an already open database. The caller is
// responsible for running MigrateUp.
func NewArchiveStore(db *sql.DB) *ArchiveStore {
	return &ArchiveStore{db: db, runID: uuid.New().String()}
}

// RunID returns the run identifier stamped on rows written by this store.
func (s *ArchiveStore) RunID() string {
	return s.runID
}

// DB exposes the underlying database handle.
func (s *ArchiveStore) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *ArchiveStore) Close() error {
	return s.db.Close()
}

// ArchiveObjects inserts objects in one transaction. Rows without a RunID
// get the store's run id. Re-archiving an object within the same run
// replaces the earlier row.
func (s *ArchiveStore) ArchiveObjects(ctx context.Context, objects []ArchivedObject) error {
	if len(objects) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO archived_objects (
			run_id, node_id, name, semantic_label, x, y, z,
			box_kind, box_center_x, box_center_y, box_center_z,
			box_length, box_width, box_height, box_volume,
			color_r, color_g, color_b, mesh_edges,
			last_seen_ns, archived_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare archive insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range objects {
		runID := o.RunID
		if runID == "" {
			runID = s.runID
		}
		_, err := stmt.ExecContext(ctx,
			runID,
			int64(o.NodeID),
			o.Name,
			int(o.SemanticLabel),
			o.Position.X, o.Position.Y, o.Position.Z,
			o.BoxKind,
			o.BoxCenter.X, o.BoxCenter.Y, o.BoxCenter.Z,
			o.BoxDimensions.X, o.BoxDimensions.Y, o.BoxDimensions.Z,
			o.BoxVolume,
			int(o.Color.R), int(o.Color.G), int(o.Color.B),
			o.MeshEdges,
			o.LastSeenNs,
			o.ArchivedAtNs,
		)
		if err != nil {
			return fmt.Errorf("insert archived object %s: %w", o.NodeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	return nil
}

// ListArchived returns the objects archived in a run, oldest archive
// first.
func (s *ArchiveStore) ListArchived(ctx context.Context, runID string) ([]ArchivedObject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, node_id, name, semantic_label, x, y, z,
		       box_kind, box_center_x, box_center_y, box_center_z,
		       box_length, box_width, box_height, box_volume,
		       color_r, color_g, color_b, mesh_edges,
		       last_seen_ns, archived_at_ns
		FROM archived_objects
		WHERE run_id = ?
		ORDER BY archived_at_ns, node_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list archived objects: %w", err)
	}
	defer rows.Close()

	var out []ArchivedObject
	for rows.Next() {
		var (
			o             ArchivedObject
			nodeID        int64
			label         int
			red, grn, blu int
		)
		err := rows.Scan(
			&o.RunID, &nodeID, &o.Name, &label,
			&o.Position.X, &o.Position.Y, &o.Position.Z,
			&o.BoxKind, &o.BoxCenter.X, &o.BoxCenter.Y, &o.BoxCenter.Z,
			&o.BoxDimensions.X, &o.BoxDimensions.Y, &o.BoxDimensions.Z, &o.BoxVolume,
			&red, &grn, &blu, &o.MeshEdges,
			&o.LastSeenNs, &o.ArchivedAtNs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan archived object: %w", err)
		}
		o.NodeID = scenegraph.NodeID(uint64(nodeID))
		o.SemanticLabel = mesh.Label(label)
		o.Color = mesh.Color{R: uint8(red), G: uint8(grn), B: uint8(blu), A: 255}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountArchived returns the number of objects archived in a run.
func (s *ArchiveStore) CountArchived(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archived_objects WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count archived objects: %w", err)
	}
	return n, nil
}
