package roadmap

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	// registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStorage keeps a single roadmap snapshot in a sqlite database. Saving replaces the previous
// snapshot in one transaction.
type SQLiteStorage struct {
	path string
	db   *sql.DB
}

// NewSQLiteStorage opens, creating if needed, the database at path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "creating roadmap schema"), db.Close())
	}
	return &SQLiteStorage{path: path, db: db}, nil
}

func (ss *SQLiteStorage) String() string {
	return "sqlite:" + ss.path
}

// Save replaces the stored snapshot with snap.
func (ss *SQLiteStorage) Save(ctx context.Context, snap *Snapshot) (err error) {
	tx, err := ss.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, tx.Rollback())
		}
	}()

	for _, table := range []string{"roadmap_meta", "roadmap_vertices", "roadmap_edges"} {
		//nolint:gosec
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO roadmap_meta (id, dimension, stretch_factor, sparse_delta_fraction, saved_unix_nanos)
		VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.Dimension, snap.Criteria.StretchFactor, snap.Criteria.SparseDeltaFraction, time.Now().UnixNano(),
	); err != nil {
		return err
	}

	vertexStmt, err := tx.PrepareContext(ctx, "INSERT INTO roadmap_vertices (vertex_id, state) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer vertexStmt.Close()
	for i, v := range snap.Vertices {
		state, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := vertexStmt.ExecContext(ctx, i, string(state)); err != nil {
			return errors.Wrapf(err, "inserting vertex %d", i)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, "INSERT INTO roadmap_edges (a, b, weight) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer edgeStmt.Close()
	for _, e := range snap.Edges {
		if _, err := edgeStmt.ExecContext(ctx, e.A, e.B, e.Weight); err != nil {
			return errors.Wrapf(err, "inserting edge %d-%d", e.A, e.B)
		}
	}

	return tx.Commit()
}

// Load reads the stored snapshot, or returns ErrNoSnapshot when nothing was saved.
func (ss *SQLiteStorage) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	row := ss.db.QueryRowContext(ctx,
		"SELECT id, dimension, stretch_factor, sparse_delta_fraction FROM roadmap_meta LIMIT 1")
	err := row.Scan(&snap.ID, &snap.Dimension, &snap.Criteria.StretchFactor, &snap.Criteria.SparseDeltaFraction)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	vertexRows, err := ss.db.QueryContext(ctx, "SELECT state FROM roadmap_vertices ORDER BY vertex_id")
	if err != nil {
		return nil, err
	}
	defer vertexRows.Close()
	for vertexRows.Next() {
		var raw string
		if err := vertexRows.Scan(&raw); err != nil {
			return nil, err
		}
		var state []float64
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			return nil, errors.Wrapf(err, "decoding vertex %d", len(snap.Vertices))
		}
		snap.Vertices = append(snap.Vertices, state)
	}
	if err := vertexRows.Err(); err != nil {
		return nil, err
	}

	edgeRows, err := ss.db.QueryContext(ctx, "SELECT a, b, weight FROM roadmap_edges ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var e Edge
		if err := edgeRows.Scan(&e.A, &e.B, &e.Weight); err != nil {
			return nil, err
		}
		snap.Edges = append(snap.Edges, e)
	}
	return snap, edgeRows.Err()
}

// Close closes the database.
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}
