package archive

// #region imports
import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/proximity"
)

// #endregion imports

// #region schema
const graphSchema = `
CREATE TABLE IF NOT EXISTS proximity_edges (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	id_a        TEXT NOT NULL,
	id_b        TEXT NOT NULL,
	weight      REAL NOT NULL,
	iteration   INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	UNIQUE(session_id, id_a, id_b),
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);
CREATE INDEX IF NOT EXISTS idx_prox_session ON proximity_edges(session_id);
CREATE INDEX IF NOT EXISTS idx_prox_a ON proximity_edges(id_a);
`

// #endregion schema

// #region save-graph

// SaveGraph upserts every edge of a cycle's proximity graph. Re-running a
// pair in a later cycle overwrites its weight, so the table always holds
// the latest similarity per pair.
func (s *Store) SaveGraph(sessionID string, g *proximity.Graph) error {
	if g == nil || len(g.Edges) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, e := range g.Edges {
		_, err := tx.Exec(
			`INSERT INTO proximity_edges (session_id, id_a, id_b, weight, iteration, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(session_id, id_a, id_b) DO UPDATE SET
			   weight = excluded.weight,
			   iteration = excluded.iteration,
			   updated_at = excluded.updated_at`,
			sessionID, e.A, e.B, e.Weight, g.Iteration, now, now,
		)
		if err != nil {
			return fmt.Errorf("upsert edge %s-%s: %w", e.A, e.B, err)
		}
	}
	return tx.Commit()
}

// #endregion save-graph

// #region neighbors

// Neighbors returns the edges touching a hypothesis with weight at or above
// minWeight, strongest first.
func (s *Store) Neighbors(sessionID, id string, minWeight float64) ([]proximity.Edge, error) {
	rows, err := s.db.Query(
		`SELECT id_a, id_b, weight FROM proximity_edges
		  WHERE session_id = ? AND (id_a = ? OR id_b = ?) AND weight >= ?
		  ORDER BY weight DESC`,
		sessionID, id, id, minWeight,
	)
	if err != nil {
		return nil, fmt.Errorf("query neighbors: %w", err)
	}
	defer rows.Close()

	var edges []proximity.Edge
	for rows.Next() {
		var e proximity.Edge
		if err := rows.Scan(&e.A, &e.B, &e.Weight); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// #endregion neighbors
