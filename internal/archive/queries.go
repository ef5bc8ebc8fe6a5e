package archive

// #region imports
import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/hypothesis"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/metareview"
)

// #endregion imports

// #region session-rows

// SessionRow is one persisted session.
type SessionRow struct {
	ID        string
	Goal      string
	CreatedAt time.Time
}

// Sessions returns all persisted sessions, oldest first.
func (s *Store) Sessions() ([]SessionRow, error) {
	rows, err := s.db.Query(`SELECT id, goal, created_at FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		var created string
		if err := rows.Scan(&r.ID, &r.Goal, &created); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion session-rows

// #region hypothesis-rows

// Hypotheses returns every persisted hypothesis of a session, best score
// first.
func (s *Store) Hypotheses(sessionID string) ([]*hypothesis.Hypothesis, error) {
	rows, err := s.db.Query(
		`SELECT id, title, body, novelty, feasibility, elo_score,
		        comments_json, references_json, parent_ids_json, is_active,
		        created_at, updated_at
		   FROM hypotheses WHERE session_id = ? ORDER BY elo_score DESC, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query hypotheses: %w", err)
	}
	defer rows.Close()

	var out []*hypothesis.Hypothesis
	for rows.Next() {
		var h hypothesis.Hypothesis
		var novelty, feasibility string
		var comments, refs, parents string
		var active int
		var created, updated string
		if err := rows.Scan(&h.ID, &h.Title, &h.Text, &novelty, &feasibility,
			&h.Score, &comments, &refs, &parents, &active, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan hypothesis: %w", err)
		}
		h.Novelty = hypothesis.Rating(novelty)
		h.Feasibility = hypothesis.Rating(feasibility)
		h.Active = active != 0
		json.Unmarshal([]byte(comments), &h.Comments)
		json.Unmarshal([]byte(refs), &h.References)
		json.Unmarshal([]byte(parents), &h.ParentIDs)
		h.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		h.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, &h)
	}
	return out, rows.Err()
}

// #endregion hypothesis-rows

// #region meta-review-rows

// MetaReviews returns a session's critiques, oldest first.
func (s *Store) MetaReviews(sessionID string) ([]metareview.Record, error) {
	rows, err := s.db.Query(
		`SELECT iteration, critique, next_steps_json FROM meta_reviews
		  WHERE session_id = ? ORDER BY iteration`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query meta reviews: %w", err)
	}
	defer rows.Close()

	var out []metareview.Record
	for rows.Next() {
		var rec metareview.Record
		var steps string
		if err := rows.Scan(&rec.Iteration, &rec.Critique, &steps); err != nil {
			return nil, fmt.Errorf("scan meta review: %w", err)
		}
		json.Unmarshal([]byte(steps), &rec.NextSteps)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion meta-review-rows

// #region call-totals

// CallTotals summarizes persisted model call telemetry.
type CallTotals struct {
	Calls    int
	Failures int
	CostUSD  float64
}

// CallStats aggregates the llm_calls table.
func (s *Store) CallStats() (CallTotals, error) {
	var t CallTotals
	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(cost_usd), 0)
		   FROM llm_calls`,
	).Scan(&t.Calls, &t.Failures, &t.CostUSD)
	if err != nil {
		return CallTotals{}, fmt.Errorf("query call stats: %w", err)
	}
	return t, nil
}

// #endregion call-totals

// #region cycle-rows

// CycleCount returns how many cycles a session has logged.
func (s *Store) CycleCount(sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM cycle_log WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("query cycle count: %w", err)
	}
	return n, nil
}

// #endregion cycle-rows
