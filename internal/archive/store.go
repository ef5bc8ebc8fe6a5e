// Package archive persists sessions, hypotheses, tournament outcomes,
// meta-reviews, and model call telemetry in SQLite.
package archive

// #region imports
import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/cycle"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/hypothesis"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/llm"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/metareview"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/session"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/tournament"
)

// #endregion imports

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	goal          TEXT NOT NULL,
	settings_json TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS hypotheses (
	id               TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL,
	title            TEXT NOT NULL,
	body             TEXT NOT NULL,
	novelty          TEXT NOT NULL,
	feasibility      TEXT NOT NULL,
	elo_score        REAL NOT NULL,
	comments_json    TEXT,
	references_json  TEXT,
	parent_ids_json  TEXT,
	is_active        INTEGER NOT NULL,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE TABLE IF NOT EXISTS tournament_results (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id     TEXT NOT NULL,
	iteration      INTEGER NOT NULL,
	id_a           TEXT NOT NULL,
	id_b           TEXT NOT NULL,
	winner_id      TEXT,
	draw           INTEGER NOT NULL,
	no_contest     INTEGER NOT NULL,
	score_a_before REAL NOT NULL,
	score_a_after  REAL NOT NULL,
	score_b_before REAL NOT NULL,
	score_b_after  REAL NOT NULL,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE TABLE IF NOT EXISTS meta_reviews (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id      TEXT NOT NULL,
	iteration       INTEGER NOT NULL,
	critique        TEXT NOT NULL,
	next_steps_json TEXT,
	created_at      TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE TABLE IF NOT EXISTS cycle_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	iteration   INTEGER NOT NULL,
	degraded    INTEGER NOT NULL,
	result_json TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE TABLE IF NOT EXISTS llm_calls (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	call_type         TEXT NOT NULL,
	model             TEXT NOT NULL,
	temperature       REAL NOT NULL,
	prompt_tokens     INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	latency_ms        REAL NOT NULL,
	success           INTEGER NOT NULL,
	error_message     TEXT,
	retries           INTEGER NOT NULL,
	cost_usd          REAL NOT NULL,
	created_at        TEXT NOT NULL
);
`

// #endregion schema

// #region pricing

// Per-million-token USD prices for cost accounting. Unknown models cost 0.
var modelPricing = map[string]struct{ prompt, completion float64 }{
	"google/gemini-flash-1.5":     {0.075, 0.30},
	"openai/gpt-4o-mini":          {0.15, 0.60},
	"openai/gpt-4o":               {2.50, 10.00},
	"anthropic/claude-3.5-sonnet": {3.00, 15.00},
}

func callCost(model string, promptTokens, completionTokens int) float64 {
	p, ok := modelPricing[model]
	if !ok {
		return 0
	}
	return (float64(promptTokens)*p.prompt + float64(completionTokens)*p.completion) / 1e6
}

// #endregion pricing

// #region store

// Store is the SQLite-backed archive. It implements session.Recorder and
// llm.CallLogger.
type Store struct {
	db *sql.DB
}

// NewStore opens the database at dbPath and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if _, err := db.Exec(graphSchema); err != nil {
		return nil, fmt.Errorf("migrate graph: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion store

// #region save-session

// SaveSession records a new session.
func (s *Store) SaveSession(id, goal string, settings session.Settings) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (id, goal, settings_json, created_at) VALUES (?, ?, ?, ?)`,
		id, goal, string(settingsJSON), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// #endregion save-session

// #region save-hypothesis

// SaveHypothesis upserts the full hypothesis row. Later saves of the same
// id overwrite review and score fields, so the row always mirrors the
// in-memory population.
func (s *Store) SaveHypothesis(sessionID string, h *hypothesis.Hypothesis) error {
	comments, _ := json.Marshal(h.Comments)
	refs, _ := json.Marshal(h.References)
	parents, _ := json.Marshal(h.ParentIDs)

	_, err := s.db.Exec(
		`INSERT INTO hypotheses
		   (id, session_id, title, body, novelty, feasibility, elo_score,
		    comments_json, references_json, parent_ids_json, is_active,
		    created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   body = excluded.body,
		   novelty = excluded.novelty,
		   feasibility = excluded.feasibility,
		   elo_score = excluded.elo_score,
		   comments_json = excluded.comments_json,
		   references_json = excluded.references_json,
		   is_active = excluded.is_active,
		   updated_at = excluded.updated_at`,
		h.ID, sessionID, h.Title, h.Text, string(h.Novelty), string(h.Feasibility),
		h.Score, string(comments), string(refs), string(parents), boolInt(h.Active),
		h.CreatedAt.Format(time.RFC3339Nano), h.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert hypothesis %s: %w", h.ID, err)
	}
	return nil
}

// #endregion save-hypothesis

// #region save-tournament

// SaveTournamentResults records every comparison of a round in one
// transaction.
func (s *Store) SaveTournamentResults(sessionID string, results []tournament.Result) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range results {
		_, err := tx.Exec(
			`INSERT INTO tournament_results
			   (session_id, iteration, id_a, id_b, winner_id, draw, no_contest,
			    score_a_before, score_a_after, score_b_before, score_b_after, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, r.Iteration, r.IDA, r.IDB, r.WinnerID, boolInt(r.Draw),
			boolInt(r.NoContest), r.ScoreABefore, r.ScoreAAfter, r.ScoreBBefore,
			r.ScoreBAfter, now,
		)
		if err != nil {
			return fmt.Errorf("insert tournament result: %w", err)
		}
	}
	return tx.Commit()
}

// #endregion save-tournament

// #region save-meta-review

// SaveMetaReview records one cycle's critique.
func (s *Store) SaveMetaReview(sessionID string, rec metareview.Record) error {
	steps, _ := json.Marshal(rec.NextSteps)
	_, err := s.db.Exec(
		`INSERT INTO meta_reviews (session_id, iteration, critique, next_steps_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, rec.Iteration, rec.Critique, string(steps),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert meta review: %w", err)
	}
	return nil
}

// #endregion save-meta-review

// #region save-cycle

// SaveCycle records the full cycle result as provenance.
func (s *Store) SaveCycle(sessionID string, res *cycle.Result) error {
	resJSON, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal cycle result: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO cycle_log (session_id, iteration, degraded, result_json, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, res.Iteration, boolInt(res.Degraded), string(resJSON),
		res.StartedAt.Format(time.RFC3339Nano), res.FinishedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}
	return s.SaveGraph(sessionID, res.Graph)
}

// #endregion save-cycle

// #region log-call

// LogCall records one model call with its computed cost. Failures are
// logged and swallowed so telemetry can never fail a cycle.
func (s *Store) LogCall(rec llm.CallRecord) {
	cost := callCost(rec.Model, rec.PromptTokens, rec.CompletionTokens)
	_, err := s.db.Exec(
		`INSERT INTO llm_calls
		   (call_type, model, temperature, prompt_tokens, completion_tokens,
		    latency_ms, success, error_message, retries, cost_usd, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Type, rec.Model, rec.Temperature, rec.PromptTokens, rec.CompletionTokens,
		rec.LatencyMS, boolInt(rec.Success), rec.ErrorMessage, rec.Retries, cost,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		log.Printf("[ARCHIVE] log call: %v", err)
	}
}

// #endregion log-call

// #region helpers

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
