package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/cycle"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/hypothesis"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/llm"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/metareview"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/session"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/tournament"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedSession(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.SaveSession(id, "goal for "+id, session.DefaultSettings()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
}

func TestSaveAndListSessions(t *testing.T) {
	s := tempStore(t)
	seedSession(t, s, "sess-a")
	seedSession(t, s, "sess-b")

	rows, err := s.Sessions()
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(rows))
	}
	if rows[0].Goal != "goal for sess-a" || rows[0].CreatedAt.IsZero() {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}

func TestSaveHypothesisUpsert(t *testing.T) {
	s := tempStore(t)
	seedSession(t, s, "sess-a")

	now := time.Now().UTC().Truncate(time.Millisecond)
	h := &hypothesis.Hypothesis{
		ID:          "G-0001",
		Title:       "first",
		Text:        "body",
		Novelty:     hypothesis.RatingUnset,
		Feasibility: hypothesis.RatingUnset,
		Score:       hypothesis.BaselineScore,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.SaveHypothesis("sess-a", h); err != nil {
		t.Fatalf("SaveHypothesis: %v", err)
	}

	// Reviewed and rescored version of the same hypothesis.
	h.Novelty = hypothesis.RatingHigh
	h.Feasibility = hypothesis.RatingMedium
	h.Score = 1216
	h.Comments = []string{"promising"}
	h.References = []string{"2301.12345"}
	h.UpdatedAt = now.Add(time.Minute)
	if err := s.SaveHypothesis("sess-a", h); err != nil {
		t.Fatalf("second SaveHypothesis: %v", err)
	}

	got, err := s.Hypotheses("sess-a")
	if err != nil {
		t.Fatalf("Hypotheses: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("upsert created %d rows", len(got))
	}
	if got[0].Novelty != hypothesis.RatingHigh || got[0].Score != 1216 {
		t.Fatalf("row not updated: %+v", got[0])
	}
	if diff := cmp.Diff([]string{"2301.12345"}, got[0].References); diff != "" {
		t.Fatalf("references mismatch (-want +got):\n%s", diff)
	}
}

func TestHypothesesOrderedByScore(t *testing.T) {
	s := tempStore(t)
	seedSession(t, s, "sess-a")

	now := time.Now().UTC()
	for id, score := range map[string]float64{"G-0001": 1100, "G-0002": 1300} {
		h := &hypothesis.Hypothesis{
			ID: id, Title: id, Text: "x",
			Novelty: hypothesis.RatingUnset, Feasibility: hypothesis.RatingUnset,
			Score: score, Active: true, CreatedAt: now, UpdatedAt: now,
		}
		if err := s.SaveHypothesis("sess-a", h); err != nil {
			t.Fatalf("SaveHypothesis: %v", err)
		}
	}

	got, err := s.Hypotheses("sess-a")
	if err != nil {
		t.Fatalf("Hypotheses: %v", err)
	}
	if got[0].ID != "G-0002" || got[1].ID != "G-0001" {
		t.Fatalf("not ordered by score: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestSaveTournamentResults(t *testing.T) {
	s := tempStore(t)
	seedSession(t, s, "sess-a")

	results := []tournament.Result{
		{Iteration: 1, IDA: "G-0001", IDB: "G-0002", WinnerID: "G-0001",
			ScoreABefore: 1200, ScoreAAfter: 1216, ScoreBBefore: 1200, ScoreBAfter: 1184},
		{Iteration: 1, IDA: "G-0002", IDB: "G-0003", NoContest: true,
			ScoreABefore: 1184, ScoreAAfter: 1184, ScoreBBefore: 1200, ScoreBAfter: 1200},
	}
	if err := s.SaveTournamentResults("sess-a", results); err != nil {
		t.Fatalf("SaveTournamentResults: %v", err)
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tournament_results`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
}

func TestSaveMetaReview(t *testing.T) {
	s := tempStore(t)
	seedSession(t, s, "sess-a")

	rec := metareview.Record{Iteration: 1, Critique: "too narrow", NextSteps: []string{"broaden"}}
	if err := s.SaveMetaReview("sess-a", rec); err != nil {
		t.Fatalf("SaveMetaReview: %v", err)
	}

	got, err := s.MetaReviews("sess-a")
	if err != nil {
		t.Fatalf("MetaReviews: %v", err)
	}
	if diff := cmp.Diff([]metareview.Record{rec}, got); diff != "" {
		t.Fatalf("meta reviews mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveCycle(t *testing.T) {
	s := tempStore(t)
	seedSession(t, s, "sess-a")

	res := &cycle.Result{
		SessionID:  "sess-a",
		Iteration:  1,
		Degraded:   true,
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
	}
	if err := s.SaveCycle("sess-a", res); err != nil {
		t.Fatalf("SaveCycle: %v", err)
	}
	n, err := s.CycleCount("sess-a")
	if err != nil {
		t.Fatalf("CycleCount: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 cycle, got %d", n)
	}
}

func TestLogCallAndStats(t *testing.T) {
	s := tempStore(t)

	s.LogCall(llm.CallRecord{
		Type: "generation", Model: "google/gemini-flash-1.5",
		PromptTokens: 1_000_000, CompletionTokens: 1_000_000,
		Success: true,
	})
	s.LogCall(llm.CallRecord{
		Type: "review", Model: "google/gemini-flash-1.5",
		Success: false, ErrorMessage: "timeout", Retries: 3,
	})

	stats, err := s.CallStats()
	if err != nil {
		t.Fatalf("CallStats: %v", err)
	}
	if stats.Calls != 2 || stats.Failures != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	// 1M prompt + 1M completion tokens at 0.075 + 0.30 per million.
	if stats.CostUSD < 0.374 || stats.CostUSD > 0.376 {
		t.Fatalf("cost = %f", stats.CostUSD)
	}
}

func TestCallCostUnknownModel(t *testing.T) {
	if c := callCost("unknown/model", 1000, 1000); c != 0 {
		t.Fatalf("unknown model cost = %f", c)
	}
}
