package cycle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/evolution"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/hypothesis"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/llm"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/metareview"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/proximity"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/tournament"
)

// #region fakes

type fakeGenerator struct {
	fail  bool
	calls int
}

func (g *fakeGenerator) Generate(_ context.Context, _ string, count int, _ float64) ([]llm.GeneratedDraft, error) {
	g.calls++
	if g.fail {
		return nil, llm.ErrGenerationUnavailable
	}
	drafts := make([]llm.GeneratedDraft, count)
	for i := range drafts {
		drafts[i] = llm.GeneratedDraft{
			Title: fmt.Sprintf("idea %d.%d", g.calls, i),
			Text:  fmt.Sprintf("text %d.%d", g.calls, i),
		}
	}
	return drafts, nil
}

type fakeReviewer struct {
	failIDs map[string]bool
}

func (r *fakeReviewer) Review(_ context.Context, h *hypothesis.Hypothesis, _ float64) (hypothesis.Review, error) {
	if r.failIDs[h.ID] {
		return hypothesis.Review{}, llm.ErrReviewUnavailable
	}
	return hypothesis.Review{
		Novelty:     hypothesis.RatingMedium,
		Feasibility: hypothesis.RatingMedium,
		Commentary:  "reviewed " + h.ID,
	}, nil
}

type lexJudge struct{}

func (lexJudge) Judge(_ context.Context, a, b *hypothesis.Hypothesis) (llm.Judgment, error) {
	if a.ID < b.ID {
		return llm.Judgment{WinnerID: a.ID}, nil
	}
	return llm.Judgment{WinnerID: b.ID}, nil
}

type constScorer struct{ sim float64 }

func (s constScorer) Similarity(_ context.Context, _, _ *hypothesis.Hypothesis) (float64, error) {
	return s.sim, nil
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(_ context.Context, in llm.SummaryInput) (llm.Summary, error) {
	return llm.Summary{Critique: fmt.Sprintf("%d hypotheses reviewed", len(in.Population))}, nil
}

// memoryRecorder captures everything saved during a cycle.
type memoryRecorder struct {
	hypotheses []string
	results    int
	metaCount  int
	cycles     []*Result
}

func (m *memoryRecorder) SaveHypothesis(_ string, h *hypothesis.Hypothesis) error {
	m.hypotheses = append(m.hypotheses, h.ID)
	return nil
}
func (m *memoryRecorder) SaveTournamentResults(_ string, rs []tournament.Result) error {
	m.results += len(rs)
	return nil
}
func (m *memoryRecorder) SaveMetaReview(_ string, _ metareview.Record) error {
	m.metaCount++
	return nil
}
func (m *memoryRecorder) SaveCycle(_ string, res *Result) error {
	m.cycles = append(m.cycles, res)
	return nil
}

// #endregion fakes

func newTestOrchestrator(t *testing.T, gen llm.Generator, rev llm.Reviewer, rec Recorder) *Orchestrator {
	t.Helper()
	deps := Deps{
		Generator:  gen,
		Reviewer:   rev,
		Tournament: tournament.NewEngine(lexJudge{}, tournament.DefaultConfig(), rand.New(rand.NewSource(1))),
		Selector:   evolution.NewSelector(nil, evolution.DefaultConfig()),
		Proximity:  proximity.NewBuilder(constScorer{sim: 0.5}, 0),
		MetaReview: metareview.NewRunner(fakeSummarizer{}),
		Recorder:   rec,
	}
	return NewOrchestrator("sess-test", DefaultConfig(), deps)
}

func TestRunCycleHappyPath(t *testing.T) {
	rec := &memoryRecorder{}
	o := newTestOrchestrator(t, &fakeGenerator{}, &fakeReviewer{}, rec)

	if err := o.SetGoal("cure for boredom"); err != nil {
		t.Fatalf("SetGoal: %v", err)
	}
	res, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if res.Iteration != 1 || o.Iteration() != 1 {
		t.Fatalf("iteration = %d / %d, want 1", res.Iteration, o.Iteration())
	}
	if o.Phase() != PhaseCycleComplete {
		t.Fatalf("phase = %s, want %s", o.Phase(), PhaseCycleComplete)
	}
	if len(res.Generated) != 3 {
		t.Fatalf("generated = %v", res.Generated)
	}
	if res.EvolvedID == "" {
		t.Fatal("expected an evolved hypothesis")
	}
	if o.Population().ActiveCount() != 4 {
		t.Fatalf("active = %d, want 4", o.Population().ActiveCount())
	}
	if res.Degraded {
		t.Fatalf("unexpected degradation: %+v", res.Phases)
	}
	if res.Graph == nil || len(res.Graph.Nodes) != 4 || len(res.Graph.Edges) != 6 {
		t.Fatalf("unexpected graph: %+v", res.Graph)
	}
	if res.MetaReview.Critique == "" {
		t.Fatal("expected a meta review")
	}
	if len(res.Rounds) != 2 {
		t.Fatalf("expected 2 tournament rounds, got %d", len(res.Rounds))
	}
	if len(res.Top) != 4 {
		t.Fatalf("standings incomplete: %v", res.Top)
	}

	// Reviews landed on every generated hypothesis.
	for _, id := range res.Generated {
		h, err := o.Population().Get(id)
		if err != nil {
			t.Fatalf("Get %s: %v", id, err)
		}
		if h.Novelty == hypothesis.RatingUnset {
			t.Fatalf("%s was not reviewed", id)
		}
	}

	// Everything flowed into the recorder.
	if len(rec.cycles) != 1 || rec.metaCount != 1 || rec.results == 0 || len(rec.hypotheses) == 0 {
		t.Fatalf("recorder gaps: %+v", rec)
	}
}

func TestRunCycleSequence(t *testing.T) {
	o := newTestOrchestrator(t, &fakeGenerator{}, &fakeReviewer{}, nil)
	if err := o.SetGoal("goal"); err != nil {
		t.Fatalf("SetGoal: %v", err)
	}

	res, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	want := []Phase{
		PhaseGenerating, PhaseReviewing, PhaseRanking, PhaseEvolving,
		PhaseReviewingEvolved, PhaseRankingFinal, PhaseAnalyzingProximity,
		PhaseSummarizing,
	}
	if len(res.Phases) != len(want) {
		t.Fatalf("phases = %+v", res.Phases)
	}
	for i, p := range want {
		if res.Phases[i].Phase != p {
			t.Fatalf("phase %d = %s, want %s", i, res.Phases[i].Phase, p)
		}
	}

	// Second cycle keeps going from cycle_complete.
	res2, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("second RunCycle: %v", err)
	}
	if res2.Iteration != 2 {
		t.Fatalf("iteration = %d, want 2", res2.Iteration)
	}
}

func TestRunCycleEmptyPopulationAborts(t *testing.T) {
	rec := &memoryRecorder{}
	o := newTestOrchestrator(t, &fakeGenerator{fail: true}, &fakeReviewer{}, rec)
	if err := o.SetGoal("goal"); err != nil {
		t.Fatalf("SetGoal: %v", err)
	}

	res, err := o.RunCycle(context.Background())
	if !errors.Is(err, ErrEmptyPopulation) {
		t.Fatalf("expected ErrEmptyPopulation, got %v", err)
	}
	if o.Iteration() != 0 {
		t.Fatalf("aborted cycle advanced the iteration counter to %d", o.Iteration())
	}
	if o.Phase() != PhaseGoalSet {
		t.Fatalf("phase = %s, want %s", o.Phase(), PhaseGoalSet)
	}
	last := res.Phases[len(res.Phases)-1]
	if last.Status != StatusAborted {
		t.Fatalf("expected aborted outcome, got %+v", last)
	}
	// The aborted cycle is still recorded for provenance.
	if len(rec.cycles) != 1 {
		t.Fatalf("expected 1 recorded cycle, got %d", len(rec.cycles))
	}

	// The machine is re-armed: a working generator succeeds next cycle.
	o.deps.Generator = &fakeGenerator{}
	if _, err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("recovery cycle: %v", err)
	}
	if o.Iteration() != 1 {
		t.Fatalf("iteration = %d, want 1", o.Iteration())
	}
}

func TestRunCycleSurvivesFailedGenerationWithExistingPool(t *testing.T) {
	gen := &fakeGenerator{}
	o := newTestOrchestrator(t, gen, &fakeReviewer{}, nil)
	if err := o.SetGoal("goal"); err != nil {
		t.Fatalf("SetGoal: %v", err)
	}
	if _, err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}

	gen.fail = true
	res, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("second cycle should survive on the existing pool: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected a degraded cycle")
	}
	if res.Iteration != 2 {
		t.Fatalf("iteration = %d, want 2", res.Iteration)
	}
}

func TestRunCycleDegradedReview(t *testing.T) {
	// Reviews fail for every hypothesis; the cycle still completes.
	failAll := reviewerFunc(func(_ context.Context, _ *hypothesis.Hypothesis, _ float64) (hypothesis.Review, error) {
		return hypothesis.Review{}, llm.ErrReviewUnavailable
	})
	o := newTestOrchestrator(t, &fakeGenerator{}, failAll, nil)

	if err := o.SetGoal("goal"); err != nil {
		t.Fatalf("SetGoal: %v", err)
	}
	res, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected degraded cycle")
	}
	if o.Phase() != PhaseCycleComplete {
		t.Fatalf("phase = %s", o.Phase())
	}
	// Failed reviews leave ratings unset, never partial.
	for _, id := range res.Generated {
		h, _ := o.Population().Get(id)
		if h.Novelty != hypothesis.RatingUnset || h.Feasibility != hypothesis.RatingUnset {
			t.Fatalf("%s has partial review data: %s/%s", id, h.Novelty, h.Feasibility)
		}
	}
}

type reviewerFunc func(context.Context, *hypothesis.Hypothesis, float64) (hypothesis.Review, error)

func (f reviewerFunc) Review(ctx context.Context, h *hypothesis.Hypothesis, temp float64) (hypothesis.Review, error) {
	return f(ctx, h, temp)
}

func TestRunCycleNoGoal(t *testing.T) {
	o := newTestOrchestrator(t, &fakeGenerator{}, &fakeReviewer{}, nil)
	if _, err := o.RunCycle(context.Background()); !errors.Is(err, ErrNoGoal) {
		t.Fatalf("expected ErrNoGoal, got %v", err)
	}
}

func TestRunCycleCancelled(t *testing.T) {
	o := newTestOrchestrator(t, &fakeGenerator{}, &fakeReviewer{}, nil)
	if err := o.SetGoal("goal"); err != nil {
		t.Fatalf("SetGoal: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.RunCycle(ctx)
	if err == nil {
		t.Fatal("expected cancellation to fail the cycle")
	}
	if o.Iteration() != 0 {
		t.Fatalf("cancelled cycle advanced iteration to %d", o.Iteration())
	}
	if o.Phase() != PhaseGoalSet {
		t.Fatalf("phase = %s, want %s", o.Phase(), PhaseGoalSet)
	}
}

func TestSetGoalReplacementResetsPopulation(t *testing.T) {
	o := newTestOrchestrator(t, &fakeGenerator{}, &fakeReviewer{}, nil)
	if err := o.SetGoal("first goal"); err != nil {
		t.Fatalf("SetGoal: %v", err)
	}
	if _, err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if o.Population().Len() == 0 {
		t.Fatal("expected a populated store")
	}

	if err := o.SetGoal("second goal"); err != nil {
		t.Fatalf("second SetGoal: %v", err)
	}
	if o.Population().Len() != 0 {
		t.Fatal("goal replacement must discard the prior population")
	}
	if o.Iteration() != 0 {
		t.Fatalf("goal replacement must reset iteration, got %d", o.Iteration())
	}
	if o.Phase() != PhaseGoalSet {
		t.Fatalf("phase = %s", o.Phase())
	}
}

func TestSetGoalValidation(t *testing.T) {
	o := newTestOrchestrator(t, &fakeGenerator{}, &fakeReviewer{}, nil)
	if err := o.SetGoal(""); !errors.Is(err, ErrNoGoal) {
		t.Fatalf("expected ErrNoGoal for empty goal, got %v", err)
	}
}
