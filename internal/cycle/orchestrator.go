// Package cycle runs the hypothesis evolution cycle: generate, review,
// rank, evolve, re-rank, analyze, summarize. One Orchestrator drives one
// research session through repeated cycles.
package cycle

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/evolution"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/hypothesis"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/llm"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/metareview"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/proximity"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/tournament"
)

// #endregion imports

// #region errors

var (
	// ErrNoGoal is returned when a cycle is requested before a goal is set.
	ErrNoGoal = errors.New("no research goal set")
	// ErrCycleInFlight is returned when a cycle is requested while one runs.
	ErrCycleInFlight = errors.New("cycle already in flight")
	// ErrEmptyPopulation aborts a cycle that ends generation with nothing to
	// work on. The orchestrator returns to goal_set without advancing the
	// iteration counter.
	ErrEmptyPopulation = errors.New("empty population after generation")
)

// #endregion errors

// #region config

// Config holds per-cycle generation and review parameters.
type Config struct {
	NumHypotheses         int
	GenerationTemperature float64
	ReviewTemperature     float64
	MaxParallelReviews    int
}

// DefaultConfig returns the standard cycle settings.
func DefaultConfig() Config {
	return Config{
		NumHypotheses:         3,
		GenerationTemperature: 0.7,
		ReviewTemperature:     0.5,
		MaxParallelReviews:    4,
	}
}

// #endregion config

// #region deps

// Deps are the collaborators one Orchestrator drives. Recorder may be nil.
type Deps struct {
	Generator  llm.Generator
	Reviewer   llm.Reviewer
	Tournament *tournament.Engine
	Selector   *evolution.Selector
	Proximity  *proximity.Builder
	MetaReview *metareview.Runner
	Recorder   Recorder
}

// #endregion deps

// #region orchestrator

// Orchestrator is the cycle state machine for one research session. All
// exported methods are safe for concurrent use, but only one cycle may run
// at a time.
type Orchestrator struct {
	sessionID string
	config    Config
	deps      Deps
	pop       *hypothesis.Population

	mu        sync.Mutex
	goal      string
	phase     Phase
	iteration int
	inFlight  bool
}

// NewOrchestrator builds an idle Orchestrator for one session.
func NewOrchestrator(sessionID string, config Config, deps Deps) *Orchestrator {
	if config.NumHypotheses <= 0 {
		config.NumHypotheses = 3
	}
	if config.MaxParallelReviews <= 0 {
		config.MaxParallelReviews = 4
	}
	return &Orchestrator{
		sessionID: sessionID,
		config:    config,
		deps:      deps,
		pop:       hypothesis.NewPopulation(),
		phase:     PhaseIdle,
	}
}

// SetGoal records the research goal and arms the state machine. Replacing
// the goal between cycles discards the prior population entirely and
// resets the iteration counter; populations are never merged across goals.
func (o *Orchestrator) SetGoal(goal string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.inFlight {
		return ErrCycleInFlight
	}
	if goal == "" {
		return fmt.Errorf("set goal: %w", ErrNoGoal)
	}
	if o.goal != "" {
		o.pop = hypothesis.NewPopulation()
		o.iteration = 0
	}
	o.goal = goal
	o.setPhaseLocked(PhaseGoalSet)
	return nil
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Iteration returns the number of completed cycles.
func (o *Orchestrator) Iteration() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.iteration
}

// Population exposes the session's hypothesis registry.
func (o *Orchestrator) Population() *hypothesis.Population {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pop
}

// setPhaseLocked advances the phase, enforcing the transition table.
// Callers hold o.mu.
func (o *Orchestrator) setPhaseLocked(next Phase) {
	if !canTransition(o.phase, next) {
		// A bad transition is a programming error in the orchestrator itself.
		panic(fmt.Sprintf("cycle: illegal transition %s -> %s", o.phase, next))
	}
	log.Printf("[CYCLE] %s: %s -> %s", o.sessionID, o.phase, next)
	o.phase = next
}

func (o *Orchestrator) advance(next Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.setPhaseLocked(next)
}

// #endregion orchestrator

// #region run-cycle

// RunCycle executes one full cycle and returns its record. A cycle that
// ends generation with an empty population aborts with ErrEmptyPopulation,
// returns the machine to goal_set, and does not advance the iteration
// counter. Context cancellation is fatal to the cycle the same way.
func (o *Orchestrator) RunCycle(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	if o.goal == "" || o.phase == PhaseIdle {
		o.mu.Unlock()
		return nil, ErrNoGoal
	}
	if o.inFlight {
		o.mu.Unlock()
		return nil, ErrCycleInFlight
	}
	o.inFlight = true
	iteration := o.iteration + 1
	goal := o.goal
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	res := &Result{
		SessionID: o.sessionID,
		Iteration: iteration,
		StartedAt: time.Now().UTC(),
	}

	abort := func(phase Phase, err error) (*Result, error) {
		res.Phases = append(res.Phases, PhaseOutcome{
			Phase:   phase,
			Status:  StatusAborted,
			Reasons: []string{err.Error()},
		})
		res.FinishedAt = time.Now().UTC()
		o.advance(PhaseGoalSet)
		o.record(res)
		return res, err
	}

	// Generate.
	o.advance(PhaseGenerating)
	if err := o.generate(ctx, goal, res); err != nil {
		return abort(PhaseGenerating, err)
	}

	// Review the fresh drafts in parallel.
	o.advance(PhaseReviewing)
	if err := o.review(ctx, res.Generated, PhaseReviewing, res); err != nil {
		return abort(PhaseReviewing, err)
	}

	// First tournament round.
	o.advance(PhaseRanking)
	if err := o.rank(ctx, iteration, PhaseRanking, res); err != nil {
		return abort(PhaseRanking, err)
	}

	// Evolve the top-ranked pair.
	o.advance(PhaseEvolving)
	evolved, err := o.deps.Selector.Evolve(ctx, o.pop)
	if err != nil {
		if ctx.Err() != nil {
			return abort(PhaseEvolving, err)
		}
		o.degrade(res, PhaseEvolving, err.Error())
	} else if evolved == nil {
		o.degrade(res, PhaseEvolving, "population too small to evolve")
	} else {
		res.EvolvedID = evolved.ID
		o.saveHypothesis(evolved.ID)
		res.Phases = append(res.Phases, PhaseOutcome{Phase: PhaseEvolving, Status: StatusOK})
	}

	// Review the offspring.
	o.advance(PhaseReviewingEvolved)
	var evolvedIDs []string
	if res.EvolvedID != "" {
		evolvedIDs = []string{res.EvolvedID}
	}
	if err := o.review(ctx, evolvedIDs, PhaseReviewingEvolved, res); err != nil {
		return abort(PhaseReviewingEvolved, err)
	}

	// Final tournament round over the enlarged population.
	o.advance(PhaseRankingFinal)
	if err := o.rank(ctx, iteration, PhaseRankingFinal, res); err != nil {
		return abort(PhaseRankingFinal, err)
	}

	// Proximity graph.
	o.advance(PhaseAnalyzingProximity)
	graph, skipped, err := o.deps.Proximity.Build(ctx, o.pop, iteration)
	if err != nil {
		return abort(PhaseAnalyzingProximity, err)
	}
	res.Graph = graph
	if skipped > 0 {
		o.degrade(res, PhaseAnalyzingProximity, fmt.Sprintf("%d similarity pairs skipped", skipped))
	} else {
		res.Phases = append(res.Phases, PhaseOutcome{Phase: PhaseAnalyzingProximity, Status: StatusOK})
	}

	// Meta-review.
	o.advance(PhaseSummarizing)
	rec, err := o.deps.MetaReview.Run(ctx, goal, o.pop, iteration)
	if err != nil {
		if ctx.Err() != nil {
			return abort(PhaseSummarizing, err)
		}
		o.degrade(res, PhaseSummarizing, err.Error())
	} else {
		res.MetaReview = rec
		o.saveMetaReview(rec)
		res.Phases = append(res.Phases, PhaseOutcome{Phase: PhaseSummarizing, Status: StatusOK})
	}

	// Final standings, best first.
	for _, h := range tournament.Standings(o.pop) {
		res.Top = append(res.Top, h.ID)
	}

	// Commit the cycle.
	o.advance(PhaseCycleComplete)
	o.mu.Lock()
	o.iteration = iteration
	o.mu.Unlock()
	res.FinishedAt = time.Now().UTC()
	o.record(res)
	return res, nil
}

// #endregion run-cycle

// #region generate

func (o *Orchestrator) generate(ctx context.Context, goal string, res *Result) error {
	drafts, err := o.deps.Generator.Generate(ctx, goal, o.config.NumHypotheses, o.config.GenerationTemperature)
	if err != nil {
		if o.pop.ActiveCount() == 0 {
			return fmt.Errorf("%w: %v", ErrEmptyPopulation, err)
		}
		// Later cycles can survive a failed generation on the existing pool.
		o.degrade(res, PhaseGenerating, err.Error())
		return nil
	}

	for _, d := range drafts {
		h, err := o.pop.Insert(hypothesis.Draft{
			ID:    hypothesis.NewID(hypothesis.OriginGenerated),
			Title: d.Title,
			Text:  d.Text,
			Score: hypothesis.BaselineScore,
		})
		if err != nil {
			o.degrade(res, PhaseGenerating, err.Error())
			continue
		}
		res.Generated = append(res.Generated, h.ID)
		o.saveHypothesis(h.ID)
	}

	if o.pop.ActiveCount() == 0 {
		return ErrEmptyPopulation
	}
	if o.lastOutcomePhase(res) != PhaseGenerating {
		res.Phases = append(res.Phases, PhaseOutcome{Phase: PhaseGenerating, Status: StatusOK})
	}
	return nil
}

// #endregion generate

// #region review

// review runs the reviewer over ids in parallel and applies the outcomes.
// Individual failures degrade the cycle; only cancellation is fatal. The
// errgroup wait is the join barrier: no phase advances until every review
// has landed or failed.
func (o *Orchestrator) review(ctx context.Context, ids []string, phase Phase, res *Result) error {
	if len(ids) == 0 {
		res.Phases = append(res.Phases, PhaseOutcome{Phase: phase, Status: StatusOK})
		return nil
	}

	var mu sync.Mutex
	var failures []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.MaxParallelReviews)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			h, err := o.pop.Get(id)
			if err != nil {
				return err
			}
			rev, err := o.deps.Reviewer.Review(gctx, h, o.config.ReviewTemperature)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", id, err))
				mu.Unlock()
				return nil
			}
			if err := o.pop.ApplyReview(id, rev); err != nil {
				return err
			}
			o.saveHypothesis(id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("review: %w", err)
	}

	if len(failures) > 0 {
		o.degrade(res, phase, failures...)
	} else {
		res.Phases = append(res.Phases, PhaseOutcome{Phase: phase, Status: StatusOK})
	}
	return nil
}

// #endregion review

// #region rank

func (o *Orchestrator) rank(ctx context.Context, iteration int, phase Phase, res *Result) error {
	results, err := o.deps.Tournament.RunRound(ctx, o.pop, iteration)
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}
	res.Rounds = append(res.Rounds, results)
	if o.deps.Recorder != nil && len(results) > 0 {
		if err := o.deps.Recorder.SaveTournamentResults(o.sessionID, results); err != nil {
			log.Printf("[CYCLE] %s: save tournament results: %v", o.sessionID, err)
		}
	}

	noContest := 0
	for _, r := range results {
		if r.NoContest {
			noContest++
		}
	}
	if noContest > 0 {
		o.degrade(res, phase, fmt.Sprintf("%d comparisons ended no contest", noContest))
	} else {
		res.Phases = append(res.Phases, PhaseOutcome{Phase: phase, Status: StatusOK})
	}
	return nil
}

// #endregion rank

// #region recording

func (o *Orchestrator) degrade(res *Result, phase Phase, reasons ...string) {
	res.Degraded = true
	res.Phases = append(res.Phases, PhaseOutcome{Phase: phase, Status: StatusDegraded, Reasons: reasons})
	log.Printf("[CYCLE] %s: %s degraded: %v", o.sessionID, phase, reasons)
}

func (o *Orchestrator) lastOutcomePhase(res *Result) Phase {
	if len(res.Phases) == 0 {
		return ""
	}
	return res.Phases[len(res.Phases)-1].Phase
}

func (o *Orchestrator) saveHypothesis(id string) {
	if o.deps.Recorder == nil {
		return
	}
	h, err := o.pop.Get(id)
	if err != nil {
		return
	}
	if err := o.deps.Recorder.SaveHypothesis(o.sessionID, h); err != nil {
		log.Printf("[CYCLE] %s: save hypothesis %s: %v", o.sessionID, id, err)
	}
}

func (o *Orchestrator) saveMetaReview(rec metareview.Record) {
	if o.deps.Recorder == nil {
		return
	}
	if err := o.deps.Recorder.SaveMetaReview(o.sessionID, rec); err != nil {
		log.Printf("[CYCLE] %s: save meta review: %v", o.sessionID, err)
	}
}

func (o *Orchestrator) record(res *Result) {
	if o.deps.Recorder == nil {
		return
	}
	if err := o.deps.Recorder.SaveCycle(o.sessionID, res); err != nil {
		log.Printf("[CYCLE] %s: save cycle: %v", o.sessionID, err)
	}
}

// #endregion recording
