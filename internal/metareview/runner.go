// Package metareview produces per-cycle critiques of the hypothesis
// population and carries them forward into later cycles.
package metareview

// #region imports
import (
	"context"
	"fmt"
	"sync"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/hypothesis"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/llm"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/tournament"
)

// #endregion imports

// #region record

// Record is one cycle's meta-review.
type Record struct {
	Iteration int      `json:"iteration"`
	Critique  string   `json:"critique"`
	NextSteps []string `json:"next_steps"`
}

// #endregion record

// #region runner

// Runner feeds population snapshots to the summarizer and retains the
// critique history so later cycles can build on earlier feedback.
type Runner struct {
	summarizer llm.Summarizer

	mu      sync.Mutex
	history []Record
}

// NewRunner builds a Runner.
func NewRunner(summarizer llm.Summarizer) *Runner {
	return &Runner{summarizer: summarizer}
}

// Run summarizes the current standings and appends the result to the
// critique history. The population snapshot is ordered best first.
func (r *Runner) Run(ctx context.Context, goal string, pop *hypothesis.Population, iteration int) (Record, error) {
	in := llm.SummaryInput{
		Goal:           goal,
		Population:     tournament.Standings(pop),
		PriorCritiques: r.Critiques(),
	}
	s, err := r.summarizer.Summarize(ctx, in)
	if err != nil {
		return Record{}, fmt.Errorf("meta-review: %w", err)
	}

	rec := Record{Iteration: iteration, Critique: s.Critique, NextSteps: s.NextSteps}
	r.mu.Lock()
	r.history = append(r.history, rec)
	r.mu.Unlock()
	return rec, nil
}

// Critiques returns the critique texts of all recorded meta-reviews, oldest
// first.
func (r *Runner) Critiques() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, rec := range r.history {
		out = append(out, rec.Critique)
	}
	return out
}

// History returns a copy of all recorded meta-reviews, oldest first.
func (r *Runner) History() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.history...)
}

// #endregion runner
