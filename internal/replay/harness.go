package replay

// #region imports
import (
	"context"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/cycle"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/session"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/tournament"
)

// #endregion imports

// #region types

// CycleOutcome captures one replayed cycle against its expectations.
type CycleOutcome struct {
	Cycle      int
	Aborted    bool
	Degraded   bool
	TopTitles  []string // standings after the cycle, best first
	Pass       bool
	Mismatches []string
}

// Summary aggregates a replay run.
type Summary struct {
	Description string
	Total       int
	Passed      int
	Outcomes    []CycleOutcome
}

// Failed reports whether any cycle missed its expectations.
func (s Summary) Failed() bool {
	return s.Passed != s.Total
}

// #endregion types

// #region run

// Run replays every cycle of the fixture through a real session and
// orchestrator, comparing outcomes against the fixture's expectations.
// Only infrastructure failures return an error; expectation mismatches are
// reported per cycle in the summary.
func Run(ctx context.Context, f *Fixture) (Summary, error) {
	mgr := session.NewManager(f.Adapters(), nil, f.Seed)
	sess, err := mgr.SetGoal(f.Goal, f.Settings)
	if err != nil {
		return Summary{}, fmt.Errorf("replay setup: %w", err)
	}

	sum := Summary{Description: f.Description, Total: len(f.Cycles)}
	for i, fc := range f.Cycles {
		outcome := CycleOutcome{Cycle: i + 1}

		res, err := sess.Orchestrator.RunCycle(ctx)
		switch {
		case errors.Is(err, cycle.ErrEmptyPopulation):
			outcome.Aborted = true
		case err != nil:
			return Summary{}, fmt.Errorf("replay cycle %d: %w", i+1, err)
		default:
			outcome.Degraded = res.Degraded
		}
		for _, h := range tournament.Standings(sess.Orchestrator.Population()) {
			outcome.TopTitles = append(outcome.TopTitles, h.Title)
		}

		outcome.Mismatches = check(fc, outcome)
		outcome.Pass = len(outcome.Mismatches) == 0
		if outcome.Pass {
			sum.Passed++
		}
		sum.Outcomes = append(sum.Outcomes, outcome)
	}
	return sum, nil
}

// check compares one cycle outcome against its fixture expectations.
func check(fc FixtureCycle, got CycleOutcome) []string {
	var mismatches []string
	if fc.ExpectAbort != got.Aborted {
		mismatches = append(mismatches, fmt.Sprintf("abort: want %v, got %v", fc.ExpectAbort, got.Aborted))
	}
	if fc.ExpectDegraded != got.Degraded {
		mismatches = append(mismatches, fmt.Sprintf("degraded: want %v, got %v", fc.ExpectDegraded, got.Degraded))
	}
	for i, want := range fc.ExpectedTop {
		if i >= len(got.TopTitles) {
			mismatches = append(mismatches, fmt.Sprintf("rank %d: want %q, population too small", i+1, want))
			continue
		}
		if got.TopTitles[i] != want {
			mismatches = append(mismatches, fmt.Sprintf("rank %d: want %q, got %q", i+1, want, got.TopTitles[i]))
		}
	}
	return mismatches
}

// #endregion run
