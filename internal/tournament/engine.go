// Package tournament runs pairwise Elo tournaments over the active
// hypothesis population.
package tournament

// #region imports
import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/hypothesis"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/llm"
)

// #endregion imports

// #region config

// Config holds tournament parameters.
type Config struct {
	KFactor        float64 // Elo sensitivity per comparison
	PairsPerMember int     // pairings each member initiates per round
}

// DefaultConfig returns the standard tournament settings.
func DefaultConfig() Config {
	return Config{KFactor: 32, PairsPerMember: 1}
}

// #endregion config

// #region result

// Result records one pairwise comparison within a round.
type Result struct {
	Iteration    int
	IDA          string
	IDB          string
	WinnerID     string // empty on draw or no contest
	Draw         bool
	NoContest    bool // judge failed, scores untouched
	ScoreABefore float64
	ScoreAAfter  float64
	ScoreBBefore float64
	ScoreBAfter  float64
}

// #endregion result

// #region engine

// Engine pairs active hypotheses, asks the judge for verdicts, and commits
// the resulting Elo scores as one atomic batch.
type Engine struct {
	judge  llm.Judge
	config Config
	rng    *rand.Rand
}

// NewEngine builds an Engine. rng drives opponent selection; pass a seeded
// source for deterministic replays.
func NewEngine(judge llm.Judge, config Config, rng *rand.Rand) *Engine {
	if config.KFactor <= 0 {
		config.KFactor = 32
	}
	if config.PairsPerMember <= 0 {
		config.PairsPerMember = 1
	}
	return &Engine{judge: judge, config: config, rng: rng}
}

// #endregion engine

// #region run-round

// RunRound plays one tournament round: every active hypothesis initiates
// PairsPerMember pairings against randomly chosen distinct opponents, with
// no unordered pair repeated within the round. Scores are staged and
// committed to the population only after every comparison completes, so a
// cancelled round changes nothing. Fewer than two active hypotheses yields
// an empty round.
func (e *Engine) RunRound(ctx context.Context, pop *hypothesis.Population, iteration int) ([]Result, error) {
	active := pop.Active()
	if len(active) < 2 {
		return nil, nil
	}

	byID := make(map[string]*hypothesis.Hypothesis, len(active))
	staged := make(map[string]float64, len(active))
	for _, h := range active {
		byID[h.ID] = h
		staged[h.ID] = h.Score
	}

	var results []Result
	played := make(map[string]bool)

	for _, h := range active {
		for i := 0; i < e.config.PairsPerMember; i++ {
			opp := e.pickOpponent(active, h.ID, played)
			if opp == "" {
				break
			}
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("tournament round: %w", err)
			}
			played[pairKey(h.ID, opp)] = true

			res := e.compare(ctx, byID[h.ID], byID[opp], staged, iteration)
			results = append(results, res)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tournament round: %w", err)
	}
	if err := pop.ApplyScores(staged); err != nil {
		return nil, fmt.Errorf("tournament round: %w", err)
	}
	return results, nil
}

// pickOpponent chooses a random distinct opponent whose unordered pairing
// with id has not yet been played this round. Returns "" when none remain.
func (e *Engine) pickOpponent(active []*hypothesis.Hypothesis, id string, played map[string]bool) string {
	var candidates []string
	for _, h := range active {
		if h.ID == id || played[pairKey(id, h.ID)] {
			continue
		}
		candidates = append(candidates, h.ID)
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[e.rng.Intn(len(candidates))]
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// #endregion run-round

// #region compare

// compare judges one pair and updates the staged scores. A judge failure is
// recorded as no contest and leaves the staged scores untouched.
func (e *Engine) compare(ctx context.Context, a, b *hypothesis.Hypothesis, staged map[string]float64, iteration int) Result {
	res := Result{
		Iteration:    iteration,
		IDA:          a.ID,
		IDB:          b.ID,
		ScoreABefore: staged[a.ID],
		ScoreBBefore: staged[b.ID],
		ScoreAAfter:  staged[a.ID],
		ScoreBAfter:  staged[b.ID],
	}

	j, err := e.judge.Judge(ctx, a, b)
	if err != nil {
		log.Printf("[TOURNAMENT] %s vs %s: no contest: %v", a.ID, b.ID, err)
		res.NoContest = true
		return res
	}

	var outcomeA float64 // score of A: 1 win, 0 loss, 0.5 draw
	switch {
	case j.Draw:
		res.Draw = true
		outcomeA = 0.5
	case j.WinnerID == a.ID:
		res.WinnerID = a.ID
		outcomeA = 1
	case j.WinnerID == b.ID:
		res.WinnerID = b.ID
		outcomeA = 0
	default:
		log.Printf("[TOURNAMENT] %s vs %s: judge named unknown winner %q, no contest", a.ID, b.ID, j.WinnerID)
		res.NoContest = true
		return res
	}

	newA, newB := eloUpdate(staged[a.ID], staged[b.ID], outcomeA, e.config.KFactor)
	staged[a.ID] = newA
	staged[b.ID] = newB
	res.ScoreAAfter = newA
	res.ScoreBAfter = newB
	return res
}

// #endregion compare

// #region elo

// eloUpdate returns the post-match scores of a and b given a's actual outcome.
// The update is zero-sum: points gained by one side are lost by the other.
func eloUpdate(scoreA, scoreB, outcomeA, k float64) (float64, float64) {
	expectedA := 1.0 / (1.0 + math.Pow(10, (scoreB-scoreA)/400.0))
	delta := k * (outcomeA - expectedA)
	return scoreA + delta, scoreB - delta
}

// #endregion elo

// #region standings

// Standings returns the active population ordered by descending Elo score,
// ties broken by creation time then id.
func Standings(pop *hypothesis.Population) []*hypothesis.Hypothesis {
	active := pop.Active()
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Score != active[j].Score {
			return active[i].Score > active[j].Score
		}
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.Before(active[j].CreatedAt)
		}
		return active[i].ID < active[j].ID
	})
	return active
}

// #endregion standings
