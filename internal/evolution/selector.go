// Package evolution selects top-ranked hypotheses and combines them into
// evolved offspring.
package evolution

// #region imports
import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/hypothesis"
)

// #endregion imports

// #region config

// Config holds evolution parameters.
type Config struct {
	TopK int // number of parents combined per evolution step
}

// DefaultConfig returns the standard evolution settings.
func DefaultConfig() Config {
	return Config{TopK: 2}
}

// #endregion config

// #region combiner

// Combiner merges a set of parent hypotheses into one offspring draft.
// The returned draft carries no id; the selector assigns it.
type Combiner interface {
	Combine(ctx context.Context, parents []*hypothesis.Hypothesis) (hypothesis.Draft, error)
}

// ConcatCombiner is the deterministic fallback combiner: it composes the
// parent titles and joins the parent texts with a transition marker.
type ConcatCombiner struct{}

// Combine implements Combiner.
func (ConcatCombiner) Combine(_ context.Context, parents []*hypothesis.Hypothesis) (hypothesis.Draft, error) {
	titles := make([]string, len(parents))
	texts := make([]string, len(parents))
	for i, p := range parents {
		titles[i] = p.Title
		texts[i] = p.Text
	}
	return hypothesis.Draft{
		Title: "Synthesis: " + strings.Join(titles, " + "),
		Text:  strings.Join(texts, "\n\nBuilding on this, "),
	}, nil
}

// #endregion combiner

// #region selector

// Selector picks the top-ranked active hypotheses and evolves them into a
// new registered hypothesis.
type Selector struct {
	combiner Combiner
	config   Config
}

// NewSelector builds a Selector. A nil combiner falls back to ConcatCombiner.
func NewSelector(combiner Combiner, config Config) *Selector {
	if combiner == nil {
		combiner = ConcatCombiner{}
	}
	return &Selector{combiner: combiner, config: config}
}

// SelectParents returns the TopK active hypotheses by descending score,
// ties broken by creation time then id. Returns nil when TopK is below two
// or fewer than two candidates exist, since evolution needs at least a pair.
func (s *Selector) SelectParents(pop *hypothesis.Population) []*hypothesis.Hypothesis {
	if s.config.TopK < 2 {
		return nil
	}
	active := pop.Active()
	if len(active) < 2 {
		return nil
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Score != active[j].Score {
			return active[i].Score > active[j].Score
		}
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.Before(active[j].CreatedAt)
		}
		return active[i].ID < active[j].ID
	})
	k := s.config.TopK
	if k > len(active) {
		k = len(active)
	}
	return active[:k]
}

// Evolve combines the top-ranked parents into a new hypothesis and registers
// it with the population. The offspring starts at the mean parent score and
// records its parent ids in rank order. Returns nil with no error when the
// population is too small to evolve.
func (s *Selector) Evolve(ctx context.Context, pop *hypothesis.Population) (*hypothesis.Hypothesis, error) {
	parents := s.SelectParents(pop)
	if parents == nil {
		return nil, nil
	}

	draft, err := s.combiner.Combine(ctx, parents)
	if err != nil {
		return nil, fmt.Errorf("evolve: %w", err)
	}

	draft.ID = hypothesis.NewID(hypothesis.OriginEvolved)
	draft.ParentIDs = make([]string, len(parents))
	var sum float64
	for i, p := range parents {
		draft.ParentIDs[i] = p.ID
		sum += p.Score
	}
	draft.Score = sum / float64(len(parents))

	h, err := pop.Insert(draft)
	if err != nil {
		return nil, fmt.Errorf("evolve: %w", err)
	}
	return h, nil
}

// #endregion selector
