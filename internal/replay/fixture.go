// Package replay re-runs recorded research sessions against the real cycle
// pipeline with scripted model adapters, so orchestration changes can be
// validated without a model backend.
package replay

// #region imports
import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/hypothesis"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/llm"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/session"
)

// #endregion imports

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture. Hypotheses
// get random ids at runtime, so all scripting keys on titles.
type Fixture struct {
	Description string           `json:"description"`
	Goal        string           `json:"goal"`
	Seed        int64            `json:"seed"`
	Settings    session.Settings `json:"settings"`
	Cycles      []FixtureCycle   `json:"cycles"`
}

// FixtureCycle scripts the adapter behavior and expectations for one cycle.
type FixtureCycle struct {
	Generation      []FixtureDraft `json:"generation"`
	GenerationFails bool           `json:"generation_fails,omitempty"`
	ExpectedTop     []string       `json:"expected_top"` // titles, best first
	ExpectDegraded  bool           `json:"expect_degraded,omitempty"`
	ExpectAbort     bool           `json:"expect_abort,omitempty"`
}

// FixtureDraft is one scripted generated hypothesis.
type FixtureDraft struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.Goal == "" {
		return nil, fmt.Errorf("fixture %s: missing goal", path)
	}
	if len(f.Cycles) == 0 {
		return nil, fmt.Errorf("fixture %s: no cycles", path)
	}
	if f.Settings == (session.Settings{}) {
		f.Settings = session.DefaultSettings()
	}
	return &f, nil
}

// #endregion fixture-loader

// #region scripted-adapters

// Scripted adapters drive the pipeline from fixture data. The judge prefers
// the hypothesis whose title sorts first, which keeps every replay fully
// deterministic together with a fixed tournament seed.

type scriptedGenerator struct {
	mu     sync.Mutex
	cycles []FixtureCycle
	call   int
}

func (g *scriptedGenerator) Generate(_ context.Context, _ string, count int, _ float64) ([]llm.GeneratedDraft, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.call >= len(g.cycles) {
		return nil, fmt.Errorf("%w: fixture exhausted", llm.ErrGenerationUnavailable)
	}
	c := g.cycles[g.call]
	g.call++

	if c.GenerationFails {
		return nil, fmt.Errorf("%w: scripted failure", llm.ErrGenerationUnavailable)
	}
	var drafts []llm.GeneratedDraft
	for _, d := range c.Generation {
		drafts = append(drafts, llm.GeneratedDraft{Title: d.Title, Text: d.Text})
	}
	if len(drafts) > count {
		drafts = drafts[:count]
	}
	return drafts, nil
}

type scriptedReviewer struct{}

func (scriptedReviewer) Review(_ context.Context, h *hypothesis.Hypothesis, _ float64) (hypothesis.Review, error) {
	return hypothesis.Review{
		Novelty:     hypothesis.RatingMedium,
		Feasibility: hypothesis.RatingMedium,
		Commentary:  "replay review of " + h.Title,
	}, nil
}

type titleJudge struct{}

func (titleJudge) Judge(_ context.Context, a, b *hypothesis.Hypothesis) (llm.Judgment, error) {
	switch strings.Compare(a.Title, b.Title) {
	case -1:
		return llm.Judgment{WinnerID: a.ID}, nil
	case 1:
		return llm.Judgment{WinnerID: b.ID}, nil
	default:
		return llm.Judgment{Draw: true}, nil
	}
}

type constScorer struct{}

func (constScorer) Similarity(_ context.Context, _, _ *hypothesis.Hypothesis) (float64, error) {
	return 0.5, nil
}

type scriptedSummarizer struct{}

func (scriptedSummarizer) Summarize(_ context.Context, in llm.SummaryInput) (llm.Summary, error) {
	return llm.Summary{
		Critique:  fmt.Sprintf("replay critique over %d hypotheses", len(in.Population)),
		NextSteps: []string{"continue replay"},
	}, nil
}

// Adapters builds the scripted adapter set for this fixture.
func (f *Fixture) Adapters() session.Adapters {
	return session.Adapters{
		Generator:  &scriptedGenerator{cycles: f.Cycles},
		Reviewer:   scriptedReviewer{},
		Judge:      titleJudge{},
		Scorer:     constScorer{},
		Summarizer: scriptedSummarizer{},
	}
}

// #endregion scripted-adapters
