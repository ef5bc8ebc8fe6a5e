package llm

// #region imports
import (
	"context"
	"errors"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/hypothesis"
)

// #endregion imports

// #region errors

var (
	// ErrGenerationUnavailable marks total failure of the generation adapter.
	ErrGenerationUnavailable = errors.New("generation unavailable")
	// ErrReviewUnavailable marks failure of a single review call.
	ErrReviewUnavailable = errors.New("review unavailable")
	// ErrJudgmentUnavailable marks failure of a single comparison judgment.
	// The tournament engine treats it as no contest.
	ErrJudgmentUnavailable = errors.New("judgment unavailable")
)

// #endregion errors

// #region drafts

// GeneratedDraft is a title+text pair from the generation adapter, unscored.
type GeneratedDraft struct {
	Title string
	Text  string
}

// #endregion drafts

// #region judgment

// Judgment is the outcome of one pairwise comparison.
type Judgment struct {
	WinnerID string // empty when Draw is true
	Draw     bool
}

// #endregion judgment

// #region summary

// SummaryInput is the population snapshot fed to the summarization adapter.
type SummaryInput struct {
	Goal           string
	Population     []*hypothesis.Hypothesis
	PriorCritiques []string
}

// Summary is a critique plus suggested next steps.
type Summary struct {
	Critique  string
	NextSteps []string
}

// #endregion summary

// #region interfaces

// Generator produces draft hypotheses for a research goal.
type Generator interface {
	Generate(ctx context.Context, goal string, count int, temperature float64) ([]GeneratedDraft, error)
}

// Reviewer judges novelty and feasibility of a single hypothesis.
type Reviewer interface {
	Review(ctx context.Context, h *hypothesis.Hypothesis, temperature float64) (hypothesis.Review, error)
}

// Judge decides the winner of a pairwise comparison.
type Judge interface {
	Judge(ctx context.Context, a, b *hypothesis.Hypothesis) (Judgment, error)
}

// Scorer computes a similarity in [0,1] between two hypotheses.
type Scorer interface {
	Similarity(ctx context.Context, a, b *hypothesis.Hypothesis) (float64, error)
}

// Summarizer produces a meta-review critique from a population snapshot.
type Summarizer interface {
	Summarize(ctx context.Context, in SummaryInput) (Summary, error)
}

// #endregion interfaces

// #region call-logging

// CallRecord captures one adapter call for outbound persistence.
type CallRecord struct {
	Type             string // "generation" | "review" | "judgment" | "similarity" | "summary"
	Model            string
	Temperature      float64
	PromptTokens     int
	CompletionTokens int
	LatencyMS        float64
	Success          bool
	ErrorMessage     string
	Retries          int
}

// CallLogger consumes adapter call records. Implementations must not block.
type CallLogger interface {
	LogCall(rec CallRecord)
}

// #endregion call-logging
