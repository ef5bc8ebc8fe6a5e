package cycle

// #region imports
import (
	"time"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/hypothesis"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/metareview"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/proximity"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/tournament"
)

// #endregion imports

// #region status

// Status classifies how a phase (or the whole cycle) ended.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusAborted  Status = "aborted"
)

// PhaseOutcome records how one phase of a cycle went.
type PhaseOutcome struct {
	Phase   Phase    `json:"phase"`
	Status  Status   `json:"status"`
	Reasons []string `json:"reasons,omitempty"`
}

// #endregion status

// #region result

// Result is the full record of one completed (or aborted) cycle.
type Result struct {
	SessionID  string                `json:"session_id"`
	Iteration  int                   `json:"iteration"`
	Phases     []PhaseOutcome        `json:"phases"`
	Generated  []string              `json:"generated_ids"`
	EvolvedID  string                `json:"evolved_id,omitempty"`
	Top        []string              `json:"top_ids,omitempty"`
	Rounds     [][]tournament.Result `json:"rounds,omitempty"`
	Graph      *proximity.Graph      `json:"graph,omitempty"`
	MetaReview metareview.Record     `json:"meta_review"`
	Degraded   bool                  `json:"degraded"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
}

// #endregion result

// #region recorder

// Recorder persists cycle artifacts as they are produced. Implementations
// must tolerate partial cycles; a recording failure never fails the cycle.
type Recorder interface {
	SaveHypothesis(sessionID string, h *hypothesis.Hypothesis) error
	SaveTournamentResults(sessionID string, results []tournament.Result) error
	SaveMetaReview(sessionID string, rec metareview.Record) error
	SaveCycle(sessionID string, res *Result) error
}

// #endregion recorder
