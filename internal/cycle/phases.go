package cycle

// #region phases

// Phase is one state of the cycle state machine.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseGoalSet            Phase = "goal_set"
	PhaseGenerating         Phase = "generating"
	PhaseReviewing          Phase = "reviewing"
	PhaseRanking            Phase = "ranking"
	PhaseEvolving           Phase = "evolving"
	PhaseReviewingEvolved   Phase = "reviewing_evolved"
	PhaseRankingFinal       Phase = "ranking_final"
	PhaseAnalyzingProximity Phase = "analyzing_proximity"
	PhaseSummarizing        Phase = "summarizing"
	PhaseCycleComplete      Phase = "cycle_complete"
)

// transitions maps each phase to the phases it may advance to. An abort from
// any in-cycle phase back to goal_set is always allowed on top of these.
var transitions = map[Phase][]Phase{
	PhaseIdle:               {PhaseGoalSet},
	PhaseGoalSet:            {PhaseGenerating},
	PhaseGenerating:         {PhaseReviewing},
	PhaseReviewing:          {PhaseRanking},
	PhaseRanking:            {PhaseEvolving},
	PhaseEvolving:           {PhaseReviewingEvolved},
	PhaseReviewingEvolved:   {PhaseRankingFinal},
	PhaseRankingFinal:       {PhaseAnalyzingProximity},
	PhaseAnalyzingProximity: {PhaseSummarizing},
	PhaseSummarizing:        {PhaseCycleComplete},
	PhaseCycleComplete:      {PhaseGenerating},
}

// canTransition reports whether from may advance to to.
func canTransition(from, to Phase) bool {
	if to == PhaseGoalSet && from != PhaseIdle {
		return true // abort path
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// #endregion phases
