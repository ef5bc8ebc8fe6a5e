package cycle

import "testing"

func TestTransitions(t *testing.T) {
	allowed := []struct{ from, to Phase }{
		{PhaseIdle, PhaseGoalSet},
		{PhaseGoalSet, PhaseGenerating},
		{PhaseGenerating, PhaseReviewing},
		{PhaseReviewing, PhaseRanking},
		{PhaseRanking, PhaseEvolving},
		{PhaseEvolving, PhaseReviewingEvolved},
		{PhaseReviewingEvolved, PhaseRankingFinal},
		{PhaseRankingFinal, PhaseAnalyzingProximity},
		{PhaseAnalyzingProximity, PhaseSummarizing},
		{PhaseSummarizing, PhaseCycleComplete},
		{PhaseCycleComplete, PhaseGenerating},
		// Abort path from any in-cycle phase.
		{PhaseGenerating, PhaseGoalSet},
		{PhaseSummarizing, PhaseGoalSet},
		{PhaseCycleComplete, PhaseGoalSet},
	}
	for _, tc := range allowed {
		if !canTransition(tc.from, tc.to) {
			t.Fatalf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to Phase }{
		{PhaseIdle, PhaseGenerating},
		{PhaseGoalSet, PhaseRanking},
		{PhaseReviewing, PhaseEvolving},
		{PhaseRanking, PhaseCycleComplete},
		{PhaseIdle, PhaseGoalSet + "x"},
	}
	for _, tc := range denied {
		if canTransition(tc.from, tc.to) {
			t.Fatalf("%s -> %s should be denied", tc.from, tc.to)
		}
	}
}
