package metareview

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/hypothesis"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/llm"
)

// scriptedSummarizer records its inputs and returns numbered critiques.
type scriptedSummarizer struct {
	calls  int
	inputs []llm.SummaryInput
	fail   bool
}

func (s *scriptedSummarizer) Summarize(_ context.Context, in llm.SummaryInput) (llm.Summary, error) {
	if s.fail {
		return llm.Summary{}, errors.New("summarizer down")
	}
	s.calls++
	s.inputs = append(s.inputs, in)
	return llm.Summary{
		Critique:  fmt.Sprintf("critique %d", s.calls),
		NextSteps: []string{"step"},
	}, nil
}

func seedPopulation(t *testing.T) *hypothesis.Population {
	t.Helper()
	p := hypothesis.NewPopulation()
	for i, id := range []string{"G-0001", "G-0002"} {
		if _, err := p.Insert(hypothesis.Draft{ID: id, Title: "t-" + id, Text: "x", Score: hypothesis.BaselineScore + float64(i*100)}); err != nil {
			t.Fatalf("Insert %s: %v", id, err)
		}
	}
	return p
}

func TestRunAccumulatesHistory(t *testing.T) {
	s := &scriptedSummarizer{}
	r := NewRunner(s)
	p := seedPopulation(t)

	rec1, err := r.Run(context.Background(), "goal", p, 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec1.Critique != "critique 1" || rec1.Iteration != 1 {
		t.Fatalf("unexpected record: %+v", rec1)
	}
	if len(s.inputs[0].PriorCritiques) != 0 {
		t.Fatalf("first cycle must see no prior critiques, got %v", s.inputs[0].PriorCritiques)
	}

	if _, err := r.Run(context.Background(), "goal", p, 2); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"critique 1"}, s.inputs[1].PriorCritiques); diff != "" {
		t.Fatalf("prior critiques mismatch (-want +got):\n%s", diff)
	}

	hist := r.History()
	if len(hist) != 2 || hist[1].Iteration != 2 {
		t.Fatalf("unexpected history: %+v", hist)
	}
}

func TestRunOrdersPopulationBestFirst(t *testing.T) {
	s := &scriptedSummarizer{}
	r := NewRunner(s)
	p := seedPopulation(t) // G-0002 has the higher score

	if _, err := r.Run(context.Background(), "goal", p, 1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	snap := s.inputs[0].Population
	if snap[0].ID != "G-0002" || snap[1].ID != "G-0001" {
		t.Fatalf("population not ordered best first: %s, %s", snap[0].ID, snap[1].ID)
	}
}

func TestRunFailureLeavesHistoryUntouched(t *testing.T) {
	r := NewRunner(&scriptedSummarizer{fail: true})
	p := seedPopulation(t)

	if _, err := r.Run(context.Background(), "goal", p, 1); err == nil {
		t.Fatal("expected error")
	}
	if len(r.History()) != 0 {
		t.Fatal("failed run must not be recorded")
	}
}
