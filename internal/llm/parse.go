package llm

// #region imports
import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/hypothesis"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/literature"
)

// #endregion imports

// #region prompts

func generationPrompt(goal string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a research scientist. Propose %d distinct, testable research hypotheses for this goal:\n\n%s\n\n", count, goal)
	b.WriteString("Format each hypothesis exactly as:\n")
	b.WriteString("TITLE: <short title>\nTEXT: <one-paragraph description>\n\n")
	b.WriteString("Output nothing but the hypotheses.")
	return b.String()
}

func reviewPrompt(h *hypothesis.Hypothesis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review this research hypothesis.\n\nTitle: %s\nText: %s\n\n", h.Title, h.Text)
	b.WriteString("Rate novelty and feasibility as HIGH, MEDIUM, or LOW, then comment.\n")
	b.WriteString("Cite relevant papers as arXiv:<id> where applicable.\n")
	b.WriteString("Format exactly as:\nNOVELTY: <rating>\nFEASIBILITY: <rating>\nCOMMENT: <one paragraph>")
	return b.String()
}

func judgmentPrompt(a, b *hypothesis.Hypothesis) string {
	var sb strings.Builder
	sb.WriteString("Compare two research hypotheses and pick the stronger one overall (novelty, feasibility, potential impact).\n\n")
	fmt.Fprintf(&sb, "Hypothesis A: %s\n%s\n\n", a.Title, a.Text)
	fmt.Fprintf(&sb, "Hypothesis B: %s\n%s\n\n", b.Title, b.Text)
	sb.WriteString("Answer with exactly one line:\nWINNER: A or WINNER: B or WINNER: DRAW")
	return sb.String()
}

func summaryPrompt(in SummaryInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are reviewing the state of a hypothesis-evolution session.\nResearch goal: %s\n\nCurrent hypotheses (best first):\n", in.Goal)
	for _, h := range in.Population {
		fmt.Fprintf(&b, "- [%s] %s (elo %.0f, novelty %s, feasibility %s)\n",
			h.ID, h.Title, h.Score, h.Novelty, h.Feasibility)
	}
	if len(in.PriorCritiques) > 0 {
		b.WriteString("\nEarlier critiques:\n")
		for _, c := range in.PriorCritiques {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	b.WriteString("\nWrite a critique of the population and suggest next steps.\n")
	b.WriteString("Format exactly as:\nCRITIQUE: <one paragraph>\nNEXT STEPS:\n- <step>\n- <step>")
	return b.String()
}

// #endregion prompts

// #region parse-drafts

// ParseDrafts extracts TITLE/TEXT blocks from a generation response.
// Tolerates markdown bullets and extra prose between blocks.
func ParseDrafts(content string) []GeneratedDraft {
	var drafts []GeneratedDraft
	var current *GeneratedDraft

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*#0123456789. "))
		if v, ok := fieldValue(trimmed, "TITLE"); ok {
			if current != nil && current.Text != "" {
				drafts = append(drafts, *current)
			}
			current = &GeneratedDraft{Title: v}
			continue
		}
		if v, ok := fieldValue(trimmed, "TEXT"); ok && current != nil {
			current.Text = v
			continue
		}
		// Continuation lines extend the text of the open block.
		if current != nil && current.Text != "" && trimmed != "" {
			current.Text += " " + trimmed
		}
	}
	if current != nil && current.Text != "" {
		drafts = append(drafts, *current)
	}
	return drafts
}

// #endregion parse-drafts

// #region parse-review

// ParseReview extracts ratings, commentary, and arXiv references from a
// review response. Missing fields stay at their zero values.
func ParseReview(content string) hypothesis.Review {
	var r hypothesis.Review
	r.Novelty = hypothesis.RatingUnset
	r.Feasibility = hypothesis.RatingUnset

	var comment []string
	inComment := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if v, ok := fieldValue(trimmed, "NOVELTY"); ok {
			r.Novelty = hypothesis.ParseRating(v)
			inComment = false
			continue
		}
		if v, ok := fieldValue(trimmed, "FEASIBILITY"); ok {
			r.Feasibility = hypothesis.ParseRating(v)
			inComment = false
			continue
		}
		if v, ok := fieldValue(trimmed, "COMMENT"); ok {
			comment = append(comment, v)
			inComment = true
			continue
		}
		if inComment && trimmed != "" {
			comment = append(comment, trimmed)
		}
	}
	r.Commentary = strings.Join(comment, " ")
	r.References = literature.ExtractArxivIDs(content)
	return r
}

// #endregion parse-review

// #region parse-verdict

// ParseVerdict extracts "A", "B", or "DRAW" from a judgment response.
// The second return is false when no verdict line is present.
func ParseVerdict(content string) (string, bool) {
	for _, line := range strings.Split(content, "\n") {
		v, ok := fieldValue(strings.TrimSpace(line), "WINNER")
		if !ok {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(v)) {
		case "A":
			return "A", true
		case "B":
			return "B", true
		case "DRAW", "TIE":
			return "DRAW", true
		}
	}
	return "", false
}

// #endregion parse-verdict

// #region parse-summary

// ParseSummary extracts a critique paragraph and next-step bullets.
func ParseSummary(content string) Summary {
	var s Summary
	var critique []string
	section := ""
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if v, ok := fieldValue(trimmed, "CRITIQUE"); ok {
			critique = append(critique, v)
			section = "critique"
			continue
		}
		if strings.EqualFold(strings.TrimSuffix(trimmed, ":"), "NEXT STEPS") {
			section = "steps"
			continue
		}
		switch section {
		case "critique":
			if trimmed != "" && !strings.HasPrefix(trimmed, "-") {
				critique = append(critique, trimmed)
			} else if strings.HasPrefix(trimmed, "-") {
				section = "steps"
				s.NextSteps = append(s.NextSteps, strings.TrimSpace(strings.TrimPrefix(trimmed, "-")))
			}
		case "steps":
			if strings.HasPrefix(trimmed, "-") {
				s.NextSteps = append(s.NextSteps, strings.TrimSpace(strings.TrimPrefix(trimmed, "-")))
			}
		}
	}
	s.Critique = strings.Join(critique, " ")
	return s
}

// #endregion parse-summary

// #region field-value

// fieldValue matches "KEY: value" case-insensitively and returns the value.
func fieldValue(line, key string) (string, bool) {
	if len(line) < len(key)+1 {
		return "", false
	}
	if !strings.EqualFold(line[:len(key)], key) {
		return "", false
	}
	rest := strings.TrimSpace(line[len(key):])
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}
	return strings.TrimSpace(strings.Trim(rest[1:], " *")), true
}

// #endregion field-value
