// Package proximity builds a similarity graph over the active hypothesis
// population.
package proximity

// #region imports
import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/hypothesis"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/llm"
)

// #endregion imports

// #region types

// Node is one hypothesis in the proximity graph.
type Node struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"elo_score"`
}

// Edge connects two hypotheses whose similarity exceeds the threshold.
// A is always the lexicographically smaller id.
type Edge struct {
	A      string  `json:"a"`
	B      string  `json:"b"`
	Weight float64 `json:"weight"`
}

// Graph is the similarity graph for one cycle.
type Graph struct {
	Iteration int    `json:"iteration"`
	Nodes     []Node `json:"nodes"`
	Edges     []Edge `json:"edges"`
}

// #endregion types

// #region builder

// Builder computes pairwise similarities and assembles the graph.
type Builder struct {
	scorer    llm.Scorer
	threshold float64 // edges require similarity strictly above this
}

// NewBuilder builds a Builder. The default threshold of 0 keeps every edge
// with positive similarity.
func NewBuilder(scorer llm.Scorer, threshold float64) *Builder {
	return &Builder{scorer: scorer, threshold: threshold}
}

// Build scores every distinct unordered pair of active hypotheses, in
// ascending id order, and keeps edges whose similarity exceeds the
// threshold. Pairs whose similarity call fails are skipped; the second
// return reports how many were skipped so callers can mark the cycle
// degraded.
func (b *Builder) Build(ctx context.Context, pop *hypothesis.Population, iteration int) (*Graph, int, error) {
	active := pop.Active()
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	g := &Graph{Iteration: iteration}
	for _, h := range active {
		g.Nodes = append(g.Nodes, Node{ID: h.ID, Title: h.Title, Score: h.Score})
	}

	skipped := 0
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			if err := ctx.Err(); err != nil {
				return nil, skipped, fmt.Errorf("proximity build: %w", err)
			}
			sim, err := b.scorer.Similarity(ctx, active[i], active[j])
			if err != nil {
				log.Printf("[PROXIMITY] %s vs %s: skipping pair: %v", active[i].ID, active[j].ID, err)
				skipped++
				continue
			}
			if sim > b.threshold {
				g.Edges = append(g.Edges, Edge{A: active[i].ID, B: active[j].ID, Weight: sim})
			}
		}
	}
	return g, skipped, nil
}

// #endregion builder

// #region clusters

// Clusters returns the connected components of the graph as id sets, each
// sorted, largest component first. Isolated nodes form singleton clusters.
func (g *Graph) Clusters() [][]string {
	parent := make(map[string]string, len(g.Nodes))
	var find func(string) string
	find = func(x string) string {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	for _, n := range g.Nodes {
		parent[n.ID] = n.ID
	}
	for _, e := range g.Edges {
		parent[find(e.A)] = find(e.B)
	}

	groups := make(map[string][]string)
	for _, n := range g.Nodes {
		root := find(n.ID)
		groups[root] = append(groups[root], n.ID)
	}
	out := make([][]string, 0, len(groups))
	for _, ids := range groups {
		sort.Strings(ids)
		out = append(out, ids)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i][0] < out[j][0]
	})
	return out
}

// #endregion clusters
