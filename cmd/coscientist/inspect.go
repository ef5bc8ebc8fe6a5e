package main

// #region imports
import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/archive"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/config"
)

// #endregion imports

// #region inspect-cmd

func newInspectCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect the archive: sessions, hypotheses, call telemetry",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			store, err := archive.NewStore(cfg.ArchivePath)
			if err != nil {
				return fmt.Errorf("open archive: %w", err)
			}
			defer store.Close()

			if sessionID != "" {
				return inspectSession(store, sessionID)
			}
			return inspectOverview(store)
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "show one session in detail")
	return cmd
}

func inspectOverview(store *archive.Store) error {
	sessions, err := store.Sessions()
	if err != nil {
		return err
	}
	fmt.Printf("%d sessions\n", len(sessions))
	for _, s := range sessions {
		n, err := store.CycleCount(s.ID)
		if err != nil {
			return err
		}
		fmt.Printf("  %s  %3d cycles  %s\n", s.ID, n, s.Goal)
	}

	stats, err := store.CallStats()
	if err != nil {
		return err
	}
	fmt.Printf("model calls: %d (%d failed), $%.4f\n", stats.Calls, stats.Failures, stats.CostUSD)
	return nil
}

func inspectSession(store *archive.Store, id string) error {
	hyps, err := store.Hypotheses(id)
	if err != nil {
		return err
	}
	fmt.Printf("session %s: %d hypotheses\n", id, len(hyps))
	for _, h := range hyps {
		state := "active"
		if !h.Active {
			state = "retired"
		}
		fmt.Printf("  %7.1f  %s  [%s/%s, %s]  %s\n",
			h.Score, h.ID, h.Novelty, h.Feasibility, state, h.Title)
	}

	if len(hyps) > 0 {
		// Weak edges are noise at display time.
		edges, err := store.Neighbors(id, hyps[0].ID, 0.2)
		if err != nil {
			return err
		}
		if len(edges) > 0 {
			fmt.Printf("nearest to %s:\n", hyps[0].ID)
			for _, e := range edges {
				other := e.B
				if other == hyps[0].ID {
					other = e.A
				}
				fmt.Printf("  %.2f  %s\n", e.Weight, other)
			}
		}
	}

	reviews, err := store.MetaReviews(id)
	if err != nil {
		return err
	}
	for _, r := range reviews {
		fmt.Printf("cycle %d critique: %s\n", r.Iteration, r.Critique)
		for _, step := range r.NextSteps {
			fmt.Printf("  - %s\n", step)
		}
	}
	return nil
}

// #endregion inspect-cmd
