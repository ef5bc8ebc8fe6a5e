package main

// #region imports
import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/replay"
)

// #endregion imports

// #region replay-cmd

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <fixture.json>",
		Short: "Replay a recorded session fixture against the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := replay.LoadFixture(args[0])
			if err != nil {
				return err
			}
			sum, err := replay.Run(cmd.Context(), f)
			if err != nil {
				return err
			}

			fmt.Printf("replay: %s\n", sum.Description)
			for _, out := range sum.Outcomes {
				mark := "PASS"
				if !out.Pass {
					mark = "FAIL"
				}
				fmt.Printf("  cycle %d: %s", out.Cycle, mark)
				if out.Aborted {
					fmt.Print(" (aborted)")
				}
				if out.Degraded {
					fmt.Print(" (degraded)")
				}
				fmt.Println()
				for _, m := range out.Mismatches {
					fmt.Printf("    - %s\n", m)
				}
			}
			fmt.Printf("%d/%d cycles passed\n", sum.Passed, sum.Total)

			if sum.Failed() {
				return fmt.Errorf("replay failed")
			}
			return nil
		},
	}
}

// #endregion replay-cmd
