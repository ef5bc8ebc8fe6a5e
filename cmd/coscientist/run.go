package main

// #region imports
import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/archive"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/config"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/cycle"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/literature"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/llm"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/session"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/tournament"
)

// #endregion imports

// #region run-cmd

func newRunCmd() *cobra.Command {
	var goal string
	var cycles int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run research cycles interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.LLM.APIKey == "" {
				return fmt.Errorf("no API key: set llm.api_key or COSCI_API_KEY")
			}

			store, err := archive.NewStore(cfg.ArchivePath)
			if err != nil {
				return fmt.Errorf("open archive: %w", err)
			}
			defer store.Close()

			client := llm.NewClient(cfg.ClientConfig())
			client.SetCallLogger(store)
			adapters := session.Adapters{
				Generator:  client,
				Reviewer:   client,
				Judge:      client,
				Scorer:     client,
				Summarizer: client,
			}
			mgr := session.NewManager(adapters, store, cfg.Seed)

			if goal != "" {
				return runCycles(cmd.Context(), mgr, goal, cfg.Session, cycles)
			}
			return repl(cmd.Context(), mgr, cfg.Session)
		},
	}
	cmd.Flags().StringVarP(&goal, "goal", "g", "", "research goal (omit for interactive mode)")
	cmd.Flags().IntVarP(&cycles, "cycles", "n", 1, "number of cycles to run with --goal")
	return cmd
}

// runCycles drives a single session for a fixed number of cycles.
func runCycles(ctx context.Context, mgr *session.Manager, goal string, settings session.Settings, n int) error {
	s, err := mgr.SetGoal(goal, settings)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		res, err := runOneCycle(ctx, mgr, s.ID)
		if err != nil {
			return err
		}
		printCycle(s, res)
	}
	return nil
}

// #endregion run-cmd

// #region repl

// repl is the interactive loop: set a goal, then step through cycles.
func repl(ctx context.Context, mgr *session.Manager, settings session.Settings) error {
	fmt.Println("Co-Scientist controller ready.")
	fmt.Println("Commands: goal <text> | cycle | standings | papers | quit")

	scanner := bufio.NewScanner(os.Stdin)
	var current *session.Session

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		switch {
		case strings.HasPrefix(line, "goal "):
			s, err := mgr.SetGoal(strings.TrimPrefix(line, "goal "), settings)
			if err != nil {
				log.Printf("set goal: %v", err)
				continue
			}
			current = s
			fmt.Printf("session %s created\n", s.ID)

		case line == "cycle":
			if current == nil {
				fmt.Println("no session; set a goal first")
				continue
			}
			res, err := runOneCycle(ctx, mgr, current.ID)
			if err != nil {
				log.Printf("cycle: %v", err)
				continue
			}
			printCycle(current, res)

		case line == "standings":
			if current == nil {
				fmt.Println("no session; set a goal first")
				continue
			}
			printStandings(current)

		case line == "papers":
			if current == nil {
				fmt.Println("no session; set a goal first")
				continue
			}
			printPapers(ctx, current)

		default:
			fmt.Println("unknown command")
		}
	}
	return scanner.Err()
}

func runOneCycle(ctx context.Context, mgr *session.Manager, id string) (*cycle.Result, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	return mgr.RunCycle(cctx, id)
}

// #endregion repl

// #region output

func printCycle(s *session.Session, res *cycle.Result) {
	status := "ok"
	if res.Degraded {
		status = "degraded"
	}
	fmt.Printf("\ncycle %d finished (%s)\n", res.Iteration, status)
	if res.EvolvedID != "" {
		fmt.Printf("  evolved: %s\n", res.EvolvedID)
	}
	if res.MetaReview.Critique != "" {
		fmt.Printf("  critique: %s\n", res.MetaReview.Critique)
	}
	printStandings(s)
}

func printStandings(s *session.Session) {
	fmt.Println("  standings:")
	for i, h := range tournament.Standings(s.Orchestrator.Population()) {
		fmt.Printf("  %2d. %7.1f  %s  %s\n", i+1, h.Score, h.ID, h.Title)
	}
	fmt.Println()
}

// printPapers resolves the arXiv ids cited across the active population.
func printPapers(ctx context.Context, s *session.Session) {
	var ids []string
	seen := make(map[string]bool)
	for _, h := range s.Orchestrator.Population().Active() {
		for _, ref := range h.References {
			if !seen[ref] {
				ids = append(ids, ref)
				seen[ref] = true
			}
		}
	}
	if len(ids) == 0 {
		fmt.Println("no arXiv references cited yet")
		return
	}

	lctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	papers, err := literature.NewClient().Lookup(lctx, ids)
	if err != nil {
		log.Printf("arxiv lookup: %v", err)
		return
	}
	for _, p := range papers {
		fmt.Printf("  arXiv:%s  %s\n", p.ID, p.Title)
	}
}

// #endregion output
