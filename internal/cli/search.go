package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/jobsurfer/internal/config"
	"github.com/raphaelgruber/jobsurfer/internal/coordinator"
	"github.com/raphaelgruber/jobsurfer/internal/evaluator"
	"github.com/raphaelgruber/jobsurfer/internal/explorer"
	"github.com/raphaelgruber/jobsurfer/internal/fetch"
	"github.com/raphaelgruber/jobsurfer/internal/llm"
	"github.com/raphaelgruber/jobsurfer/internal/memory"
	"github.com/raphaelgruber/jobsurfer/internal/metrics"
	"github.com/raphaelgruber/jobsurfer/internal/models"
	"github.com/raphaelgruber/jobsurfer/internal/navigator"
	"github.com/raphaelgruber/jobsurfer/internal/report"
)

var (
	searchMaxVisits  int
	searchSatisfied  int
	searchExploreW   float64
	searchBudget     float64
	searchMemoryFile string
	searchSeedsFile  string
	searchOutput     string
	searchNoProgress bool
)

var searchCmd = &cobra.Command{
	Use:   "search [seed-url...]",
	Short: "Run one bounded search session",
	Long: `Run one search session over the given seed URLs (or the configured
seeds when none are given). The session ends when enough relevant
postings are found, the visit cap or budget is reached, or the
frontier runs dry.

Examples:
  jobsurfer search https://example.com/careers
  jobsurfer search --max-visits 10 --budget 0.50
  jobsurfer search --seeds-file seeds.json --output report.md`,
	Args: cobra.ArbitraryArgs,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchMaxVisits, "max-visits", 0, "max pages to visit (overrides config)")
	searchCmd.Flags().IntVar(&searchSatisfied, "satisfaction-threshold", 0, "relevant postings that end the session (overrides config)")
	searchCmd.Flags().Float64Var(&searchExploreW, "explore-weight", -1, "explore/exploit weight in [0,1] (overrides config)")
	searchCmd.Flags().Float64Var(&searchBudget, "budget", 0, "model spend cap (overrides config)")
	searchCmd.Flags().StringVar(&searchMemoryFile, "memory-file", "", "site memory file (overrides config)")
	searchCmd.Flags().StringVar(&searchSeedsFile, "seeds-file", "", "JSON file with seed URLs, replaces configured seeds")
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", "", "write a Markdown report to this file")
	searchCmd.Flags().BoolVar(&searchNoProgress, "no-progress", false, "disable the live progress display")
}

func runSearch(cmd *cobra.Command, args []string) error {
	applySearchFlags(&cfg)

	seeds, err := resolveSeeds(args)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return fmt.Errorf("no seed URLs: pass them as arguments, via --seeds-file or in the config")
	}

	log, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	store, err := memory.Load(cfg.MemoryFile, memory.Options{
		Decay:           cfg.MemoryDecay,
		MaxListingPaths: cfg.MaxListingPaths,
	}, log)
	if err != nil {
		// Corrupt or unreadable memory degrades to a fresh start.
		fmt.Fprintf(os.Stderr, "Warning: %v (starting with empty memory)\n", err)
	}

	generator, err := llm.NewTiered(cfg, log)
	if err != nil {
		return fmt.Errorf("init models: %w", err)
	}

	collector := metrics.NewCollector()
	coord := coordinator.New(
		cfg,
		fetch.NewHTTPFetcher(cfg.FetchTimeout.Std(), cfg.UserAgent),
		navigatorFor(cfg, log),
		evaluator.New(cfg, generator, collector, log),
		explorer.New(explorer.Options{
			ExploreWeight:    cfg.ExploreWeight,
			ListingPathBonus: cfg.ListingPathBonus,
			LowSuccessFloor:  cfg.LowSuccessFloor,
			MaxDepth:         cfg.MaxDepth,
		}, store, log),
		store,
		collector,
		log,
	)

	session, runErr := runWithProgress(cmd.Context(), coord, seeds)
	if session == nil {
		return runErr
	}
	if runErr != nil && session.Reason.Fatal() {
		return runErr
	}
	if runErr != nil {
		// Non-fatal, e.g. the final memory save failed. Results stand.
		fmt.Fprintf(os.Stderr, "Warning: %v\n", runErr)
	}

	printSummary(session, collector.Snapshot())

	if searchOutput != "" {
		if err := writeReport(searchOutput, session, collector.Snapshot()); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("\nReport written to %s\n", searchOutput)
	}

	return nil
}

// runWithProgress shows the live UI on a TTY and falls back to a plain
// blocking run otherwise.
func runWithProgress(ctx context.Context, coord *coordinator.Coordinator, seeds []string) (*models.SearchSession, error) {
	if searchNoProgress || !term.IsTerminal(int(os.Stdout.Fd())) {
		return coord.Run(ctx, seeds)
	}
	return runSessionProgress(ctx, coord, seeds)
}

func applySearchFlags(cfg *config.Config) {
	if searchMaxVisits > 0 {
		cfg.MaxVisits = searchMaxVisits
	}
	if searchSatisfied > 0 {
		cfg.SatisfactionThreshold = searchSatisfied
	}
	if searchExploreW >= 0 {
		cfg.ExploreWeight = searchExploreW
	}
	if searchBudget > 0 {
		cfg.BudgetCap = searchBudget
	}
	if searchMemoryFile != "" {
		cfg.MemoryFile = searchMemoryFile
	}
}

// resolveSeeds picks seeds by precedence: command arguments, then the
// seeds file, then the configured list.
func resolveSeeds(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if searchSeedsFile != "" {
		data, err := os.ReadFile(searchSeedsFile)
		if err != nil {
			return nil, fmt.Errorf("read seeds file: %w", err)
		}
		var seeds []string
		if err := json.Unmarshal(data, &seeds); err != nil {
			return nil, fmt.Errorf("parse seeds file %s: %w", searchSeedsFile, err)
		}
		return seeds, nil
	}
	return cfg.Seeds, nil
}

func printSummary(session *models.SearchSession, usage metrics.Snapshot) {
	fmt.Printf("\nSession %s finished: %s\n", session.ID, session.Reason)
	fmt.Printf("  Visited:   %d pages (%d failed)\n", session.Visited, session.FailedVisits)
	fmt.Printf("  Relevant:  %d postings\n", session.Relevant)
	if session.Unevaluated > 0 {
		fmt.Printf("  Skipped:   %d (model unavailable)\n", session.Unevaluated)
	}
	fmt.Printf("  Cost:      $%.4f\n", session.Cost)

	if len(session.Candidates) > 0 {
		fmt.Println("\nPostings:")
		for i, c := range session.Candidates {
			fmt.Printf("%d. %s (%.2f)\n   %s\n", i+1, c.Title, c.Score, c.SourceURL)
		}
	}

	if fast := usage.EvaluateFast; fast != nil {
		fmt.Printf("\nModel calls: %d fast", fast.Count)
		if adv := usage.EvaluateAdvanced; adv != nil {
			fmt.Printf(", %d advanced", adv.Count)
		}
		fmt.Println()
	}
}

func writeReport(path string, session *models.SearchSession, usage metrics.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.NewMarkdown().Generate(f, session, usage)
}

func navigatorFor(cfg config.Config, log *slog.Logger) *navigator.Navigator {
	return navigator.New(models.ChunkingConfig{
		Threshold: cfg.ChunkThreshold,
		MaxSize:   cfg.MaxChunkSize,
		MinSize:   cfg.MinChunkSize,
	}, cfg.Languages, log)
}
