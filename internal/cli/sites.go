package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/jobsurfer/internal/config"
	"github.com/raphaelgruber/jobsurfer/internal/memory"
)

var sitesMemoryFile string

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List what memory knows about visited sites",
	Long: `List every site in the memory file with its visit count, success
rate and the listing paths that yielded postings before. Useful for
checking what the explorer will prefer on the next run.`,
	Args: cobra.NoArgs,
	RunE: runSites,
}

func init() {
	sitesCmd.Flags().StringVar(&sitesMemoryFile, "memory-file", "", "site memory file (overrides config)")
}

func runSites(cmd *cobra.Command, args []string) error {
	path := cfg.MemoryFile
	if sitesMemoryFile != "" {
		path = sitesMemoryFile
	}

	log := config.SetupLoggerWithWriters(os.Stderr, os.Stderr, cfg.LogLevel)
	store, err := memory.Load(path, memory.Options{
		Decay:           cfg.MemoryDecay,
		MaxListingPaths: cfg.MaxListingPaths,
	}, log)
	if err != nil {
		return fmt.Errorf("load memory: %w", err)
	}

	sites := store.Sites()
	if len(sites) == 0 {
		fmt.Println("No sites in memory yet.")
		return nil
	}

	fmt.Printf("%d known sites:\n\n", len(sites))
	for _, s := range sites {
		fmt.Printf("%s\n", s.SiteID)
		fmt.Printf("  visits: %d, success rate: %.2f, last visit: %s\n",
			s.Visits, s.SuccessRate, s.LastVisit.Format("2006-01-02 15:04"))
		for _, lp := range s.ListingPaths {
			fmt.Printf("  yielded %d at %s\n", lp.YieldCount, lp.Path)
		}
		fmt.Println()
	}

	return nil
}
