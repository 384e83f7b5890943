package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/askmydocs/pkg/scraper"
)

var (
	fetchDepth    int
	fetchNoIngest bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Save web pages as text documents and ingest them",
	Long: `Crawls url and the same-host pages it links to, writes the readable text of
each page into the data directory as a .txt file and runs ingestion.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().IntVar(&fetchDepth, "depth", scraper.DefaultMaxDepth, "maximum link depth, 0 fetches only the given page; scraper.max_depth when unset")
	fetchCmd.Flags().BoolVar(&fetchNoIngest, "no-ingest", false, "only save the pages, do not ingest them")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	depth, err := fetchMaxDepth(cmd.Flags().Changed("depth"), fetchDepth, cfg.Scraper.MaxDepth)
	if err != nil {
		return err
	}

	bar := getProgressBar(-1, "Fetching pages...")
	s, err := scraper.NewWithConfig(scraper.ScraperConfig{
		BaseURL:           args[0],
		MaxDepth:          depth,
		RateLimit:         cfg.Scraper.RateLimit,
		IgnorePatterns:    cfg.Scraper.IgnorePatterns,
		AllowedExtensions: cfg.Scraper.AllowedExtensions,
		OnProgress: func(url string) {
			if bar != nil {
				_ = bar.Add(1)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize scraper: %w", err)
	}

	color.Blue("Fetching %s (depth %d)", args[0], depth)
	pages, err := s.Scrape(ctx, args[0])
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("failed to fetch pages: %w", err)
	}

	paths, err := scraper.SaveText(cfg.DataDir, pages)
	if err != nil {
		return err
	}
	color.Green("✓ Saved %d page(s) to %s", len(paths), cfg.DataDir)

	if fetchNoIngest {
		return nil
	}
	return runIngest(cmd, nil)
}

// fetchMaxDepth prefers an explicit --depth over the configured depth.
func fetchMaxDepth(flagSet bool, flagDepth int, configured *int) (int, error) {
	depth := scraper.DefaultMaxDepth
	switch {
	case flagSet:
		depth = flagDepth
	case configured != nil:
		depth = *configured
	}
	if depth < 0 {
		return 0, fmt.Errorf("depth must not be negative, got %d", depth)
	}
	return depth, nil
}
