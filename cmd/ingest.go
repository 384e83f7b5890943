package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index new documents in the data directory and exit",
	Long: `Loads every PDF and text file in the data directory that has not been
ingested yet, embeds it and adds it to the index. Files already listed in the
tracker file are skipped, so running it twice is safe.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	color.Blue("Ingesting documents from %s", cfg.DataDir)

	bar := getProgressBar(-1, "Loading documents...")
	p, err := newApp(cfg).pipeline(func(path string) {
		if bar != nil {
			bar.Describe(color.BlueString("Loaded %s", path))
			_ = bar.Add(1)
		}
	})
	if err != nil {
		return err
	}

	report, err := p.Ingest(ctx)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if report.NothingToDo {
		color.Yellow("No new documents to ingest.")
		return nil
	}
	for _, f := range report.Files {
		fmt.Printf("  %s\n", f)
	}
	color.Green("✓ Ingested %d file(s), %d chunk(s)", report.Count(), report.Chunks)
	return nil
}
