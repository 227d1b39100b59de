package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rfpkb/internal/adapters/driven/storage/corpus"
)

var (
	corpusOutput      string
	corpusReplace     bool
	corpusPrune       int
	corpusStatsAsJSON bool
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect and move the stored corpus",
}

var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus counts",
	Args:  cobra.NoArgs,
	RunE:  runCorpusStats,
}

var corpusExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the corpus as JSON",
	Long:  `Writes the stored corpus as a JSON array to stdout, or to --output.`,
	Args:  cobra.NoArgs,
	RunE:  runCorpusExport,
}

var corpusImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Add records from a JSON file",
	Long: `Reads records from a JSON file and appends them to the corpus.
With --replace the file becomes the whole corpus.

The file may be a bare array or an object wrapping one under "records",
"items" or "data". Common field aliases such as "q", "a" and "text" are
accepted.`,
	Args: cobra.ExactArgs(1),
	RunE: runCorpusImport,
}

var corpusSnapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List saved corpus versions",
	Long:  `Lists saved versions for stores that keep history (sqlite).`,
	Args:  cobra.NoArgs,
	RunE:  runCorpusSnapshots,
}

func init() {
	corpusStatsCmd.Flags().BoolVar(&corpusStatsAsJSON, "json", false, "output as JSON")
	corpusExportCmd.Flags().StringVarP(&corpusOutput, "output", "o", "", "write to this file instead of stdout")
	corpusImportCmd.Flags().BoolVar(&corpusReplace, "replace", false, "replace the corpus instead of appending")
	corpusSnapshotsCmd.Flags().IntVar(&corpusPrune, "prune", 0, "keep only the newest N versions")

	corpusCmd.AddCommand(corpusStatsCmd)
	corpusCmd.AddCommand(corpusExportCmd)
	corpusCmd.AddCommand(corpusImportCmd)
	corpusCmd.AddCommand(corpusSnapshotsCmd)
	rootCmd.AddCommand(corpusCmd)
}

func runCorpusStats(cmd *cobra.Command, _ []string) error {
	if err := requireMaintenance(); err != nil {
		return err
	}

	stats, err := maintenanceService.Stats(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to read corpus: %w", err)
	}

	if corpusStatsAsJSON {
		return outputJSON(cmd, map[string]int{
			"total":            stats.Total,
			"qa":               stats.QA,
			"context":          stats.Context,
			"with_embedding":   stats.WithEmbedding,
			"eligible_qa":      stats.EligibleQA,
			"eligible_context": stats.EligibleContext,
		})
	}

	cmd.Println("Corpus")
	cmd.Println("======")
	cmd.Printf("  Records:         %d\n", stats.Total)
	cmd.Printf("  QA pairs:        %d (%d eligible)\n", stats.QA, stats.EligibleQA)
	cmd.Printf("  Context:         %d (%d eligible)\n", stats.Context, stats.EligibleContext)
	coverage := 0.0
	if stats.Total > 0 {
		coverage = float64(stats.WithEmbedding) / float64(stats.Total) * 100
	}
	cmd.Printf("  With embedding:  %d (%.0f%%)\n", stats.WithEmbedding, coverage)
	return nil
}

func runCorpusExport(cmd *cobra.Command, _ []string) error {
	if err := requireMaintenance(); err != nil {
		return err
	}

	records, err := maintenanceService.Export(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to read corpus: %w", err)
	}
	data, err := corpus.Encode(records)
	if err != nil {
		return fmt.Errorf("failed to encode corpus: %w", err)
	}

	if corpusOutput == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	if err := os.WriteFile(corpusOutput, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", corpusOutput, err)
	}
	cmd.Printf("Exported %d records to %s\n", len(records), corpusOutput)
	return nil
}

func runCorpusImport(cmd *cobra.Command, args []string) error {
	if err := requireMaintenance(); err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	records, err := corpus.Decode(data)
	if errors.Is(err, corpus.ErrNotArray) {
		return fmt.Errorf("%s does not contain a list of records", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%s contains no records", args[0])
	}

	result, err := maintenanceService.Import(commandContext(cmd), records, corpusReplace)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	if !result.Persisted {
		cmd.Println("Warning: store is read-only, corpus was not saved")
		return nil
	}
	verb := "Appended"
	if corpusReplace {
		verb = "Replaced corpus with"
	}
	cmd.Printf("%s %d records (corpus now %d)\n", verb, len(records), result.Records)
	return nil
}

func runCorpusSnapshots(cmd *cobra.Command, _ []string) error {
	if snapshotStore == nil {
		return errors.New("the configured store does not keep snapshots")
	}
	ctx := commandContext(cmd)

	if corpusPrune > 0 {
		if err := snapshotStore.Prune(ctx, corpusPrune); err != nil {
			return fmt.Errorf("failed to prune snapshots: %w", err)
		}
	}

	snapshots, err := snapshotStore.Snapshots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		cmd.Println("No snapshots saved.")
		return nil
	}
	for _, snap := range snapshots {
		cmd.Printf("  #%-5d %s  %d records\n", snap.ID, snap.SavedAt.Local().Format("2006-01-02 15:04:05"), snap.RecordCount)
	}
	return nil
}
