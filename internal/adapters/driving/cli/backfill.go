package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

var (
	backfillBatchSize int
	backfillDryRun    bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Compute missing embeddings",
	Long: `Embeds every record that has no vector using the configured embedding
provider, assigns identifiers to records without one, and saves the corpus.
Records whose batch fails are left unchanged.`,
	Args: cobra.NoArgs,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().IntVar(&backfillBatchSize, "batch-size", domain.DefaultBackfillBatchSize,
		"texts per embedding request")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "only count records missing embeddings")
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	if err := requireMaintenance(); err != nil {
		return err
	}

	batchSize := backfillBatchSize
	if !cmd.Flags().Changed("batch-size") && settingsService != nil {
		if settings, err := settingsService.Get(); err == nil && settings.Maintenance.BackfillBatchSize > 0 {
			batchSize = settings.Maintenance.BackfillBatchSize
		}
	}

	report, err := maintenanceService.Backfill(commandContext(cmd), domain.BackfillOptions{
		BatchSize: batchSize,
		DryRun:    backfillDryRun,
	})
	if errors.Is(err, domain.ErrEmbeddingUnavailable) {
		return errors.New("no embedding provider configured, run 'rfpkb settings embedding'")
	}
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	cmd.Printf("Missing embeddings: %d\n", report.Missing)
	if backfillDryRun {
		cmd.Println("Dry run, corpus not modified.")
		return nil
	}
	cmd.Printf("Embedded:           %d\n", report.Embedded)
	if report.Failed > 0 {
		cmd.Printf("Failed:             %d\n", report.Failed)
	}
	if report.AssignedIDs > 0 {
		cmd.Printf("Assigned IDs:       %d\n", report.AssignedIDs)
	}
	if (report.Embedded > 0 || report.AssignedIDs > 0) && !report.Persisted {
		cmd.Println("Warning: store is read-only, corpus was not saved")
	}
	return nil
}
