package cli

import (
	"bufio"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

var (
	sanitizeMinAnswerLen int
	sanitizeClassifier   bool
	sanitizeChunkSize    int
	sanitizeDryRun       bool
	sanitizeYes          bool
)

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize",
	Short: "Remove low-quality QA records from the corpus",
	Long: `Drops QA records whose answers are boilerplate, too short or duplicated,
and optionally those an LLM classifier rejects. Context passages are kept.

The cleaned corpus is previewed first and saved only after confirmation.
Use --yes to skip the prompt and --dry-run to only preview.`,
	Args: cobra.NoArgs,
	RunE: runSanitize,
}

func init() {
	sanitizeCmd.Flags().IntVar(&sanitizeMinAnswerLen, "min-answer-len", domain.DefaultMinAnswerLen,
		"drop answers shorter than this many characters")
	sanitizeCmd.Flags().BoolVar(&sanitizeClassifier, "classifier", false, "ask the LLM classifier about borderline records")
	sanitizeCmd.Flags().IntVar(&sanitizeChunkSize, "chunk-size", domain.DefaultClassifierChunkSize,
		"pairs per classifier request")
	sanitizeCmd.Flags().BoolVar(&sanitizeDryRun, "dry-run", false, "report what would be removed without saving")
	sanitizeCmd.Flags().BoolVarP(&sanitizeYes, "yes", "y", false, "save without asking")
	rootCmd.AddCommand(sanitizeCmd)
}

func runSanitize(cmd *cobra.Command, _ []string) error {
	if err := requireMaintenance(); err != nil {
		return err
	}
	ctx := commandContext(cmd)
	opts := sanitizeOptions(cmd)

	records, err := maintenanceService.Export(ctx)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	report, err := maintenanceService.Sanitize(ctx, records, opts)
	if errors.Is(err, domain.ErrNothingToSanitize) {
		cmd.Println("Corpus is empty, nothing to sanitize.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("sanitize failed: %w", err)
	}

	printSanitizeReport(cmd, report)

	if opts.DryRun {
		cmd.Println("Dry run, corpus not modified.")
		return nil
	}
	if report.DroppedTotal() == 0 {
		cmd.Println("Nothing to remove.")
		return nil
	}
	if len(report.Records) == 0 {
		return errors.New("sanitize would leave the corpus empty, not saving")
	}

	if !sanitizeYes {
		reader := bufio.NewReader(cmd.InOrStdin())
		question := fmt.Sprintf("Remove %d record(s) and save?", report.DroppedTotal())
		if !confirm(reader, cmd.OutOrStdout(), question) {
			cmd.Println("Aborted.")
			return nil
		}
	}

	saved, err := maintenanceService.Import(ctx, report.Records, true)
	if err != nil {
		return fmt.Errorf("failed to save corpus: %w", err)
	}
	if !saved.Persisted {
		cmd.Println("Warning: store is read-only, corpus was not saved")
		return nil
	}
	cmd.Printf("Saved %d records.\n", saved.Records)
	return nil
}

// sanitizeOptions starts from the configured maintenance settings and
// applies flags the user set explicitly.
func sanitizeOptions(cmd *cobra.Command) domain.SanitizeOptions {
	maintenance := domain.DefaultAppSettings().Maintenance
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			maintenance = settings.Maintenance
		}
	}

	opts := domain.SanitizeOptions{
		MinAnswerLen:  maintenance.MinAnswerLen,
		UseClassifier: maintenance.UseClassifier,
		ChunkSize:     maintenance.ChunkSize,
		DryRun:        sanitizeDryRun,
	}
	flags := cmd.Flags()
	if flags.Changed("min-answer-len") {
		opts.MinAnswerLen = sanitizeMinAnswerLen
	}
	if flags.Changed("classifier") {
		opts.UseClassifier = sanitizeClassifier
	}
	if flags.Changed("chunk-size") {
		opts.ChunkSize = sanitizeChunkSize
	}
	return opts.WithDefaults()
}

func printSanitizeReport(cmd *cobra.Command, report domain.SanitizeReport) {
	cmd.Println("Sanitize report")
	cmd.Println("===============")
	cmd.Printf("  Examined:   %d\n", report.Input)
	cmd.Printf("  QA kept:    %d\n", report.KeptQA)
	cmd.Printf("  Context:    %d\n", report.Context)
	cmd.Printf("  Removed:    %d\n", report.DroppedTotal())

	reasons := make([]string, 0, len(report.Dropped))
	for reason := range report.Dropped {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		cmd.Printf("    %-12s %d\n", reason, report.Dropped[domain.DropReason(reason)])
	}

	if report.ClassifierChunks > 0 {
		cmd.Printf("  Classifier: %d request(s), %d failed\n", report.ClassifierChunks, report.ClassifierFailures)
	}
	cmd.Println()
}
