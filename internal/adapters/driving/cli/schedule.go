package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/logger"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run scheduled corpus maintenance",
	Long: `Runs the corpus-sanitize and embedding-backfill tasks on their cron
schedules. Configure them with:

  rfpkb settings set scheduler.corpus_sanitize.enabled true
  rfpkb settings set scheduler.corpus_sanitize.schedule "0 3 * * *"`,
}

var scheduleRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler until interrupted",
	Args:  cobra.NoArgs,
	Annotations: map[string]string{
		annotationLongRunning: "true",
	},
	RunE: runScheduleRun,
}

var scheduleNowCmd = &cobra.Command{
	Use:       "now [task]",
	Short:     "Run one task immediately",
	Long:      `Runs corpus-sanitize or embedding-backfill once, regardless of its schedule.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{domain.TaskIDCorpusSanitize, domain.TaskIDEmbeddingBackfill},
	RunE:      runScheduleNow,
}

func init() {
	scheduleCmd.AddCommand(scheduleRunCmd)
	scheduleCmd.AddCommand(scheduleNowCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runScheduleRun(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}
	ctx := commandContext(cmd)

	cmd.Println("Scheduler running, press Ctrl+C to stop.")
	logger.Info("Scheduler started")

	// Start blocks until ctx is cancelled.
	err := scheduler.Start(ctx)
	if stopErr := scheduler.Stop(); stopErr != nil {
		logger.Warn("stopping scheduler: %v", stopErr)
	}
	logger.Info("Scheduler stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler failed: %w", err)
	}
	return nil
}

func runScheduleNow(cmd *cobra.Command, args []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	items, err := scheduler.RunNow(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("task %s failed: %w", args[0], err)
	}
	cmd.Printf("Task %s completed, %d item(s) processed\n", args[0], items)
	return nil
}
