package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

var (
	answerSource  string
	answerDoc     string
	answerSession string
	answerClear   bool
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Record answers",
	Long:  `Set the stored answer for a question, or override it for a single session.`,
}

var answerSetCmd = &cobra.Command{
	Use:   "set [question] [answer]",
	Short: "Set the stored answer for a question",
	Long: `Updates every QA record whose question matches after normalisation,
or appends a new record when none does. The whole corpus is saved.`,
	Args: cobra.ExactArgs(2),
	RunE: runAnswerSet,
}

var answerOverrideCmd = &cobra.Command{
	Use:   "override [question] [answer]",
	Short: "Override the answer for one session",
	Long: `Stores a session-scoped answer that is returned first for this question
when searching with the same --session. Overrides expire and are never saved
to the corpus. Use --clear to drop every override of the session.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runAnswerOverride,
}

func init() {
	answerSetCmd.Flags().StringVar(&answerSource, "source", "manual", "provenance source label")
	answerSetCmd.Flags().StringVar(&answerDoc, "doc", "", "provenance document")

	answerOverrideCmd.Flags().StringVar(&answerSession, "session", "", "session identifier (required)")
	answerOverrideCmd.Flags().BoolVar(&answerClear, "clear", false, "remove every override of the session")

	answerCmd.AddCommand(answerSetCmd)
	answerCmd.AddCommand(answerOverrideCmd)
	rootCmd.AddCommand(answerCmd)
}

func runAnswerSet(cmd *cobra.Command, args []string) error {
	if err := requireRetrieval(); err != nil {
		return err
	}

	result, err := retrievalService.UpdateAnswer(commandContext(cmd), domain.AnswerUpdate{
		Question: args[0],
		Answer:   args[1],
		Provenance: domain.Provenance{
			Source: answerSource,
			Doc:    answerDoc,
			Origin: "cli",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set answer: %w", err)
	}

	switch {
	case result.Created > 0:
		cmd.Printf("Added new record %s\n", displayID(result.ID))
	default:
		cmd.Printf("Updated %d record(s)\n", result.Updated)
	}
	if !result.Persisted {
		cmd.Println("Warning: store is read-only, change was not saved")
	}
	return nil
}

func runAnswerOverride(cmd *cobra.Command, args []string) error {
	if err := requireRetrieval(); err != nil {
		return err
	}
	if answerSession == "" {
		return errors.New("--session is required")
	}

	ctx := commandContext(cmd)
	if answerClear {
		if err := retrievalService.ClearOverrides(ctx, answerSession); err != nil {
			return fmt.Errorf("failed to clear overrides: %w", err)
		}
		cmd.Printf("Cleared overrides for session %s\n", answerSession)
		return nil
	}
	if len(args) != 2 {
		return errors.New("question and answer are required")
	}

	err := retrievalService.SetOverride(ctx, domain.AnswerOverride{
		SessionID:  answerSession,
		Question:   args[0],
		Answer:     args[1],
		Provenance: domain.Provenance{Source: "session", Origin: "cli"},
	})
	if err != nil {
		return fmt.Errorf("failed to set override: %w", err)
	}
	cmd.Printf("Override set for session %s\n", answerSession)
	return nil
}

func displayID(id string) string {
	if id == "" {
		return "(no id)"
	}
	return id
}
