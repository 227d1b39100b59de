package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

var (
	searchQALimit      int
	searchContextLimit int
	searchJSON         bool
	searchSession      string

	matchesLimit int
	matchesJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Long: `Ranks stored question/answer pairs and context passages against a query.

Scores blend semantic similarity (when an embedding provider is configured)
with lexical similarity of the query to each record. QA pairs and context
passages are ranked separately.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var matchesCmd = &cobra.Command{
	Use:   "matches [query]",
	Short: "Search question/answer pairs only",
	Args:  cobra.ExactArgs(1),
	RunE:  runMatches,
}

func init() {
	searchCmd.Flags().IntVar(&searchQALimit, "qa-limit", domain.DefaultQALimit, "maximum number of QA matches")
	searchCmd.Flags().IntVar(&searchContextLimit, "context-limit", domain.DefaultContextLimit,
		"maximum number of context matches")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVar(&searchSession, "session", "", "apply answer overrides from this session")

	matchesCmd.Flags().IntVarP(&matchesLimit, "limit", "n", domain.DefaultQALimit, "maximum number of matches")
	matchesCmd.Flags().BoolVar(&matchesJSON, "json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(matchesCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireRetrieval(); err != nil {
		return err
	}

	configured := configuredRetrieval()
	qaLimit, contextLimit := searchQALimit, searchContextLimit
	if !cmd.Flags().Changed("qa-limit") {
		qaLimit = configured.QALimit
	}
	if !cmd.Flags().Changed("context-limit") {
		contextLimit = configured.ContextLimit
	}

	result := retrievalService.Search(commandContext(cmd), domain.Query{
		Text:         args[0],
		QALimit:      max(qaLimit, 0),
		ContextLimit: max(contextLimit, 0),
		SessionID:    searchSession,
	})

	if searchJSON {
		return outputJSON(cmd, searchOutput{
			QA:      toMatchViews(result.QAMatches),
			Context: toMatchViews(result.ContextMatches),
		})
	}

	if result.IsEmpty() {
		cmd.Println("No results found.")
		return nil
	}
	printMatches(cmd, "QA matches:", result.QAMatches)
	printMatches(cmd, "Context matches:", result.ContextMatches)
	return nil
}

func runMatches(cmd *cobra.Command, args []string) error {
	if err := requireRetrieval(); err != nil {
		return err
	}

	result := retrievalService.Search(commandContext(cmd), domain.Query{
		Text:    args[0],
		QALimit: max(matchesLimit, 0),
	})

	if matchesJSON {
		return outputJSON(cmd, toMatchViews(result.QAMatches))
	}
	if len(result.QAMatches) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	printMatches(cmd, "QA matches:", result.QAMatches)
	return nil
}

// configuredRetrieval returns the stored retrieval settings, or the
// defaults when settings are unavailable.
func configuredRetrieval() domain.RetrievalSettings {
	defaults := domain.DefaultAppSettings().Retrieval
	if settingsService == nil {
		return defaults
	}
	settings, err := settingsService.Get()
	if err != nil {
		return defaults
	}
	return settings.Retrieval
}

type searchOutput struct {
	QA      []matchView `json:"qa"`
	Context []matchView `json:"context"`
}

// matchView is the JSON shape of a scored record. Embeddings are omitted.
type matchView struct {
	ID       string  `json:"id,omitempty"`
	Kind     string  `json:"kind"`
	Question string  `json:"question,omitempty"`
	Answer   string  `json:"answer,omitempty"`
	Content  string  `json:"content,omitempty"`
	Source   string  `json:"source,omitempty"`
	Score    float64 `json:"score"`
	Semantic float64 `json:"semantic"`
	Lexical  float64 `json:"lexical"`
	Override bool    `json:"override,omitempty"`
}

func toMatchViews(candidates []domain.ScoredCandidate) []matchView {
	views := make([]matchView, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		kind := domain.KindQA
		if c.Record.IsContext() {
			kind = domain.KindContext
		}
		views = append(views, matchView{
			ID:       c.Record.ID,
			Kind:     string(kind),
			Question: c.Record.Question,
			Answer:   c.Record.Answer,
			Content:  c.Record.Content,
			Source:   c.Record.Provenance.Source,
			Score:    c.Score,
			Semantic: c.SemanticScore,
			Lexical:  c.LexicalScore,
			Override: c.Override,
		})
	}
	return views
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func printMatches(cmd *cobra.Command, title string, matches []domain.ScoredCandidate) {
	if len(matches) == 0 {
		return
	}
	cmd.Println(title)
	cmd.Println()
	for i := range matches {
		m := &matches[i]
		label := ""
		if m.Override {
			label = " [session override]"
		}
		cmd.Printf("  [%d] %.3f (semantic %.3f, lexical %.3f)%s\n",
			i+1, m.Score, m.SemanticScore, m.LexicalScore, label)
		if m.Record.IsContext() {
			cmd.Printf("      %s\n", truncate(m.Record.Content, 200))
		} else {
			cmd.Printf("      Q: %s\n", truncate(m.Record.Question, 200))
			cmd.Printf("      A: %s\n", truncate(m.Record.Answer, 200))
		}
		if src := m.Record.Provenance.Source; src != "" {
			cmd.Printf("      Source: %s\n", src)
		}
		cmd.Println()
	}
}

// truncate shortens s to at most n runes on a single line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
