package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

func sampleCorpus() []domain.KnowledgeRecord {
	qa := domain.NewQARecord("How many licensed clinicians do you employ?", "We employ 500 licensed clinicians.")
	qa.ID = "qa-1"
	qa.Provenance = domain.Provenance{Source: "rfp-2024"}

	other := domain.NewQARecord("Where is your headquarters?", "Our headquarters is in Denver, Colorado.")
	other.ID = "qa-2"

	passage := domain.NewContextRecord("All clinicians are board certified and licensed in their state.")
	passage.ID = "ctx-1"

	return []domain.KnowledgeRecord{qa, other, passage}
}

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand("", "search")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasFlags(t *testing.T) {
	flag := searchCmd.Flags().Lookup("qa-limit")
	require.NotNil(t, flag)
	assert.Equal(t, "5", flag.DefValue)

	flag = searchCmd.Flags().Lookup("context-limit")
	require.NotNil(t, flag)
	assert.Equal(t, "5", flag.DefValue)

	assert.NotNil(t, searchCmd.Flags().Lookup("json"))
	assert.NotNil(t, searchCmd.Flags().Lookup("session"))
}

func TestSearchCmd_WithoutServices(t *testing.T) {
	SetServices(nil)
	t.Cleanup(func() { resetFlags(rootCmd) })

	_, err := executeCommand("", "search", "clinicians")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval service not configured")
}

func TestSearchCmd_PrintsMatches(t *testing.T) {
	setupTestServices(t, sampleCorpus()...)

	out, err := executeCommand("", "search", "How many licensed clinicians do you employ?")

	require.NoError(t, err)
	assert.Contains(t, out, "QA matches:")
	assert.Contains(t, out, "We employ 500 licensed clinicians.")
	assert.Contains(t, out, "Source: rfp-2024")
	assert.Contains(t, out, "Context matches:")
	assert.Contains(t, out, "board certified")
}

func TestSearchCmd_EmptyCorpus(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand("", "search", "anything")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	setupTestServices(t, sampleCorpus()...)

	out, err := executeCommand("", "search", "--json", "--qa-limit", "1", "--context-limit", "0",
		"How many licensed clinicians do you employ?")
	require.NoError(t, err)

	var result searchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.QA, 1)
	assert.Equal(t, "qa-1", result.QA[0].ID)
	assert.Equal(t, "qa", result.QA[0].Kind)
	assert.Empty(t, result.Context)
}

func TestSearchCmd_UsesConfiguredLimits(t *testing.T) {
	env := setupTestServices(t, sampleCorpus()...)
	require.NoError(t, env.config.Set("retrieval.qa_limit", 1))
	require.NoError(t, env.config.Set("retrieval.context_limit", 1))

	out, err := executeCommand("", "search", "--json", "clinicians headquarters")
	require.NoError(t, err)

	var result searchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Len(t, result.QA, 1)
	require.Len(t, result.Context, 1)
	assert.Equal(t, "ctx-1", result.Context[0].ID)
}

func TestSearchCmd_SessionOverride(t *testing.T) {
	setupTestServices(t, sampleCorpus()...)
	question := "How many licensed clinicians do you employ?"

	require.NoError(t, retrievalService.SetOverride(t.Context(), domain.AnswerOverride{
		SessionID: "s1",
		Question:  question,
		Answer:    "We now employ 650 licensed clinicians.",
	}))

	out, err := executeCommand("", "search", "--session", "s1", question)

	require.NoError(t, err)
	assert.Contains(t, out, "[session override]")
	assert.Contains(t, out, "650 licensed clinicians")
	assert.NotContains(t, out, "We employ 500 licensed clinicians.")
}

func TestMatchesCmd_ReturnsOnlyQA(t *testing.T) {
	setupTestServices(t, sampleCorpus()...)

	out, err := executeCommand("", "matches", "--json", "-n", "10", "clinicians")
	require.NoError(t, err)

	var matches []matchView
	require.NoError(t, json.Unmarshal([]byte(out), &matches))
	require.NotEmpty(t, matches)
	for _, m := range matches {
		assert.Equal(t, "qa", m.Kind)
	}
}

func TestMatchesCmd_ContextOnlyCorpus(t *testing.T) {
	setupTestServices(t, domain.NewContextRecord("Clinicians are licensed."))

	out, err := executeCommand("", "matches", "clinicians")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "one two", truncate("one\n  two", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "héé...", truncate("hééllo", 3))
}
