package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
)

// mockLLM records the last prompt and returns a canned reply.
type mockLLM struct {
	reply  string
	err    error
	calls  int
	prompt string
	opts   driven.GenerateOptions
}

func (m *mockLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.calls++
	m.prompt = prompt
	m.opts = opts
	return m.reply, m.err
}

func (m *mockLLM) Chat(context.Context, []driven.ChatMessage, driven.ChatOptions) (string, error) {
	return "", errors.New("not used")
}

func (m *mockLLM) ModelName() string          { return "mock" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }

// mockPromptStore serves fixed templates.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("missing")
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

var testPairs = []domain.QAPair{
	{Question: "Do you carry cyber insurance?", Answer: "Yes, $5M per occurrence."},
	{Question: "Describe your  onboarding\nprocess", Answer: "TBD"},
}

func TestClassify(t *testing.T) {
	llm := &mockLLM{reply: "[true, false]"}
	c := New(llm, Options{RequestsPerSecond: -1})

	verdicts, err := c.Classify(context.Background(), testPairs)

	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, verdicts)
	assert.Equal(t, 1, llm.calls)
	assert.Contains(t, llm.prompt, "Judge each of the following 2 entries")
	assert.Contains(t, llm.prompt, "2. Q: Describe your onboarding process")
	assert.Equal(t, fallbackSystemPrompt, llm.opts.System)
	assert.GreaterOrEqual(t, llm.opts.MaxTokens, minResponseTokens)
}

func TestClassify_UsesPromptStore(t *testing.T) {
	llm := &mockLLM{reply: "[true, true]"}
	c := New(llm, Options{RequestsPerSecond: -1})
	c.SetPromptStore(&mockPromptStore{prompts: map[string]string{
		driven.PromptClassifySystem: "custom system",
		driven.PromptClassifyPairs:  "count=%d\n%s",
	}})

	_, err := c.Classify(context.Background(), testPairs)

	require.NoError(t, err)
	assert.Equal(t, "custom system", llm.opts.System)
	assert.True(t, strings.HasPrefix(llm.prompt, "count=2\n1. Q:"))
}

func TestClassify_Empty(t *testing.T) {
	llm := &mockLLM{}
	c := New(llm, Options{})

	verdicts, err := c.Classify(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, verdicts)
	assert.Zero(t, llm.calls)
}

func TestClassify_Failures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"llm error", "", errors.New("timeout")},
		{"no array", "I think they are both fine.", nil},
		{"too few verdicts", "[true]", nil},
		{"too many verdicts", "[true, false, true]", nil},
		{"bad element", `[true, 3]`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&mockLLM{reply: tt.reply, err: tt.err}, Options{RequestsPerSecond: -1})

			verdicts, err := c.Classify(context.Background(), testPairs)

			assert.ErrorIs(t, err, domain.ErrClassifierUnavailable)
			assert.Nil(t, verdicts)
		})
	}
}

func TestClassify_NoLLM(t *testing.T) {
	_, err := New(nil, Options{}).Classify(context.Background(), testPairs)
	assert.ErrorIs(t, err, domain.ErrClassifierUnavailable)
}

func TestClassify_CancelledWhileThrottled(t *testing.T) {
	llm := &mockLLM{reply: "[true, true]"}
	c := New(llm, Options{RequestsPerSecond: 0.001, Burst: 1})
	ctx := context.Background()

	_, err := c.Classify(ctx, testPairs)
	require.NoError(t, err, "first call uses the burst token")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = c.Classify(cancelled, testPairs)
	assert.Error(t, err)
	assert.Equal(t, 1, llm.calls)
}

func TestParseVerdicts(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    []bool
		wantErr bool
	}{
		{"plain", "[true,false]", []bool{true, false}, false},
		{"code fence", "```json\n[false, true]\n```", []bool{false, true}, false},
		{"prose around", "Here you go: [true] Thanks!", []bool{true}, false},
		{"strings", `["keep", "Drop", "yes", "no"]`, []bool{true, false, true, false}, false},
		{"empty array", "[]", []bool{}, false},
		{"unknown string", `["maybe"]`, nil, true},
		{"object", `{"verdicts": true}`, nil, true},
		{"broken", "[true,", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVerdicts(tt.reply)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatPairsTruncatesLongAnswers(t *testing.T) {
	long := strings.Repeat("x", maxFieldRunes+50)

	out := formatPairs([]domain.QAPair{{Question: "Q", Answer: long}})

	assert.Contains(t, out, strings.Repeat("x", maxFieldRunes)+"…")
	assert.NotContains(t, out, strings.Repeat("x", maxFieldRunes+1))
}
