// Package classifier judges QA pair quality with a language model.
//
// Pairs are sent as one numbered list per call and the model answers with
// a JSON array of booleans. Calls are throttled with a token bucket so a
// large sanitize run does not trip provider rate limits.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/logger"
)

// Ensure LLMClassifier implements the interfaces.
var (
	_ driven.Classifier       = (*LLMClassifier)(nil)
	_ driven.PromptStoreAware = (*LLMClassifier)(nil)
)

// Defaults.
const (
	DefaultRate       = 2.0
	DefaultBurst      = 1
	maxFieldRunes     = 600
	tokensPerVerdict  = 4
	minResponseTokens = 64
)

const fallbackSystemPrompt = `You review question/answer entries in an RFP knowledge base. ` +
	`Keep entries whose answer genuinely responds to the question. Reply with JSON only.`

const fallbackPairsPrompt = `Judge each of the following %d entries.

%s

Return a JSON array with exactly one boolean per entry, in order: true to keep, false to drop.`

// Options configures an LLMClassifier.
type Options struct {
	// RequestsPerSecond caps model calls. Zero uses DefaultRate; negative disables throttling.
	RequestsPerSecond float64

	// Burst is the token bucket size (default: 1).
	Burst int
}

// LLMClassifier implements driven.Classifier on top of an LLMService.
type LLMClassifier struct {
	llm         driven.LLMService
	promptStore driven.PromptStore
	limiter     *rate.Limiter
}

// New creates a classifier backed by llm.
func New(llm driven.LLMService, opts Options) *LLMClassifier {
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = DefaultRate
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}

	limit := rate.Limit(opts.RequestsPerSecond)
	if opts.RequestsPerSecond < 0 {
		limit = rate.Inf
	}

	return &LLMClassifier{
		llm:     llm,
		limiter: rate.NewLimiter(limit, opts.Burst),
	}
}

// SetPromptStore sets the store for the user-editable prompts.
func (c *LLMClassifier) SetPromptStore(store driven.PromptStore) {
	c.promptStore = store
}

// Classify returns one keep verdict per pair. A reply that cannot be read
// as exactly len(pairs) verdicts is an error.
func (c *LLMClassifier) Classify(ctx context.Context, pairs []domain.QAPair) ([]bool, error) {
	if len(pairs) == 0 {
		return []bool{}, nil
	}
	if c.llm == nil {
		return nil, domain.ErrClassifierUnavailable
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	system := c.loadPrompt(driven.PromptClassifySystem, fallbackSystemPrompt)
	template := c.loadPrompt(driven.PromptClassifyPairs, fallbackPairsPrompt)
	prompt := fmt.Sprintf(template, len(pairs), formatPairs(pairs))

	reply, err := c.llm.Generate(ctx, prompt, driven.GenerateOptions{
		System:    system,
		MaxTokens: max(minResponseTokens, len(pairs)*tokensPerVerdict+16),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrClassifierUnavailable, err)
	}

	verdicts, err := ParseVerdicts(reply)
	if err != nil {
		logger.Debug("classifier: unreadable reply: %q", truncate(reply, 200))
		return nil, fmt.Errorf("%w: %w", domain.ErrClassifierUnavailable, err)
	}
	if len(verdicts) != len(pairs) {
		return nil, fmt.Errorf("%w: got %d verdicts for %d pairs",
			domain.ErrClassifierUnavailable, len(verdicts), len(pairs))
	}
	return verdicts, nil
}

func (c *LLMClassifier) loadPrompt(name, fallback string) string {
	if c.promptStore == nil {
		return fallback
	}
	prompt, err := c.promptStore.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return fallback
	}
	return prompt
}

// formatPairs numbers pairs from 1, one question/answer block each.
func formatPairs(pairs []domain.QAPair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. Q: %s\n   A: %s\n", i+1, oneLine(p.Question), oneLine(p.Answer))
	}
	return b.String()
}

func oneLine(s string) string {
	return truncate(strings.Join(strings.Fields(s), " "), maxFieldRunes)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}

// ParseVerdicts extracts the first JSON array from a model reply. Models
// often wrap it in prose or a code fence. Elements may be booleans or the
// strings "keep"/"drop"/"true"/"false"/"yes"/"no".
func ParseVerdicts(reply string) ([]bool, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in reply")
	}

	var raw []any
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decoding verdicts: %w", err)
	}

	verdicts := make([]bool, len(raw))
	for i, v := range raw {
		switch val := v.(type) {
		case bool:
			verdicts[i] = val
		case string:
			switch strings.ToLower(strings.TrimSpace(val)) {
			case "true", "keep", "yes":
				verdicts[i] = true
			case "false", "drop", "no":
				verdicts[i] = false
			default:
				return nil, fmt.Errorf("verdict %d: unrecognised value %q", i+1, val)
			}
		default:
			return nil, fmt.Errorf("verdict %d: unexpected %T", i+1, v)
		}
	}
	return verdicts, nil
}
