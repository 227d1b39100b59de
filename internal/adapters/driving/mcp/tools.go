package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query        string    `json:"query,omitempty" jsonschema:"the RFP question or text to match"`
	Embedding    []float32 `json:"embedding,omitempty" jsonschema:"precomputed query embedding; when omitted the query is embedded by the server"`
	QALimit      *int      `json:"qa_limit,omitempty" jsonschema:"maximum number of QA matches (default 5)"`
	ContextLimit *int      `json:"context_limit,omitempty" jsonschema:"maximum number of context passages (default 5)"`
	SessionID    string    `json:"session_id,omitempty" jsonschema:"apply answer overrides recorded for this session"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	QA      []MatchOutput `json:"qa"`
	Context []MatchOutput `json:"context"`
}

// RetrieveMatchesInput is the input schema for the retrieve_matches tool.
type RetrieveMatchesInput struct {
	Embedding []float32 `json:"embedding,omitempty" jsonschema:"query embedding"`
	Limit     int       `json:"limit,omitempty" jsonschema:"maximum number of matches (default 5)"`
	Query     string    `json:"query,omitempty" jsonschema:"query text for lexical similarity"`
}

// RetrieveMatchesOutput is the output schema for the retrieve_matches tool.
type RetrieveMatchesOutput struct {
	Matches []MatchOutput `json:"matches"`
	Count   int           `json:"count"`
}

// MatchOutput represents a single scored record.
type MatchOutput struct {
	ID       string  `json:"id,omitempty"`
	Kind     string  `json:"kind"`
	Question string  `json:"question,omitempty"`
	Answer   string  `json:"answer,omitempty"`
	Content  string  `json:"content,omitempty"`
	Source   string  `json:"source,omitempty"`
	Doc      string  `json:"doc,omitempty"`
	Score    float64 `json:"score"`
	Semantic float64 `json:"semantic_score"`
	Lexical  float64 `json:"lexical_score"`
	Override bool    `json:"override,omitempty"`
}

// UpdateAnswerInput is the input schema for the update_answer tool.
type UpdateAnswerInput struct {
	Question  string `json:"question" jsonschema:"the question whose answer is being set"`
	Answer    string `json:"answer" jsonschema:"the new answer"`
	Source    string `json:"source,omitempty" jsonschema:"provenance label, for example the RFP name"`
	Doc       string `json:"doc,omitempty" jsonschema:"document the answer came from"`
	SessionID string `json:"session_id,omitempty" jsonschema:"when set, override the answer for this session only instead of saving it"`
}

// UpdateAnswerOutput is the output schema for the update_answer tool.
type UpdateAnswerOutput struct {
	ID        string `json:"id,omitempty"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Persisted bool   `json:"persisted"`
	Override  bool   `json:"override,omitempty"`
}

// SanitizeInput is the input schema for the sanitize tool.
type SanitizeInput struct {
	MinAnswerLen  int   `json:"min_answer_len,omitempty" jsonschema:"drop answers shorter than this (default 8)"`
	UseClassifier bool  `json:"use_classifier,omitempty" jsonschema:"ask the LLM classifier about borderline records"`
	DryRun        *bool `json:"dry_run,omitempty" jsonschema:"report without saving (default true)"`
}

// SanitizeOutput is the output schema for the sanitize tool.
type SanitizeOutput struct {
	Input              int            `json:"input"`
	KeptQA             int            `json:"kept_qa"`
	Context            int            `json:"context"`
	Removed            int            `json:"removed"`
	Dropped            map[string]int `json:"dropped"`
	ClassifierChunks   int            `json:"classifier_chunks"`
	ClassifierFailures int            `json:"classifier_failures"`
	DryRun             bool           `json:"dry_run"`
	Persisted          bool           `json:"persisted"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the best stored answers and supporting passages for an RFP question",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve_matches",
		Description: "Rank stored question/answer pairs against a query embedding",
	}, s.handleRetrieveMatches)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update_answer",
		Description: "Save the answer for a question, or override it for one session",
	}, s.handleUpdateAnswer)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sanitize",
		Description: "Remove low-quality QA records from the knowledge base (dry run unless dry_run is false)",
	}, s.handleSanitize)
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	query := domain.Query{
		Text:         input.Query,
		Embedding:    input.Embedding,
		QALimit:      limitOrDefault(input.QALimit, domain.DefaultQALimit),
		ContextLimit: limitOrDefault(input.ContextLimit, domain.DefaultContextLimit),
		SessionID:    input.SessionID,
	}

	var result domain.RetrievalResult
	if len(query.Embedding) > 0 {
		result = s.ports.Retrieval.Retrieve(ctx, query)
	} else {
		result = s.ports.Retrieval.Search(ctx, query)
	}

	return nil, RetrieveOutput{
		QA:      toMatchOutputs(result.QAMatches),
		Context: toMatchOutputs(result.ContextMatches),
	}, nil
}

// handleRetrieveMatches handles the retrieve_matches tool invocation.
func (s *Server) handleRetrieveMatches(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveMatchesInput,
) (*mcp.CallToolResult, RetrieveMatchesOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = domain.DefaultQALimit
	}

	matches := s.ports.Retrieval.RetrieveMatches(ctx, input.Embedding, limit, input.Query)
	output := RetrieveMatchesOutput{
		Matches: toMatchOutputs(matches),
		Count:   len(matches),
	}
	return nil, output, nil
}

// handleUpdateAnswer handles the update_answer tool invocation.
func (s *Server) handleUpdateAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateAnswerInput,
) (*mcp.CallToolResult, UpdateAnswerOutput, error) {
	provenance := domain.Provenance{
		Source: input.Source,
		Doc:    input.Doc,
		Origin: "mcp",
	}

	if input.SessionID != "" {
		err := s.ports.Retrieval.SetOverride(ctx, domain.AnswerOverride{
			SessionID:  input.SessionID,
			Question:   input.Question,
			Answer:     input.Answer,
			Provenance: provenance,
		})
		if err != nil {
			return nil, UpdateAnswerOutput{}, fmt.Errorf("setting override: %w", err)
		}
		return nil, UpdateAnswerOutput{Override: true}, nil
	}

	result, err := s.ports.Retrieval.UpdateAnswer(ctx, domain.AnswerUpdate{
		Question:   input.Question,
		Answer:     input.Answer,
		Provenance: provenance,
	})
	if err != nil {
		return nil, UpdateAnswerOutput{}, fmt.Errorf("updating answer: %w", err)
	}

	return nil, UpdateAnswerOutput{
		ID:        result.ID,
		Created:   result.Created,
		Updated:   result.Updated,
		Persisted: result.Persisted,
	}, nil
}

// handleSanitize handles the sanitize tool invocation.
func (s *Server) handleSanitize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SanitizeInput,
) (*mcp.CallToolResult, SanitizeOutput, error) {
	if s.ports.Maintenance == nil {
		return nil, SanitizeOutput{}, ErrMaintenanceDisabled
	}

	dryRun := true
	if input.DryRun != nil {
		dryRun = *input.DryRun
	}
	opts := domain.SanitizeOptions{
		MinAnswerLen:  input.MinAnswerLen,
		UseClassifier: input.UseClassifier,
		DryRun:        dryRun,
	}.WithDefaults()

	report, err := s.ports.Maintenance.SanitizeStore(ctx, opts)
	if err != nil {
		return nil, SanitizeOutput{}, fmt.Errorf("sanitizing corpus: %w", err)
	}

	dropped := make(map[string]int, len(report.Dropped))
	for reason, n := range report.Dropped {
		dropped[string(reason)] = n
	}

	return nil, SanitizeOutput{
		Input:              report.Input,
		KeptQA:             report.KeptQA,
		Context:            report.Context,
		Removed:            report.DroppedTotal(),
		Dropped:            dropped,
		ClassifierChunks:   report.ClassifierChunks,
		ClassifierFailures: report.ClassifierFailures,
		DryRun:             dryRun,
		Persisted:          report.Persisted,
	}, nil
}

// limitOrDefault distinguishes an explicit zero, which disables a list,
// from an omitted limit.
func limitOrDefault(limit *int, fallback int) int {
	if limit == nil {
		return fallback
	}
	return max(*limit, 0)
}

func toMatchOutputs(candidates []domain.ScoredCandidate) []MatchOutput {
	out := make([]MatchOutput, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		kind := domain.KindQA
		if c.Record.IsContext() {
			kind = domain.KindContext
		}
		out = append(out, MatchOutput{
			ID:       c.Record.ID,
			Kind:     string(kind),
			Question: c.Record.Question,
			Answer:   c.Record.Answer,
			Content:  c.Record.Content,
			Source:   c.Record.Provenance.Source,
			Doc:      c.Record.Provenance.Doc,
			Score:    c.Score,
			Semantic: c.SemanticScore,
			Lexical:  c.LexicalScore,
			Override: c.Override,
		})
	}
	return out
}
