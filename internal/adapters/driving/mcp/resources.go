package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for rfpkb resources.
	uriScheme = "rfpkb://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "corpus/stats",
		Name:        "corpus-stats",
		Description: "Record counts and embedding coverage of the knowledge base",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "records/{recordId}",
		Name:        "record",
		Description: "A single knowledge record by identifier",
		MIMEType:    "application/json",
	}, s.handleRecordResource)
}

// handleStatsResource returns corpus counts.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Maintenance == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	stats, err := s.ports.Maintenance.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading corpus stats: %w", err)
	}

	type statsInfo struct {
		Total           int `json:"total"`
		QA              int `json:"qa"`
		Context         int `json:"context"`
		WithEmbedding   int `json:"with_embedding"`
		EligibleQA      int `json:"eligible_qa"`
		EligibleContext int `json:"eligible_context"`
	}

	data, err := json.MarshalIndent(statsInfo{
		Total:           stats.Total,
		QA:              stats.QA,
		Context:         stats.Context,
		WithEmbedding:   stats.WithEmbedding,
		EligibleQA:      stats.EligibleQA,
		EligibleContext: stats.EligibleContext,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling stats: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleRecordResource returns one record without its embedding.
func (s *Server) handleRecordResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Maintenance == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract recordId from URI: rfpkb://records/{recordId}
	recordID := extractRecordID(req.Params.URI)
	if recordID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	records, err := s.ports.Maintenance.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	type recordInfo struct {
		ID           string `json:"id"`
		Kind         string `json:"kind"`
		Question     string `json:"question,omitempty"`
		Answer       string `json:"answer,omitempty"`
		Content      string `json:"content,omitempty"`
		Source       string `json:"source,omitempty"`
		SourceFile   string `json:"source_file,omitempty"`
		Doc          string `json:"doc,omitempty"`
		HasEmbedding bool   `json:"has_embedding"`
	}

	for i := range records {
		r := &records[i]
		if r.ID != recordID {
			continue
		}
		data, err := json.MarshalIndent(recordInfo{
			ID:           r.ID,
			Kind:         string(r.Kind),
			Question:     r.Question,
			Answer:       r.Answer,
			Content:      r.Content,
			Source:       r.Provenance.Source,
			SourceFile:   r.Provenance.SourceFile,
			Doc:          r.Provenance.Doc,
			HasEmbedding: r.HasEmbedding(),
		}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshalling record: %w", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			}},
		}, nil
	}

	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

// extractRecordID extracts the record ID from a URI like rfpkb://records/{recordId}.
func extractRecordID(uri string) string {
	const prefix = uriScheme + "records/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
