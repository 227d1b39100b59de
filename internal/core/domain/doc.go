// Package domain defines the core business entities for the knowledge base.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - KnowledgeRecord: A curated question/answer pair or a free-text context passage
//   - Query: A retrieval request carrying a query embedding and optional text
//   - ScoredCandidate: A record annotated with its fused relevance score
//   - SanitizeReport: The outcome of a corpus maintenance pass
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
