// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - KnowledgeStore: Corpus persistence (file, blob, S3, SQLite, memory)
//   - RecordNormaliser: Text canonicalisation and the hygiene filter
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates query and record vectors. Without it, scoring is lexical-only.
//   - LLMService: Language model calls backing the quality classifier.
//   - Classifier: Judges borderline QA pairs during maintenance. Without it, every pair is kept.
//   - OverrideStore: Session-scoped answer overrides. Without it, overrides are ignored.
//   - SchedulerStore: Scheduled task state. Required only by the scheduler.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
