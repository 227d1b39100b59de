// Package memory provides in-process implementations of the driven stores.
//
// KnowledgeStore backs the "memory" corpus backend and most service tests.
// OverrideStore holds session answer overrides with a TTL. ConfigStore and
// SchedulerStore exist for tests and for runs that should leave nothing on
// disk.
package memory
