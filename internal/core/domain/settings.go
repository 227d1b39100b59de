package domain

import "time"

const unknownDescription = "Unknown"

// StoreBackend identifies where the knowledge corpus is persisted.
type StoreBackend string

// Available store backends.
const (
	// StoreBackendMemory keeps the corpus in process memory.
	StoreBackendMemory StoreBackend = "memory"

	// StoreBackendFile keeps the corpus in a local JSON file.
	StoreBackendFile StoreBackend = "file"

	// StoreBackendBlob keeps the corpus as a JSON document behind an HTTP URL.
	StoreBackendBlob StoreBackend = "blob"

	// StoreBackendS3 keeps the corpus as one object in an S3-compatible bucket.
	StoreBackendS3 StoreBackend = "s3"

	// StoreBackendSQLite keeps corpus snapshots in a local SQLite database.
	StoreBackendSQLite StoreBackend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreBackendMemory, StoreBackendFile, StoreBackendBlob, StoreBackendS3, StoreBackendSQLite:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StoreBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StoreBackend) Description() string {
	switch b {
	case StoreBackendMemory:
		return "Memory (ephemeral)"
	case StoreBackendFile:
		return "File (local JSON)"
	case StoreBackendBlob:
		return "Blob (HTTP JSON document)"
	case StoreBackendS3:
		return "S3 (object storage)"
	case StoreBackendSQLite:
		return "SQLite (local snapshots)"
	default:
		return unknownDescription
	}
}

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// StoreSettings holds knowledge store configuration.
type StoreSettings struct {
	// Backend selects the store implementation.
	Backend StoreBackend

	// Path is the file path (file backend) or data directory (sqlite backend).
	Path string

	// URL is the document URL (blob backend).
	URL string

	// WriteToken authorises writes to the blob backend. Empty means read-only.
	WriteToken string

	// S3Endpoint is the S3-compatible endpoint host.
	S3Endpoint string

	// S3Bucket is the bucket holding the corpus object.
	S3Bucket string

	// S3Object is the corpus object name.
	S3Object string

	// S3AccessKey is the access key ID.
	S3AccessKey string

	// S3SecretKey is the secret key. Empty means read-only.
	S3SecretKey string

	// S3UseSSL enables TLS for the S3 endpoint.
	S3UseSSL bool

	// LoadTimeout bounds each corpus load. Expiry yields an empty corpus.
	LoadTimeout time.Duration
}

// Writable reports whether the configured backend has a write credential.
func (s StoreSettings) Writable() bool {
	switch s.Backend {
	case StoreBackendBlob:
		return s.WriteToken != ""
	case StoreBackendS3:
		return s.S3SecretKey != ""
	default:
		return true
	}
}

// RetrievalSettings holds default retrieval limits.
type RetrievalSettings struct {
	// QALimit is the default number of QA matches.
	QALimit int

	// ContextLimit is the default number of context matches.
	ContextLimit int

	// OverrideTTL is how long session answer overrides apply.
	OverrideTTL time.Duration
}

// MaintenanceSettings holds sanitisation and backfill configuration.
type MaintenanceSettings struct {
	// MinAnswerLen is the minimum answer length kept by sanitisation.
	MinAnswerLen int

	// UseClassifier enables the LLM quality classifier.
	UseClassifier bool

	// ChunkSize is the number of pairs per classifier call.
	ChunkSize int

	// ClassifierRate is the maximum number of classifier calls per second.
	ClassifierRate float64

	// BackfillBatchSize is the number of texts per embedding request.
	BackfillBatchSize int
}

// NormaliseSettings holds text normalisation configuration.
type NormaliseSettings struct {
	// CanonicalName is the organisation name legacy aliases are rewritten to.
	CanonicalName string

	// Aliases are legacy organisation names rewritten to CanonicalName.
	Aliases []string

	// BlockedTerms mark answers that leak another entity's details.
	BlockedTerms []string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// LogSettings holds the persistent log sink configuration.
type LogSettings struct {
	// File is the log file path. Empty disables the file sink.
	File string

	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Store       StoreSettings
	Retrieval   RetrievalSettings
	Maintenance MaintenanceSettings
	Normalise   NormaliseSettings
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	Scheduler   SchedulerConfig
	Log         LogSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// AI features (Embedding, LLM) are left unconfigured by default.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Store: StoreSettings{
			Backend:     StoreBackendFile,
			S3Object:    "knowledge.json",
			S3UseSSL:    true,
			LoadTimeout: 10 * time.Second,
		},
		Retrieval: RetrievalSettings{
			QALimit:      DefaultQALimit,
			ContextLimit: DefaultContextLimit,
			OverrideTTL:  30 * time.Minute,
		},
		Maintenance: MaintenanceSettings{
			MinAnswerLen:      DefaultMinAnswerLen,
			ChunkSize:         DefaultClassifierChunkSize,
			ClassifierRate:    2,
			BackfillBatchSize: DefaultBackfillBatchSize,
		},
		Scheduler: DefaultSchedulerConfig(),
		Log: LogSettings{
			MaxSizeMB: 10,
		},
	}
}

// AllStoreBackends returns all available store backends.
func AllStoreBackends() []StoreBackend {
	return []StoreBackend{
		StoreBackendMemory,
		StoreBackendFile,
		StoreBackendBlob,
		StoreBackendS3,
		StoreBackendSQLite,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}
