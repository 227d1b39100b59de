package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyStoreBackend     = "store.backend"
	keyStorePath        = "store.path"
	keyStoreURL         = "store.url"
	keyStoreWriteToken  = "store.write_token"
	keyStoreTimeout     = "store.load_timeout"
	keyS3Endpoint       = "store.s3.endpoint"
	keyS3Bucket         = "store.s3.bucket"
	keyS3Object         = "store.s3.object"
	keyS3AccessKey      = "store.s3.access_key"
	keyS3SecretKey      = "store.s3.secret_key"
	keyS3UseSSL         = "store.s3.use_ssl"
	keyQALimit          = "retrieval.qa_limit"
	keyContextLimit     = "retrieval.context_limit"
	keyOverrideTTL      = "retrieval.override_ttl"
	keyMinAnswerLen     = "maintenance.min_answer_len"
	keyUseClassifier    = "maintenance.use_classifier"
	keyChunkSize        = "maintenance.chunk_size"
	keyClassifierRate   = "maintenance.classifier_rate"
	keyBackfillBatch    = "maintenance.backfill_batch_size"
	keyCanonicalName    = "normalise.canonical_name"
	keyAliases          = "normalise.aliases"
	keyBlockedTerms     = "normalise.blocked_terms"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keySchedulerEnabled = "scheduler.enabled"
	keyLogFile          = "log.file"
	keyLogMaxSize       = "log.max_size_mb"
)

// schedulerTaskKeys maps task IDs to their TOML table names.
var schedulerTaskKeys = map[string]string{
	domain.TaskIDCorpusSanitize:    "corpus_sanitize",
	domain.TaskIDEmbeddingBackfill: "embedding_backfill",
}

// Environment variables that override stored settings.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvStoreBackend    = "RFPKB_STORE_BACKEND"
	EnvStorePath       = "RFPKB_STORE_PATH"
	EnvStoreURL        = "RFPKB_STORE_URL"
	EnvWriteToken      = "RFPKB_WRITE_TOKEN"
	EnvS3Endpoint      = "RFPKB_S3_ENDPOINT"
	EnvS3Bucket        = "RFPKB_S3_BUCKET"
	EnvS3Object        = "RFPKB_S3_OBJECT"
	EnvS3AccessKey     = "RFPKB_S3_ACCESS_KEY"
	EnvS3SecretKey     = "RFPKB_S3_SECRET_KEY"
	EnvCanonicalName   = "RFPKB_CANONICAL_NAME"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

type valueKind int

const (
	kindString valueKind = iota
	kindSecret
	kindInt
	kindBool
	kindFloat
	kindDuration
	kindList
	kindBackend
	kindProvider
	kindSchedule
)

// settableKeys lists every key accepted by Set.
var settableKeys = map[string]valueKind{
	keyStoreBackend:     kindBackend,
	keyStorePath:        kindString,
	keyStoreURL:         kindString,
	keyStoreWriteToken:  kindSecret,
	keyStoreTimeout:     kindDuration,
	keyS3Endpoint:       kindString,
	keyS3Bucket:         kindString,
	keyS3Object:         kindString,
	keyS3AccessKey:      kindString,
	keyS3SecretKey:      kindSecret,
	keyS3UseSSL:         kindBool,
	keyQALimit:          kindInt,
	keyContextLimit:     kindInt,
	keyOverrideTTL:      kindDuration,
	keyMinAnswerLen:     kindInt,
	keyUseClassifier:    kindBool,
	keyChunkSize:        kindInt,
	keyClassifierRate:   kindFloat,
	keyBackfillBatch:    kindInt,
	keyCanonicalName:    kindString,
	keyAliases:          kindList,
	keyBlockedTerms:     kindList,
	keyEmbedProvider:    kindProvider,
	keyEmbedModel:       kindString,
	keyEmbedBaseURL:     kindString,
	keyEmbedAPIKey:      kindSecret,
	keyLLMProvider:      kindProvider,
	keyLLMModel:         kindString,
	keyLLMBaseURL:       kindString,
	keyLLMAPIKey:        kindSecret,
	keySchedulerEnabled: kindBool,
	keyLogFile:          kindString,
	keyLogMaxSize:       kindInt,

	"scheduler.corpus_sanitize.enabled":     kindBool,
	"scheduler.corpus_sanitize.schedule":    kindSchedule,
	"scheduler.embedding_backfill.enabled":  kindBool,
	"scheduler.embedding_backfill.schedule": kindSchedule,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore    driven.ConfigStore
	aiValidator    driven.AIConfigValidator
	scheduleParser driven.ScheduleParser
	lookupEnv      func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// SetScheduleParser enables validation of task schedules in Set.
func (s *SettingsService) SetScheduleParser(parser driven.ScheduleParser) {
	s.scheduleParser = parser
}

// SetEnvLookup replaces the environment lookup. Nil disables overrides.
func (s *SettingsService) SetEnvLookup(lookup func(string) (string, bool)) {
	s.lookupEnv = lookup
}

// Get retrieves current application settings. Environment overrides are
// applied on top of the stored values.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Store: domain.StoreSettings{
			Backend:     s.getBackend(defaults.Store.Backend),
			Path:        s.configStore.GetString(keyStorePath),
			URL:         s.configStore.GetString(keyStoreURL),
			WriteToken:  s.configStore.GetString(keyStoreWriteToken),
			S3Endpoint:  s.configStore.GetString(keyS3Endpoint),
			S3Bucket:    s.configStore.GetString(keyS3Bucket),
			S3Object:    s.getString(keyS3Object, defaults.Store.S3Object),
			S3AccessKey: s.configStore.GetString(keyS3AccessKey),
			S3SecretKey: s.configStore.GetString(keyS3SecretKey),
			S3UseSSL:    s.getBool(keyS3UseSSL, defaults.Store.S3UseSSL),
			LoadTimeout: s.getDuration(keyStoreTimeout, defaults.Store.LoadTimeout),
		},
		Retrieval: domain.RetrievalSettings{
			QALimit:      s.getInt(keyQALimit, defaults.Retrieval.QALimit),
			ContextLimit: s.getInt(keyContextLimit, defaults.Retrieval.ContextLimit),
			OverrideTTL:  s.getDuration(keyOverrideTTL, defaults.Retrieval.OverrideTTL),
		},
		Maintenance: domain.MaintenanceSettings{
			MinAnswerLen:      s.getInt(keyMinAnswerLen, defaults.Maintenance.MinAnswerLen),
			UseClassifier:     s.getBool(keyUseClassifier, defaults.Maintenance.UseClassifier),
			ChunkSize:         s.getInt(keyChunkSize, defaults.Maintenance.ChunkSize),
			ClassifierRate:    s.getFloat(keyClassifierRate, defaults.Maintenance.ClassifierRate),
			BackfillBatchSize: s.getInt(keyBackfillBatch, defaults.Maintenance.BackfillBatchSize),
		},
		Normalise: domain.NormaliseSettings{
			CanonicalName: s.configStore.GetString(keyCanonicalName),
			Aliases:       s.configStore.GetStringSlice(keyAliases),
			BlockedTerms:  s.configStore.GetStringSlice(keyBlockedTerms),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Scheduler: s.GetSchedulerConfig(),
		Log: domain.LogSettings{
			File:      s.configStore.GetString(keyLogFile),
			MaxSizeMB: s.getInt(keyLogMaxSize, defaults.Log.MaxSizeMB),
		},
	}

	s.applyEnv(settings)
	return settings, nil
}

// applyEnv overlays environment variables. API keys from the environment
// only fill keys that are not stored.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if s.lookupEnv == nil {
		return
	}
	env := func(name string, dst *string) {
		if v, ok := s.lookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	var backend string
	env(EnvStoreBackend, &backend)
	if b := domain.StoreBackend(backend); b.IsValid() {
		settings.Store.Backend = b
	}
	env(EnvStorePath, &settings.Store.Path)
	env(EnvStoreURL, &settings.Store.URL)
	env(EnvWriteToken, &settings.Store.WriteToken)
	env(EnvS3Endpoint, &settings.Store.S3Endpoint)
	env(EnvS3Bucket, &settings.Store.S3Bucket)
	env(EnvS3Object, &settings.Store.S3Object)
	env(EnvS3AccessKey, &settings.Store.S3AccessKey)
	env(EnvS3SecretKey, &settings.Store.S3SecretKey)
	env(EnvCanonicalName, &settings.Normalise.CanonicalName)

	providerKey := func(p domain.AIProvider) string {
		var key string
		switch p {
		case domain.AIProviderOpenAI:
			env(EnvOpenAIAPIKey, &key)
		case domain.AIProviderAnthropic:
			env(EnvAnthropicAPIKey, &key)
		}
		return key
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = providerKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = providerKey(settings.LLM.Provider)
	}
}

// Save persists application settings. Secrets are written only when set.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyStoreBackend, settings.Store.Backend.String()},
		{keyStorePath, settings.Store.Path},
		{keyStoreURL, settings.Store.URL},
		{keyStoreTimeout, settings.Store.LoadTimeout.String()},
		{keyS3Endpoint, settings.Store.S3Endpoint},
		{keyS3Bucket, settings.Store.S3Bucket},
		{keyS3Object, settings.Store.S3Object},
		{keyS3AccessKey, settings.Store.S3AccessKey},
		{keyS3UseSSL, settings.Store.S3UseSSL},
		{keyQALimit, settings.Retrieval.QALimit},
		{keyContextLimit, settings.Retrieval.ContextLimit},
		{keyOverrideTTL, settings.Retrieval.OverrideTTL.String()},
		{keyMinAnswerLen, settings.Maintenance.MinAnswerLen},
		{keyUseClassifier, settings.Maintenance.UseClassifier},
		{keyChunkSize, settings.Maintenance.ChunkSize},
		{keyClassifierRate, settings.Maintenance.ClassifierRate},
		{keyBackfillBatch, settings.Maintenance.BackfillBatchSize},
		{keyCanonicalName, settings.Normalise.CanonicalName},
		{keyAliases, settings.Normalise.Aliases},
		{keyBlockedTerms, settings.Normalise.BlockedTerms},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keySchedulerEnabled, settings.Scheduler.Enabled},
		{keyLogFile, settings.Log.File},
		{keyLogMaxSize, settings.Log.MaxSizeMB},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := []struct {
		key   string
		value string
	}{
		{keyStoreWriteToken, settings.Store.WriteToken},
		{keyS3SecretKey, settings.Store.S3SecretKey},
		{keyEmbedAPIKey, settings.Embedding.APIKey},
		{keyLLMAPIKey, settings.LLM.APIKey},
	}
	for _, v := range secrets {
		if v.value == "" {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	for taskID, name := range schedulerTaskKeys {
		cfg := settings.Scheduler.GetTaskConfig(taskID)
		prefix := "scheduler." + name + "."
		if err := s.configStore.Set(prefix+"enabled", cfg.Enabled); err != nil {
			return fmt.Errorf("save %s enabled: %w", name, err)
		}
		if err := s.configStore.Set(prefix+"schedule", cfg.Schedule); err != nil {
			return fmt.Errorf("save %s schedule: %w", name, err)
		}
	}

	return nil
}

// Set validates and stores a single key.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	value = strings.TrimSpace(value)

	var stored any
	switch kind {
	case kindString, kindSecret:
		stored = value
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		stored = n
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		stored = b
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
		}
		stored = f
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %s must be a positive duration", domain.ErrInvalidInput, key)
		}
		stored = d.String()
	case kindList:
		stored = splitList(value)
	case kindBackend:
		if !domain.StoreBackend(value).IsValid() {
			return fmt.Errorf("%w: %q", domain.ErrUnsupportedBackend, value)
		}
		stored = value
	case kindProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, value)
		}
		stored = value
	case kindSchedule:
		if s.scheduleParser != nil {
			if err := s.scheduleParser.Validate(value); err != nil {
				return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
			}
		}
		stored = value
	}

	return s.configStore.Set(key, stored)
}

// SetStoreBackend switches the knowledge store backend. The location is a
// path for file and sqlite, a URL for blob and a bucket for s3.
func (s *SettingsService) SetStoreBackend(backend domain.StoreBackend, location string) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedBackend, backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Store.Backend = backend
	switch backend {
	case domain.StoreBackendFile, domain.StoreBackendSQLite:
		if location != "" {
			settings.Store.Path = location
		}
	case domain.StoreBackendBlob:
		if location == "" && settings.Store.URL == "" {
			return fmt.Errorf("%w: blob backend requires a URL", domain.ErrInvalidInput)
		}
		if location != "" {
			settings.Store.URL = location
		}
	case domain.StoreBackendS3:
		if location == "" && settings.Store.S3Bucket == "" {
			return fmt.Errorf("%w: s3 backend requires a bucket", domain.ErrInvalidInput)
		}
		if location != "" {
			settings.Store.S3Bucket = location
		}
	case domain.StoreBackendMemory:
	}

	return s.Save(settings)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	valid := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider used by the classifier.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

func modelOrDefault(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

// baseURLFor keeps a configured local endpoint and clears it for cloud providers.
func baseURLFor(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return "http://localhost:11434"
	}
	return current
}

// Validate checks that the store settings are complete and that the
// classifier has an LLM when enabled.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	store := settings.Store
	switch store.Backend {
	case domain.StoreBackendBlob:
		if store.URL == "" {
			return fmt.Errorf("%w: blob backend requires store.url", domain.ErrInvalidInput)
		}
	case domain.StoreBackendS3:
		if store.S3Endpoint == "" || store.S3Bucket == "" {
			return fmt.Errorf("%w: s3 backend requires store.s3.endpoint and store.s3.bucket", domain.ErrInvalidInput)
		}
	case domain.StoreBackendMemory, domain.StoreBackendFile, domain.StoreBackendSQLite:
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedBackend, store.Backend)
	}

	if settings.Maintenance.UseClassifier && !settings.LLM.IsConfigured() {
		return fmt.Errorf("maintenance.use_classifier requires an LLM provider: %w", domain.ErrLLMUnavailable)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// GetSchedulerConfig returns the scheduler configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	defaults := domain.DefaultSchedulerConfig()

	if _, exists := s.configStore.Get(keySchedulerEnabled); exists {
		defaults.Enabled = s.configStore.GetBool(keySchedulerEnabled)
	}

	for taskID, configKey := range schedulerTaskKeys {
		prefix := "scheduler." + configKey + "."
		taskCfg := defaults.TaskConfigs[taskID]

		if _, exists := s.configStore.Get(prefix + "enabled"); exists {
			taskCfg.Enabled = s.configStore.GetBool(prefix + "enabled")
		}
		if schedule := s.configStore.GetString(prefix + "schedule"); schedule != "" {
			taskCfg.Schedule = schedule
		}

		defaults.TaskConfigs[taskID] = taskCfg
	}

	return defaults
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getBackend(defaultVal domain.StoreBackend) domain.StoreBackend {
	backend := domain.StoreBackend(s.configStore.GetString(keyStoreBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

// splitList parses a comma-separated value, dropping empty items.
func splitList(value string) []string {
	out := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
