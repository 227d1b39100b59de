package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

// tokenKeys maps the token command's targets to their setting keys.
var tokenKeys = map[string]string{
	"store":     "store.write_token",
	"s3":        "store.s3.secret_key",
	"embedding": "embedding.api_key",
	"llm":       "llm.api_key",
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the knowledge store, retrieval limits, maintenance
options and AI providers. Settings are kept in ~/.rfpkb/config.toml.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting by its dotted key, for example:

  rfpkb settings set retrieval.qa_limit 8
  rfpkb settings set store.backend sqlite
  rfpkb settings set normalise.aliases "Acme Health, Acme Corp"
  rfpkb settings set scheduler.corpus_sanitize.schedule "0 3 * * *"`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsTokenCmd = &cobra.Command{
	Use:   "token [store|s3|embedding|llm]",
	Short: "Store a secret without echoing it",
	Long: `Prompts for a secret and stores it:

  store      write token for the blob backend
  s3         secret key for the s3 backend
  embedding  embedding provider API key
  llm        LLM provider API key`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"store", "s3", "embedding", "llm"},
	RunE:      runSettingsToken,
}

var settingsStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Configure the knowledge store backend",
	Args:  cobra.NoArgs,
	RunE:  runSettingsStore,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used for semantic similarity and backfill.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used by the sanitize classifier.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsTokenCmd)
	settingsCmd.AddCommand(settingsStoreCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Store]")
	cmd.Printf("  Backend: %s\n", settings.Store.Backend.Description())
	switch settings.Store.Backend {
	case domain.StoreBackendFile, domain.StoreBackendSQLite:
		cmd.Printf("  Path: %s\n", valueOrDefault(settings.Store.Path))
	case domain.StoreBackendBlob:
		cmd.Printf("  URL: %s\n", valueOrNotSet(settings.Store.URL))
		cmd.Printf("  Write token: %s\n", secretOrNotSet(settings.Store.WriteToken))
	case domain.StoreBackendS3:
		cmd.Printf("  Endpoint: %s\n", valueOrNotSet(settings.Store.S3Endpoint))
		cmd.Printf("  Bucket: %s\n", valueOrNotSet(settings.Store.S3Bucket))
		cmd.Printf("  Object: %s\n", settings.Store.S3Object)
		cmd.Printf("  Access key: %s\n", valueOrNotSet(settings.Store.S3AccessKey))
		cmd.Printf("  Secret key: %s\n", secretOrNotSet(settings.Store.S3SecretKey))
		cmd.Printf("  TLS: %t\n", settings.Store.S3UseSSL)
	case domain.StoreBackendMemory:
	}
	cmd.Printf("  Load timeout: %s\n", settings.Store.LoadTimeout)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  QA limit: %d\n", settings.Retrieval.QALimit)
	cmd.Printf("  Context limit: %d\n", settings.Retrieval.ContextLimit)
	cmd.Printf("  Override TTL: %s\n", settings.Retrieval.OverrideTTL)
	cmd.Println()

	cmd.Println("[Maintenance]")
	cmd.Printf("  Min answer length: %d\n", settings.Maintenance.MinAnswerLen)
	cmd.Printf("  Use classifier: %t\n", settings.Maintenance.UseClassifier)
	cmd.Printf("  Classifier chunk size: %d\n", settings.Maintenance.ChunkSize)
	cmd.Printf("  Classifier rate: %.1f/s\n", settings.Maintenance.ClassifierRate)
	cmd.Printf("  Backfill batch size: %d\n", settings.Maintenance.BackfillBatchSize)
	cmd.Println()

	cmd.Println("[Normalise]")
	cmd.Printf("  Canonical name: %s\n", valueOrNotSet(settings.Normalise.CanonicalName))
	cmd.Printf("  Aliases: %s\n", listOrNone(settings.Normalise.Aliases))
	cmd.Printf("  Blocked terms: %s\n", listOrNone(settings.Normalise.BlockedTerms))
	cmd.Println()

	printProvider(cmd, "[Embedding]", settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	printProvider(cmd, "[LLM]", settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())

	cmd.Println("[Scheduler]")
	cmd.Printf("  Enabled: %t\n", settings.Scheduler.Enabled)
	for _, id := range []string{domain.TaskIDCorpusSanitize, domain.TaskIDEmbeddingBackfill} {
		task := settings.Scheduler.GetTaskConfig(id)
		cmd.Printf("  %s: %s (enabled: %t)\n", id, task.Schedule, task.Enabled)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, title string, provider domain.AIProvider,
	model, baseURL, apiKey string, configured bool) {
	cmd.Println(title)
	if provider == "" {
		cmd.Println("  Provider: (not set)")
		cmd.Println()
		return
	}
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", secretOrNotSet(apiKey))
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s\n", key)
	return nil
}

func runSettingsToken(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	key, ok := tokenKeys[args[0]]
	if !ok {
		return fmt.Errorf("unknown token %q, expected one of store, s3, embedding, llm", args[0])
	}

	in := cmd.InOrStdin()
	cmd.Printf("Enter %s: ", key)
	secret := readSecret(in, bufio.NewReader(in))
	cmd.Println()
	if secret == "" {
		return errors.New("no value entered")
	}

	if err := settingsService.Set(key, secret); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Stored %s (%s)\n", key, maskAPIKey(secret))
	return nil
}

func runSettingsStore(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Select Store Backend")
	backends := domain.AllStoreBackends()
	for i, b := range backends {
		cmd.Printf("  %d. %s\n", i+1, b.Description())
	}
	cmd.Print("\nEnter choice [2]: ")
	idx := parseChoice(readLine(reader), len(backends), 2)
	backend := backends[idx-1]

	var location string
	switch backend {
	case domain.StoreBackendFile, domain.StoreBackendSQLite:
		cmd.Print("Enter path (blank for default): ")
		location = readLine(reader)
	case domain.StoreBackendBlob:
		cmd.Print("Enter corpus URL: ")
		location = readLine(reader)
	case domain.StoreBackendS3:
		cmd.Print("Enter bucket: ")
		location = readLine(reader)
	case domain.StoreBackendMemory:
	}

	if err := settingsService.SetStoreBackend(backend, location); err != nil {
		return fmt.Errorf("failed to configure store: %w", err)
	}
	cmd.Printf("Store backend configured: %s\n", backend.Description())
	switch backend {
	case domain.StoreBackendBlob:
		cmd.Println("Run 'rfpkb settings token store' to enable writes.")
	case domain.StoreBackendS3:
		cmd.Println("Set store.s3.endpoint and store.s3.access_key, then run 'rfpkb settings token s3'.")
	default:
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), embeddingTarget)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), llmTarget)
}

// providerTarget describes one of the two configurable AI providers.
type providerTarget struct {
	name      string
	providers func() []domain.AIProvider
	models    func() map[domain.AIProvider]string
	set       func(domain.AIProvider, string, string) error
	validate  func() error
}

var embeddingTarget = providerTarget{
	name:      "Embedding",
	providers: domain.AllEmbeddingProviders,
	models:    domain.DefaultEmbeddingModels,
	set: func(p domain.AIProvider, model, key string) error {
		return settingsService.SetEmbeddingProvider(p, model, key)
	},
	validate: func() error { return settingsService.ValidateEmbeddingConfig() },
}

var llmTarget = providerTarget{
	name:      "LLM",
	providers: domain.AllLLMProviders,
	models:    domain.DefaultLLMModels,
	set: func(p domain.AIProvider, model, key string) error {
		return settingsService.SetLLMProvider(p, model, key)
	},
	validate: func() error { return settingsService.ValidateLLMConfig() },
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, target providerTarget) error {
	cmd.Printf("Select %s Provider\n", target.name)
	providers := target.providers()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	selected := providers[parseChoice(readLine(reader), len(providers), 1)-1]

	defaultModel := target.models()[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readSecret(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := target.set(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", strings.ToLower(target.name), err)
	}

	cmd.Print("Validating configuration... ")
	if err := target.validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", strings.ToLower(target.name), err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n", target.name, selected.Description(), model)
	return nil
}

func valueOrNotSet(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

func valueOrDefault(v string) string {
	if v == "" {
		return "(default)"
	}
	return v
}

func secretOrNotSet(v string) string {
	if v == "" {
		return "(not set)"
	}
	return maskAPIKey(v)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
