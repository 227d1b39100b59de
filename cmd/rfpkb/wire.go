package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/rfpkb/internal/adapters/driven/ai"
	"github.com/custodia-labs/rfpkb/internal/adapters/driven/config/file"
	"github.com/custodia-labs/rfpkb/internal/adapters/driven/schedule/cron"
	"github.com/custodia-labs/rfpkb/internal/adapters/driven/storage/blob"
	filestore "github.com/custodia-labs/rfpkb/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/rfpkb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/rfpkb/internal/adapters/driven/storage/objectstore"
	"github.com/custodia-labs/rfpkb/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/rfpkb/internal/adapters/driving/cli"
	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/core/services"
	"github.com/custodia-labs/rfpkb/internal/logger"
	"github.com/custodia-labs/rfpkb/internal/normalisers/record"
)

// bootstrap builds every service from the stored settings.
func bootstrap(_ context.Context, opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}

	parser := cron.NewParser(time.Local)
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settingsService.SetScheduleParser(parser)

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	logPath := opts.LogFile
	if logPath == "" && opts.LongRunning {
		logPath = settings.Log.File
	}
	if logPath != "" {
		if err := logger.SetFile(logPath, settings.Log.MaxSizeMB); err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	stores, err := openStores(settings.Store)
	if err != nil {
		return nil, err
	}
	if stores.db != nil {
		closers = append(closers, func() {
			if err := stores.db.Close(); err != nil {
				logger.Warn("closing database: %v", err)
			}
		})
	}

	promptDir := ""
	if opts.ConfigDir != "" {
		promptDir = filepath.Join(opts.ConfigDir, "prompts")
	}
	var promptStore driven.PromptStore
	if prompts, err := file.NewPromptStore(promptDir); err != nil {
		logger.Warn("prompt store unavailable, using built-in prompts: %v", err)
	} else {
		promptStore = prompts
	}

	aiServices := ai.Initialise(settings, promptStore, false)
	closers = append(closers, aiServices.Close)
	embedding := ai.ThrottleEmbedding(aiServices.EmbeddingService, ai.DefaultEmbeddingRate)

	normaliser := record.New(record.OptionsFromSettings(settings.Normalise))
	corpus := services.NewCorpus(stores.knowledge, settings.Store.LoadTimeout)

	retrieval := services.NewRetrievalService(corpus, normaliser, embedding)
	overrides := memory.NewOverrideStore(settings.Retrieval.OverrideTTL)
	retrieval.SetOverrideStore(overrides, settings.Retrieval.OverrideTTL)
	retrieval.SetIDGenerator(uuid.NewString)

	maintenance := services.NewMaintenanceService(corpus, normaliser, aiServices.Classifier, embedding)
	maintenance.SetIDGenerator(uuid.NewString)

	scheduler := services.NewScheduler(settings.Scheduler, stores.scheduler, maintenance, parser)
	scheduler.SetSanitizeOptions(domain.SanitizeOptions{
		MinAnswerLen:  settings.Maintenance.MinAnswerLen,
		UseClassifier: settings.Maintenance.UseClassifier,
		ChunkSize:     settings.Maintenance.ChunkSize,
	})
	scheduler.SetBackfillOptions(domain.BackfillOptions{
		BatchSize: settings.Maintenance.BackfillBatchSize,
	})

	svc := &cli.Services{
		Retrieval:   retrieval,
		Maintenance: maintenance,
		Settings:    settingsService,
		Scheduler:   scheduler,
		Snapshots:   stores.snapshots,
		Overrides:   overrides,
		Close:       closeAll,
	}
	return svc, nil
}

// storeSet is the storage selected by the store backend setting.
type storeSet struct {
	knowledge driven.KnowledgeStore
	scheduler driven.SchedulerStore
	snapshots driven.SnapshotStore
	db        *sqlite.Store
}

// openStores opens the knowledge store for the configured backend. The
// scheduler keeps its state in SQLite only when the corpus lives there.
func openStores(cfg domain.StoreSettings) (*storeSet, error) {
	set := &storeSet{scheduler: memory.NewSchedulerStore()}

	switch cfg.Backend {
	case domain.StoreBackendMemory:
		set.knowledge = memory.NewKnowledgeStore()

	case domain.StoreBackendFile:
		store, err := filestore.NewKnowledgeStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening corpus file: %w", err)
		}
		set.knowledge = store

	case domain.StoreBackendBlob:
		store, err := blob.NewKnowledgeStore(blob.Config{
			URL:        cfg.URL,
			WriteToken: cfg.WriteToken,
			Timeout:    cfg.LoadTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("opening blob store: %w", err)
		}
		set.knowledge = store

	case domain.StoreBackendS3:
		store, err := objectstore.NewKnowledgeStore(objectstore.Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Object:    cfg.S3Object,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("opening s3 store: %w", err)
		}
		set.knowledge = store

	case domain.StoreBackendSQLite:
		db, err := sqlite.NewStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		knowledge := db.KnowledgeStore()
		set.db = db
		set.knowledge = knowledge
		set.snapshots = knowledge
		set.scheduler = db.SchedulerStore()

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedBackend, cfg.Backend)
	}

	return set, nil
}
