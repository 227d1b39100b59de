package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/rfpkb/internal/adapters/driven/schedule/cron"
	"github.com/custodia-labs/rfpkb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/services"
	"github.com/custodia-labs/rfpkb/internal/normalisers/record"
)

// testEnv exposes the stores behind the services installed for a test.
type testEnv struct {
	store     *memory.KnowledgeStore
	config    *memory.ConfigStore
	overrides *memory.OverrideStore
	retrieval *services.RetrievalService
	maint     *services.MaintenanceService
}

// setupTestServices installs real services over in-memory stores seeded
// with records, and resets every flag when the test ends.
func setupTestServices(t *testing.T, records ...domain.KnowledgeRecord) *testEnv {
	t.Helper()
	return setupTestServicesWithEmbedding(t, nil, records...)
}

func setupTestServicesWithEmbedding(
	t *testing.T, embedding *fakeEmbedding, records ...domain.KnowledgeRecord,
) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     memory.NewKnowledgeStore(records...),
		config:    memory.NewConfigStore(),
		overrides: memory.NewOverrideStore(time.Hour),
	}

	normaliser := record.New(record.Options{})
	corpus := services.NewCorpus(env.store, time.Second)

	ids := 0
	nextID := func() string {
		ids++
		return fmt.Sprintf("id-%03d", ids)
	}

	if embedding != nil {
		env.retrieval = services.NewRetrievalService(corpus, normaliser, embedding)
		env.maint = services.NewMaintenanceService(corpus, normaliser, nil, embedding)
	} else {
		env.retrieval = services.NewRetrievalService(corpus, normaliser, nil)
		env.maint = services.NewMaintenanceService(corpus, normaliser, nil, nil)
	}
	env.retrieval.SetOverrideStore(env.overrides, time.Hour)
	env.retrieval.SetIDGenerator(nextID)
	env.maint.SetIDGenerator(nextID)

	settings := services.NewSettingsService(env.config, nil)
	settings.SetEnvLookup(nil)
	parser := cron.NewParser(time.UTC)
	settings.SetScheduleParser(parser)

	sched := services.NewScheduler(
		settings.GetSchedulerConfig(), memory.NewSchedulerStore(), env.maint, parser)

	SetServices(&Services{
		Retrieval:   env.retrieval,
		Maintenance: env.maint,
		Settings:    settings,
		Scheduler:   sched,
		Overrides:   env.overrides,
	})

	t.Cleanup(func() {
		SetServices(nil)
		resetFlags(rootCmd)
	})
	return env
}

// resetFlags restores every flag of cmd and its children to its default,
// since command flags are bound to package variables.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// executeCommand runs the root command with args and stdin, returning
// everything written to stdout and stderr.
func executeCommand(stdin string, args ...string) (string, error) {
	return executeCommandContext(context.Background(), stdin, args...)
}

func executeCommandContext(ctx context.Context, stdin string, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// fakeEmbedding maps known texts to vectors and everything else to [1 0].
type fakeEmbedding struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedding) Dimensions() int { return 2 }

func (f *fakeEmbedding) ModelName() string { return "fake" }

func (f *fakeEmbedding) Ping(_ context.Context) error { return f.err }

func (f *fakeEmbedding) Close() error { return nil }
