package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driving"
	"github.com/custodia-labs/rfpkb/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyKeep is the number of results retained per task.
const historyKeep = 100

// Scheduler runs corpus maintenance on cron schedules.
type Scheduler struct {
	config      domain.SchedulerConfig
	store       driven.SchedulerStore
	maintenance driving.MaintenanceService
	parser      driven.ScheduleParser

	sanitizeOpts domain.SanitizeOptions
	backfillOpts domain.BackfillOptions
	tick         time.Duration
	now          func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	maintenance driving.MaintenanceService,
	parser driven.ScheduleParser,
) *Scheduler {
	return &Scheduler{
		config:       config,
		store:        store,
		maintenance:  maintenance,
		parser:       parser,
		sanitizeOpts: domain.DefaultSanitizeOptions(),
		tick:         time.Minute,
		now:          time.Now,
	}
}

// SetSanitizeOptions sets the options used by the sanitize task.
// DryRun is ignored; scheduled runs always save.
func (s *Scheduler) SetSanitizeOptions(opts domain.SanitizeOptions) {
	opts.DryRun = false
	s.sanitizeOpts = opts
}

// SetBackfillOptions sets the options used by the backfill task.
func (s *Scheduler) SetBackfillOptions(opts domain.BackfillOptions) {
	opts.DryRun = false
	s.backfillOpts = opts
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if !s.config.Enabled {
		logger.Info("Scheduler disabled by configuration")
	} else if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// RunNow executes a task synchronously and records the result. It
// returns the number of records the task processed.
func (s *Scheduler) RunNow(ctx context.Context, taskID string) (int, error) {
	if _, ok := taskNames[taskID]; !ok {
		return 0, fmt.Errorf("%w: unknown task %q", domain.ErrNotFound, taskID)
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return 0, fmt.Errorf("load task %s: %w", taskID, err)
	}
	if task == nil {
		cfg := s.config.GetTaskConfig(taskID)
		task = &domain.ScheduledTask{
			ID:       taskID,
			Name:     taskNames[taskID],
			Schedule: cfg.Schedule,
			Enabled:  cfg.Enabled,
		}
	}

	result := s.execute(ctx, task)
	if !result.Success {
		return result.ItemsProcessed, fmt.Errorf("task %s: %s", taskID, result.Error)
	}
	return result.ItemsProcessed, nil
}

// taskNames lists the built-in tasks.
var taskNames = map[string]string{
	domain.TaskIDCorpusSanitize:    "Corpus Sanitize",
	domain.TaskIDEmbeddingBackfill: "Embedding Backfill",
}

// initialiseTasks ensures all enabled tasks exist in the store and
// disables stored tasks that configuration turned off.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, id := range []string{domain.TaskIDCorpusSanitize, domain.TaskIDEmbeddingBackfill} {
		if err := s.ensureTask(ctx, id, taskNames[id], s.config.GetTaskConfig(id)); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task == nil && !cfg.Enabled {
		return nil
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Schedule: cfg.Schedule,
		}
	}
	if task.Schedule != cfg.Schedule || task.NextRun.IsZero() {
		next, err := s.nextRun(cfg.Schedule, s.now())
		if err != nil {
			return fmt.Errorf("task %s: %w", id, err)
		}
		task.Schedule = cfg.Schedule
		task.NextRun = next
	}
	task.Enabled = cfg.Enabled

	return s.store.SaveTask(ctx, task)
}

func (s *Scheduler) nextRun(schedule string, from time.Time) (time.Time, error) {
	if s.parser == nil {
		return time.Time{}, fmt.Errorf("%w: no schedule parser", domain.ErrInvalidInput)
	}
	next, err := s.parser.Next(schedule, from)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: schedule %q: %w", domain.ErrInvalidInput, schedule, err)
	}
	return next, nil
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	if !s.config.Enabled {
		return
	}
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		task := tasks[i]
		if !task.Enabled || task.NextRun.After(now) {
			continue
		}
		s.runTask(ctx, &task)
	}
}

// runTask executes a single task in the background.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(ctx, task)
	}()
}

// execute runs the task, then persists its state and result.
func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask) *domain.TaskResult {
	logger.Section("Task " + task.ID)
	result := &domain.TaskResult{
		TaskID:    task.ID,
		StartedAt: s.now(),
	}

	var err error
	switch task.ID {
	case domain.TaskIDCorpusSanitize:
		result.ItemsProcessed, err = s.runSanitize(ctx)
	case domain.TaskIDEmbeddingBackfill:
		result.ItemsProcessed, err = s.runBackfill(ctx)
	default:
		err = fmt.Errorf("%w: unknown task %q", domain.ErrNotFound, task.ID)
	}

	result.EndedAt = s.now()
	if err != nil {
		result.Error = err.Error()
		task.LastError = err.Error()
		logger.Warn("scheduler: task %s failed: %v", task.ID, err)
	} else {
		result.Success = true
		task.LastError = ""
		task.LastSuccess = result.EndedAt
		logger.Info("scheduler: task %s processed %d records", task.ID, result.ItemsProcessed)
	}

	task.LastRun = result.StartedAt
	if next, nextErr := s.nextRun(task.Schedule, result.EndedAt); nextErr == nil {
		task.NextRun = next
	} else {
		// Unparseable schedules are disabled rather than retried.
		task.Enabled = false
		logger.Warn("scheduler: disabling task %s: %v", task.ID, nextErr)
	}

	if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
		logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
	}
	if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
		logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
	}
	if pruneErr := s.store.PruneHistory(ctx, historyKeep); pruneErr != nil {
		logger.Warn("scheduler: failed to prune history: %v", pruneErr)
	}
	return result
}

// runSanitize cleans the stored corpus. An empty corpus is not a failure.
func (s *Scheduler) runSanitize(ctx context.Context) (int, error) {
	if s.maintenance == nil {
		return 0, nil
	}
	report, err := s.maintenance.SanitizeStore(ctx, s.sanitizeOpts)
	if err != nil {
		if errors.Is(err, domain.ErrNothingToSanitize) {
			return 0, nil
		}
		return 0, err
	}
	return report.Input, nil
}

// runBackfill embeds records missing a vector.
func (s *Scheduler) runBackfill(ctx context.Context) (int, error) {
	if s.maintenance == nil {
		return 0, nil
	}
	report, err := s.maintenance.Backfill(ctx, s.backfillOpts)
	if err != nil {
		return 0, err
	}
	if report.Failed > 0 {
		return report.Embedded, fmt.Errorf("%d of %d embeddings failed", report.Failed, report.Missing)
	}
	return report.Embedded, nil
}
