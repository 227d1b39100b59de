package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

func TestSchedulerStore_TaskLifecycle(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()

	got, err := store.GetTask(ctx, domain.TaskIDCorpusSanitize)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: "b", Schedule: "0 3 * * *"}))
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: "a", Schedule: "30 3 * * *", Enabled: true}))

	tasks, err := store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].ID)
	assert.Equal(t, "b", tasks[1].ID)

	require.NoError(t, store.DeleteTask(ctx, "a"))
	require.NoError(t, store.DeleteTask(ctx, "missing"))
	tasks, err = store.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	assert.ErrorIs(t, store.SaveTask(ctx, nil), domain.ErrInvalidInput)
}

func TestSchedulerStore_History(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{
			TaskID:         "t",
			StartedAt:      start.Add(time.Duration(i) * time.Hour),
			ItemsProcessed: i,
		}))
	}

	history, err := store.GetTaskHistory(ctx, "t", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 4, history[0].ItemsProcessed)
	assert.Equal(t, 3, history[1].ItemsProcessed)

	require.NoError(t, store.PruneHistory(ctx, 3))
	history, err = store.GetTaskHistory(ctx, "t", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 2, history[2].ItemsProcessed)
}
