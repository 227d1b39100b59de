package cli

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPServeCmd_Flags(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
	assert.Equal(t, "true", mcpServeCmd.Annotations[annotationLongRunning])
}

func TestMCPServeCmd_WithoutRetrieval(t *testing.T) {
	SetServices(nil)
	t.Cleanup(func() { resetFlags(rootCmd) })

	_, err := executeCommand("", "mcp", "serve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval")
}

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep() int {
	s.calls.Add(1)
	return 1
}

func TestSweepOverrides_RunsUntilCancelled(t *testing.T) {
	sweeper := &countingSweeper{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sweepOverrides(ctx, sweeper, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweepOverrides did not return after cancel")
	}
}
