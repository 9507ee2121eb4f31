package cli

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_Registered(t *testing.T) {
	t.Parallel()

	cmd := findSubcommand(t, "serve")
	assert.Equal(t, "Run the Trinity daemon", cmd.Short)
	assert.NotNil(t, cmd.RunE)
}

func TestServeCmd_FailsWithoutLLMKey(t *testing.T) {
	dir := t.TempDir()
	flagConfig = writeTestConfig(t, dir, "")
	t.Cleanup(func() { flagConfig = "" })
	t.Setenv("TRINITY_LLM_KEY", "")

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err := runServe(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestRunServe_StopsOnCancelledContext(t *testing.T) {
	dir := t.TempDir()
	flagConfig = writeTestConfig(t, dir, "")
	t.Cleanup(func() { flagConfig = "" })
	t.Setenv("TRINITY_LLM_KEY", "test-key")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := &cobra.Command{}
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- runServe(cmd, nil) }()

	select {
	case err := <-done:
		assert.NoError(t, err, "a cancelled daemon should stop cleanly")
	case <-time.After(10 * time.Second):
		t.Fatal("runServe did not stop on context cancellation")
	}
}
