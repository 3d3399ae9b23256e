package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/customer-persona-agent/internal/config"
	"github.com/BerylCAtieno/customer-persona-agent/internal/llm"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, k := range []string{"PERSONAS_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(context.Background())
}

func TestRootCmd(t *testing.T) {
	t.Run("missing config file", func(t *testing.T) {
		dir := isolate(t)

		err := execute(t, "--config", filepath.Join(dir, "nope.yaml"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load config")
	})

	t.Run("requires an API key", func(t *testing.T) {
		isolate(t)

		err := execute(t)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("config flag is read", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  sample_size: 0\nllm:\n  api_key: k\n"), 0o600))

		err := execute(t, "--config", path)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "pipeline.sample_size")
	})

	t.Run("rejects positional arguments", func(t *testing.T) {
		isolate(t)

		assert.Error(t, execute(t, "extra"))
	})
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := &config.Config{
		Port:    "0",
		GinMode: gin.TestMode,
		LLM:     config.LLM{Backend: llm.BackendGenAI, APIKey: "test-key"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, zap.NewNop()) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}
