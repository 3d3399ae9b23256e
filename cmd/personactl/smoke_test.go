package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/customer-persona-agent/internal/config"
	"github.com/BerylCAtieno/customer-persona-agent/internal/models"
	"github.com/BerylCAtieno/customer-persona-agent/internal/server"
)

type stubAnalyzer struct {
	result *models.AnalysisResult
	err    error
	got    string
}

func (s *stubAnalyzer) AnalyzeCSV(_ context.Context, text string) (*models.AnalysisResult, error) {
	s.got = text
	return s.result, s.err
}

func newSmokeClient(t *testing.T, analyzer *stubAnalyzer) (*smokeClient, *bytes.Buffer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := server.NewRouter(&config.Config{MaxBodyBytes: 1 << 20}, analyzer, zap.NewNop())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	return &smokeClient{
		baseURL: srv.URL,
		client:  &http.Client{Timeout: 5 * time.Second},
		out:     &out,
		csv:     sampleCSV,
	}, &out
}

func TestSmokeRun(t *testing.T) {
	t.Run("all checks pass against a healthy server", func(t *testing.T) {
		analyzer := &stubAnalyzer{result: sampleResult()}
		sc, out := newSmokeClient(t, analyzer)

		err := sc.run("all")

		require.NoError(t, err)
		assert.Contains(t, out.String(), "Passed: 4")
		assert.Contains(t, out.String(), "Failed: 0")
		assert.Contains(t, out.String(), "k=2, 2 persona(s)")
		assert.Equal(t, sampleCSV, analyzer.got)
	})

	t.Run("single health check", func(t *testing.T) {
		sc, out := newSmokeClient(t, &stubAnalyzer{result: sampleResult()})

		require.NoError(t, sc.run("health"))
		assert.Contains(t, out.String(), "✓ Health check passed")
		assert.NotContains(t, out.String(), "Testing Persona Analysis")
	})

	t.Run("analyze fails on server error", func(t *testing.T) {
		sc, out := newSmokeClient(t, &stubAnalyzer{err: errors.New("model unavailable")})

		err := sc.run("analyze")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "smoke test analyze failed")
		assert.Contains(t, out.String(), "✗ Expected status 200, got 500")
	})

	t.Run("analyze fails on unordered personas", func(t *testing.T) {
		res := sampleResult()
		res.Personas[0], res.Personas[1] = res.Personas[1], res.Personas[0]
		sc, out := newSmokeClient(t, &stubAnalyzer{result: res})

		require.Error(t, sc.run("analyze"))
		assert.Contains(t, out.String(), "not ordered by cluster_id")
	})

	t.Run("summary counts failures", func(t *testing.T) {
		sc, out := newSmokeClient(t, &stubAnalyzer{err: errors.New("model unavailable")})

		err := sc.run("all")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 smoke test(s) failed")
		assert.Contains(t, out.String(), "Passed: 2")
	})

	t.Run("unknown check", func(t *testing.T) {
		sc, _ := newSmokeClient(t, &stubAnalyzer{})

		err := sc.run("latency")

		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown test "latency"`)
	})

	t.Run("unreachable server", func(t *testing.T) {
		sc, out := newSmokeClient(t, &stubAnalyzer{})
		sc.baseURL = "http://127.0.0.1:1"

		require.Error(t, sc.run("health"))
		assert.Contains(t, out.String(), "Request failed")
	})
}
