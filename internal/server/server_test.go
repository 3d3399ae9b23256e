package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/customer-persona-agent/internal/config"
)

type cannedModel struct{ k int }

func (m cannedModel) Generate(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "estimated_k") {
		return fmt.Sprintf(`{"estimated_k": %d, "reasoning": "canned"}`, m.k), nil
	}
	return `{"persona_name": "P", "description": "D", "marketing_strategy": "S"}`, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Port:         "0",
		MaxBodyBytes: 1 << 20,
		Pipeline:     config.Pipeline{SampleSize: 20, IDField: "customer_id", MaxConcurrency: 2},
		Cluster:      config.Cluster{Seed: 42, MaxIterations: 50, Tolerance: 1e-6},
	}
}

func TestRouterEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	router := NewRouter(cfg, NewPipeline(cfg, cannedModel{k: 2}, zap.NewNop()), zap.NewNop())

	body := `{"csv_data":"customer_id,age,total_spent\n1,24,50\n2,25,60\n3,60,900\n4,62,950\n"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"k_estimation":{"k":2,"reasoning":"canned"}`)
	assert.Contains(t, w.Body.String(), `"cluster_id":0`)
	assert.Contains(t, w.Body.String(), `"cluster_id":1`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouterInsufficientData(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	router := NewRouter(cfg, NewPipeline(cfg, cannedModel{k: 5}, zap.NewNop()), zap.NewNop())

	body := `{"csv_data":"customer_id,age\n1,24\n2,25\n"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Not enough data to form the estimated number of clusters."}`, w.Body.String())
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(&config.Config{Port: "8080"}))
}
