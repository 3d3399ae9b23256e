package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/customer-persona-agent/internal/errs"
	"github.com/BerylCAtieno/customer-persona-agent/internal/models"
)

type stubAnalyzer struct {
	result *models.AnalysisResult
	err    error
	got    []string
}

func (s *stubAnalyzer) AnalyzeCSV(_ context.Context, text string) (*models.AnalysisResult, error) {
	s.got = append(s.got, text)
	return s.result, s.err
}

func sampleResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		KEstimation: models.KEstimate{K: 2, Reasoning: "low and high spenders"},
		Personas: []models.Persona{
			{ClusterID: 0, PersonaName: "Bargain Hunter", Description: "Young, rare visits.", MarketingStrategy: "Discount codes."},
			{ClusterID: 1, PersonaName: "VIP Regular", Description: "Frequent big spender.", MarketingStrategy: "Early access."},
		},
	}
}

func serve(t *testing.T, a *stubAnalyzer, method, path, body string) JSONRPCResponse {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(a, zap.NewNop()).Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	var resp JSONRPCResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func taskOf(t *testing.T, resp JSONRPCResponse) TaskResult {
	t.Helper()
	require.Nil(t, resp.Error)
	b, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var task TaskResult
	require.NoError(t, json.Unmarshal(b, &task))
	return task
}

const csvText = "customer_id,age,total_spent\n1,24,50\n2,45,850"

func rpc(method, parts string) string {
	return `{"jsonrpc":"2.0","id":"req-1","method":"` + method + `","params":{"message":{"kind":"message","role":"user","parts":` + parts + `}}}`
}

func TestHandleMessage(t *testing.T) {
	t.Run("completes with markdown and data artifact", func(t *testing.T) {
		stub := &stubAnalyzer{result: sampleResult()}
		parts := `[{"kind":"text","text":"<p>` + strings.ReplaceAll(csvText, "\n", `\n`) + `</p>"}]`

		task := taskOf(t, serve(t, stub, http.MethodPost, "/a2a/personas", rpc("message/send", parts)))

		assert.Equal(t, StateCompleted, task.Status.State)
		require.Len(t, stub.got, 1)
		assert.Equal(t, csvText, stub.got[0])
		text := task.Status.Message.Parts[0].Text
		assert.Contains(t, text, "# Customer Personas (k = 2)")
		assert.Contains(t, text, "## Cluster 1: VIP Regular")
		require.Len(t, task.Artifacts, 1)
		require.Len(t, task.Artifacts[0].Parts, 2)
		var got models.AnalysisResult
		require.NoError(t, json.Unmarshal(task.Artifacts[0].Parts[1].Data, &got))
		assert.Equal(t, *sampleResult(), got)
	})

	t.Run("accepts csv in a data part", func(t *testing.T) {
		stub := &stubAnalyzer{result: sampleResult()}
		data, _ := json.Marshal(map[string]string{"csv_data": csvText})

		task := taskOf(t, serve(t, stub, http.MethodPost, "/a2a/personas", rpc("agent/task", `[{"kind":"data","data":`+string(data)+`}]`)))

		assert.Equal(t, StateCompleted, task.Status.State)
		assert.Equal(t, []string{csvText}, stub.got)
	})

	t.Run("asks for input when no csv is sent", func(t *testing.T) {
		stub := &stubAnalyzer{}

		task := taskOf(t, serve(t, stub, http.MethodPost, "/a2a/personas", rpc("message/send", `[{"kind":"text","text":"   "}]`)))

		assert.Equal(t, StateInputRequired, task.Status.State)
		assert.Empty(t, stub.got)
	})

	t.Run("pipeline failure becomes a failed task", func(t *testing.T) {
		stub := &stubAnalyzer{err: &errs.UpstreamError{Op: "estimate k", Err: errors.New("unauthorized")}}

		task := taskOf(t, serve(t, stub, http.MethodPost, "/a2a/personas", rpc("message/send", `[{"kind":"text","text":"a,b"}]`)))

		assert.Equal(t, StateFailed, task.Status.State)
		assert.Contains(t, task.Status.Message.Parts[0].Text, "unauthorized")
	})

	t.Run("direct message without envelope", func(t *testing.T) {
		stub := &stubAnalyzer{result: sampleResult()}
		body := `{"message":{"kind":"message","role":"user","parts":[{"kind":"text","text":"a,b"}]}}`

		task := taskOf(t, serve(t, stub, http.MethodPost, "/a2a/personas", body))

		assert.Equal(t, StateCompleted, task.Status.State)
	})

	rpcErrors := []struct {
		name string
		body string
		code int
	}{
		{name: "invalid JSON", body: `{`, code: CodeParseError},
		{name: "wrong version", body: `{"jsonrpc":"1.0","id":1,"method":"message/send"}`, code: CodeInvalidRequest},
		{name: "unknown method", body: `{"jsonrpc":"2.0","id":1,"method":"tasks/cancel"}`, code: CodeMethodNotFound},
		{name: "bad params", body: `{"jsonrpc":"2.0","id":1,"method":"message/send","params":[1]}`, code: CodeInvalidParams},
	}
	for _, tt := range rpcErrors {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(t, &stubAnalyzer{}, http.MethodPost, "/a2a/personas", tt.body)

			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestExtractCSV(t *testing.T) {
	msg := Message{Parts: []MessagePart{
		TextPart("```csv\ncustomer_id,age\n1,30\n```"),
		{Kind: "data", Data: json.RawMessage(`"2,41"`)},
	}}

	assert.Equal(t, "customer_id,age\n1,30\n2,41", ExtractCSV(msg))
}

func TestServeAgentCard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(&stubAnalyzer{}, zap.NewNop()).Register(r)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/.well-known/agent.json", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var card map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &card))
	for _, field := range []string{"name", "description", "version", "capabilities", "endpoints"} {
		assert.Contains(t, card, field)
	}
}
