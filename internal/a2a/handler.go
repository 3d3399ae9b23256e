// Package a2a exposes the persona analysis as an A2A agent over JSON-RPC 2.0.
package a2a

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/customer-persona-agent/internal/agent"
	"github.com/BerylCAtieno/customer-persona-agent/internal/api"
	"github.com/BerylCAtieno/customer-persona-agent/internal/logging"
	"github.com/BerylCAtieno/customer-persona-agent/internal/models"
	"github.com/BerylCAtieno/customer-persona-agent/internal/pipeline"
)

const StateInputRequired = "input-required"

type Handler struct {
	analyzer api.Analyzer
	logger   *zap.Logger
}

func NewHandler(analyzer api.Analyzer, logger *zap.Logger) *Handler {
	return &Handler{analyzer: analyzer, logger: logger}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/.well-known/agent.json", h.ServeAgentCard)
	r.POST("/a2a/personas", h.HandleMessage)
}

// ServeAgentCard serves the embedded agent card.
func (h *Handler) ServeAgentCard(c *gin.Context) {
	if _, err := agent.LoadAgentCard(); err != nil {
		h.logger.Error("agent card unavailable", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Agent card not available"})
		return
	}
	c.Data(http.StatusOK, "application/json", agent.AgentCardData)
}

// HandleMessage processes a JSON-RPC request. A bare MessageParams body without
// the JSON-RPC envelope is accepted too.
func (h *Handler) HandleMessage(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.sendError(c, nil, "Failed to read request body", CodeParseError)
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.sendError(c, nil, "Invalid JSON", CodeParseError)
		return
	}

	if req.JSONRPC == "" && req.Method == "" {
		var params MessageParams
		if err := json.Unmarshal(body, &params); err == nil && len(params.Message.Parts) > 0 {
			h.logger.Debug("handling message without JSON-RPC envelope")
			h.handleTask(c, "direct-message", params)
			return
		}
	}

	if req.JSONRPC != "2.0" {
		h.sendError(c, req.ID, "Invalid JSON-RPC version", CodeInvalidRequest)
		return
	}

	switch req.Method {
	case "message/send", "agent/task":
		var params MessageParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			h.sendError(c, req.ID, "Invalid parameters", CodeInvalidParams)
			return
		}
		h.handleTask(c, req.ID, params)
	default:
		h.sendError(c, req.ID, fmt.Sprintf("Method not found: %s", req.Method), CodeMethodNotFound)
	}
}

func (h *Handler) handleTask(c *gin.Context, rpcID any, params MessageParams) {
	taskID := params.Message.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	contextID := params.Message.ContextID

	csvText := ExtractCSV(params.Message)
	if csvText == "" {
		h.sendResult(c, rpcID, statusTask(taskID, contextID, StateInputRequired,
			"Please send customer records as CSV text with a header row and a customer_id column."))
		return
	}

	ctx := pipeline.WithRunID(c.Request.Context(), c.GetString(logging.RequestIDKey))
	result, err := h.analyzer.AnalyzeCSV(ctx, csvText)
	if err != nil {
		_, body := api.ErrorBody(err)
		h.sendResult(c, rpcID, statusTask(taskID, contextID, StateFailed,
			fmt.Sprintf("Failed to build customer personas: %s", body.Error)))
		return
	}

	task, err := completedTask(taskID, contextID, result)
	if err != nil {
		h.logger.Error("encode task result", zap.Error(err))
		h.sendResult(c, rpcID, statusTask(taskID, contextID, StateFailed, "Failed to encode the analysis result."))
		return
	}
	h.sendResult(c, rpcID, task)
}

// ExtractCSV collects CSV text from the message: text parts are joined,
// Markdown fences and paragraph tags are removed, and a data part holding
// {"csv_data": "..."} or a JSON string is accepted.
func ExtractCSV(msg Message) string {
	var texts []string
	for _, part := range msg.Parts {
		switch part.Kind {
		case "text":
			if t := cleanText(part.Text); t != "" {
				texts = append(texts, t)
			}
		case "data":
			if len(part.Data) == 0 {
				continue
			}
			var obj struct {
				CSVData string `json:"csv_data"`
			}
			if err := json.Unmarshal(part.Data, &obj); err == nil && obj.CSVData != "" {
				texts = append(texts, cleanText(obj.CSVData))
				continue
			}
			var s string
			if err := json.Unmarshal(part.Data, &s); err == nil && strings.TrimSpace(s) != "" {
				texts = append(texts, cleanText(s))
			}
		}
	}
	return strings.Join(texts, "\n")
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "<p>", "")
	s = strings.ReplaceAll(s, "</p>", "\n")
	s = strings.ReplaceAll(s, "<br>", "\n")
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func statusTask(taskID, contextID, state, text string) TaskResult {
	return TaskResult{
		ID:        taskID,
		ContextID: contextID,
		Kind:      "task",
		Status: TaskStatus{
			State:     state,
			Timestamp: Timestamp(),
			Message: &Message{
				Kind:      "message",
				Role:      RoleAgent,
				MessageID: uuid.NewString(),
				TaskID:    taskID,
				Parts:     []MessagePart{TextPart(text)},
			},
		},
	}
}

func completedTask(taskID, contextID string, result *models.AnalysisResult) (TaskResult, error) {
	data, err := DataPart(result)
	if err != nil {
		return TaskResult{}, err
	}
	text := FormatResult(result)

	task := statusTask(taskID, contextID, StateCompleted, text)
	task.Artifacts = []Artifact{{
		ArtifactID: uuid.NewString(),
		Name:       "Customer Personas",
		Parts:      []MessagePart{TextPart(text), data},
	}}
	return task, nil
}

// FormatResult renders the analysis as Markdown.
func FormatResult(result *models.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Customer Personas (k = %d)\n\n", result.KEstimation.K)
	if result.KEstimation.Reasoning != "" {
		fmt.Fprintf(&b, "**Why %d clusters:** %s\n", result.KEstimation.K, result.KEstimation.Reasoning)
	}
	if len(result.Personas) == 0 {
		b.WriteString("\nNo personas generated.\n")
		return b.String()
	}
	for _, p := range result.Personas {
		fmt.Fprintf(&b, "\n---\n\n## Cluster %d: %s\n\n", p.ClusterID, p.PersonaName)
		fmt.Fprintf(&b, "%s\n\n", p.Description)
		fmt.Fprintf(&b, "**Marketing strategy:** %s\n", p.MarketingStrategy)
	}
	return b.String()
}

func (h *Handler) sendResult(c *gin.Context, id any, result TaskResult) {
	h.logger.Info("a2a task finished", zap.String("task_id", result.ID), zap.String("state", result.Status.State))
	c.JSON(http.StatusOK, JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result})
}

// sendError writes a JSON-RPC error. Per JSON-RPC these go out with 200 OK.
func (h *Handler) sendError(c *gin.Context, id any, message string, code int) {
	h.logger.Warn("a2a request rejected", zap.Int("code", code), zap.String("message", message))
	c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	})
}
