// Package api exposes the analysis pipeline over plain JSON HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/customer-persona-agent/internal/errs"
	"github.com/BerylCAtieno/customer-persona-agent/internal/logging"
	"github.com/BerylCAtieno/customer-persona-agent/internal/models"
	"github.com/BerylCAtieno/customer-persona-agent/internal/pipeline"
)

// Analyzer runs one analysis over CSV text.
type Analyzer interface {
	AnalyzeCSV(ctx context.Context, text string) (*models.AnalysisResult, error)
}

type AnalyzeRequest struct {
	CSVData string `json:"csv_data"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	analyzer Analyzer
	logger   *zap.Logger
	maxBody  int64
}

func NewHandler(analyzer Analyzer, logger *zap.Logger, maxBody int64) *Handler {
	return &Handler{analyzer: analyzer, logger: logger, maxBody: maxBody}
}

// Register mounts the analysis and health routes.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/api/analyze", h.Analyze)
	r.GET("/health", h.Health)
}

func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Analyze handles POST /api/analyze with body {"csv_data": "..."}.
func (h *Handler) Analyze(c *gin.Context) {
	if h.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Request body is too large."})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: expected JSON with a csv_data field."})
		return
	}
	if req.CSVData == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "CSV data is required."})
		return
	}

	ctx := pipeline.WithRunID(c.Request.Context(), c.GetString(logging.RequestIDKey))
	result, err := h.analyzer.AnalyzeCSV(ctx, req.CSVData)
	if err != nil {
		status, body := ErrorBody(err)
		_ = c.Error(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ErrorBody maps a pipeline error to its HTTP status and response body.
func ErrorBody(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, errs.ErrInsufficientData):
		return http.StatusBadRequest, ErrorResponse{Error: "Not enough data to form the estimated number of clusters."}
	case errs.IsBadInput(err):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	case err.Error() == "":
		return http.StatusInternalServerError, ErrorResponse{Error: "An internal server error occurred."}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: err.Error()}
	}
}

// RequestID tags every request with an id, reusing a well-formed incoming
// X-Request-ID header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(logging.RequestIDKey)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(logging.RequestIDKey, id)
		c.Header(logging.RequestIDKey, id)
		c.Next()
	}
}
