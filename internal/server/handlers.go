package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nvoss/leakscope/internal/analysis"
	"github.com/nvoss/leakscope/internal/gateway"
	"github.com/nvoss/leakscope/internal/models"
)

// Handlers contains all HTTP request handlers.
type Handlers struct {
	deps           Deps
	liveMonitoring bool
	logger         *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps, liveMonitoring bool, logger *zap.Logger) *Handlers {
	return &Handlers{deps: deps, liveMonitoring: liveMonitoring, logger: logger}
}

// ErrorResponse is the shared error body shape.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// writeGatewayError maps a pipeline failure to the HTTP error contract.
func (h *Handlers) writeGatewayError(c *gin.Context, err error) {
	kind := gateway.KindOf(err)
	switch kind {
	case gateway.KindRateLimited:
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error:   "rate limit exceeded, retry later",
			Details: err.Error(),
		})
	case gateway.KindQuotaExhausted:
		c.JSON(http.StatusPaymentRequired, ErrorResponse{
			Error:   "completion service quota exhausted",
			Details: err.Error(),
		})
	default:
		h.logger.Error("Pipeline request failed",
			zap.String("kind", kind.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "analysis failed",
			Details: err.Error(),
		})
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "leakscope",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// ClassifyRequest is the body of POST /api/v1/classify.
type ClassifyRequest struct {
	TextContent string `json:"textContent"`
	FileName    string `json:"fileName"`
}

// Classify handles POST /api/v1/classify
func (h *Handlers) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.TextContent == "" {
		badRequest(c, "textContent is required")
		return
	}
	if req.FileName == "" {
		badRequest(c, "fileName is required")
		return
	}

	classification, err := h.deps.Classifier.Classify(c.Request.Context(), req.TextContent, req.FileName)
	if err != nil {
		h.writeGatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"classification": classification,
		"fileName":       req.FileName,
		"processedAt":    time.Now().UTC().Format(time.RFC3339),
	})
}

// ExtractRequest is the body of POST /api/v1/extract.
type ExtractRequest struct {
	ReportContent string `json:"reportContent"`
	ReportType    string `json:"reportType"`
}

// Extract handles POST /api/v1/extract
func (h *Handlers) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.ReportContent == "" {
		badRequest(c, "reportContent is required")
		return
	}

	summary, err := h.deps.Extractor.Extract(c.Request.Context(), req.ReportContent, req.ReportType)
	if err != nil {
		h.writeGatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"analysis":   summary,
		"analyzedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReconcileRequest is the body of POST /api/v1/reconcile. ReportAnalysis
// accepts either a single extraction summary or an array of them.
type ReconcileRequest struct {
	ReportAnalysis json.RawMessage `json:"reportAnalysis"`
	MenuData       string          `json:"menuData"`
}

func (r *ReconcileRequest) summaries() ([]*models.ExtractionSummary, error) {
	var batch []*models.ExtractionSummary
	if err := json.Unmarshal(r.ReportAnalysis, &batch); err == nil {
		return batch, nil
	}
	var single models.ExtractionSummary
	if err := json.Unmarshal(r.ReportAnalysis, &single); err != nil {
		return nil, fmt.Errorf("reportAnalysis is neither a summary nor a summary array: %w", err)
	}
	return []*models.ExtractionSummary{&single}, nil
}

// Reconcile handles POST /api/v1/reconcile
func (h *Handlers) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	// RawMessage keeps an explicit JSON null; treat it as missing too.
	if len(req.ReportAnalysis) == 0 || string(req.ReportAnalysis) == "null" {
		badRequest(c, "reportAnalysis is required")
		return
	}
	if req.MenuData == "" {
		badRequest(c, "menuData is required")
		return
	}

	summaries, err := req.summaries()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.deps.Reconciler.Reconcile(c.Request.Context(), summaries, req.MenuData)
	if err != nil {
		h.writeGatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"comparison": result,
		"analyzedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

// ExportRequest is the body of POST /api/v1/reconcile/export.
type ExportRequest struct {
	Comparison *models.ReconciliationResult `json:"comparison"`
}

// ExportReconciliation handles POST /api/v1/reconcile/export
func (h *Handlers) ExportReconciliation(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Comparison == nil {
		badRequest(c, "comparison is required")
		return
	}

	buf, err := h.deps.Excel.Write(req.Comparison)
	if err != nil {
		h.logger.Error("Failed to build discrepancy workbook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to build workbook"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="discrepancies.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

// AnalyzeRequest is the body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	Documents []analysis.DocumentInput `json:"documents"`
}

// AnalyzeBatch handles POST /api/v1/analyze
func (h *Handlers) AnalyzeBatch(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		badRequest(c, "documents is required")
		return
	}
	for _, doc := range req.Documents {
		if doc.TextContent == "" || doc.FileName == "" {
			badRequest(c, "every document needs textContent and fileName")
			return
		}
	}

	batch, err := h.deps.Orchestrator.AnalyzeBatch(c.Request.Context(), req.Documents)
	if err != nil {
		// The orchestrator only errors on cancellation; accumulated partial
		// results are intact but the caller is gone.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			c.Abort()
			return
		}
		h.writeGatewayError(c, err)
		return
	}

	h.recordRuns(batch)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"results":    batch.Results,
		"failures":   batch.Failures,
		"analyzedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

// recordRuns persists run summaries when the live-monitoring capability is
// granted. Failures here never fail the request.
func (h *Handlers) recordRuns(batch *models.BatchResult) {
	if !h.liveMonitoring || h.deps.Runs == nil {
		return
	}
	for _, r := range batch.Results {
		var recovery float64
		for _, issue := range r.Extraction.Issues {
			recovery += issue.PotentialRecovery
		}
		run := &models.AnalysisRun{
			ID:               r.Document.ID,
			FileName:         r.Document.FileName,
			Category:         r.Classification.Category,
			Confidence:       r.Classification.Confidence,
			TotalRevenue:     r.Extraction.TotalRevenue.Value,
			NetProfit:        r.Extraction.NetProfit.Value,
			TotalRecoverable: recovery,
			IsEstimate:       r.Extraction.TotalRevenue.IsEstimate || r.Extraction.NetProfit.IsEstimate,
			IssueCount:       len(r.Extraction.Issues),
		}
		if err := h.deps.Runs.Create(run); err != nil {
			h.logger.Warn("Failed to record analysis run",
				zap.String("file_name", run.FileName),
				zap.Error(err))
		}
	}
}

// Ingest handles POST /api/v1/ingest (multipart upload).
func (h *Handlers) Ingest(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "failed to open uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read upload"})
		return
	}

	doc, err := h.deps.Reader.FromUpload(fileHeader.Filename, data)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"document": doc,
	})
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message string                      `json:"message"`
	Context *models.ConversationContext `json:"context"`
	History []models.ChatTurn           `json:"history"`
}

// Chat handles POST /api/v1/chat, streaming the reply as server-sent events.
// A failure after the stream opens cannot change the status code; the stream
// simply ends without the terminal done event and the client treats the
// incomplete stream as a failure.
func (h *Handlers) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Message == "" {
		badRequest(c, "message is required")
		return
	}

	stream, err := h.deps.Chat.Respond(c.Request.Context(), req.Message, req.Context, req.History)
	if err != nil {
		h.writeGatewayError(c, err)
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			c.SSEvent("done", "[DONE]")
			return false
		}
		if err != nil {
			h.logger.Error("Chat stream failed mid-flight", zap.Error(err))
			return false
		}
		if chunk != "" {
			c.SSEvent("message", chunk)
		}
		return true
	})
}

// ListRuns handles GET /api/v1/runs
func (h *Handlers) ListRuns(c *gin.Context) {
	if !h.liveMonitoring {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "live monitoring is not enabled for this deployment"})
		return
	}

	limit := 20
	offset := 0
	if v, err := parseQueryInt(c, "limit"); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := parseQueryInt(c, "offset"); err == nil && v >= 0 {
		offset = v
	}

	runs, err := h.deps.Runs.List(limit, offset)
	if err != nil {
		h.logger.Error("Failed to list analysis runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []*models.AnalysisRun{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "runs": runs})
}

// GetRun handles GET /api/v1/runs/:id
func (h *Handlers) GetRun(c *gin.Context) {
	if !h.liveMonitoring {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "live monitoring is not enabled for this deployment"})
		return
	}

	run, err := h.deps.Runs.GetByID(c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to get analysis run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to get run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "run not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "run": run})
}

func parseQueryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, fmt.Errorf("missing")
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0, err
	}
	return n, nil
}
