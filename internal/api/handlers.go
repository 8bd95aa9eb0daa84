package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/runbookstack/runbook-analyzer/internal/chatops"
	"github.com/runbookstack/runbook-analyzer/internal/config"
	"github.com/runbookstack/runbook-analyzer/internal/diagnostics"
	"github.com/runbookstack/runbook-analyzer/internal/models"
	"github.com/runbookstack/runbook-analyzer/internal/runbook"
	"github.com/runbookstack/runbook-analyzer/internal/services"
)

// Handlers exposes the analyzer over HTTP.
type Handlers struct {
	logger       *slog.Logger
	service      *services.AnalysisService
	chatops      *chatops.Handler
	minFrequency int
}

// NewHandlers constructs the HTTP handler set.
func NewHandlers(logger *slog.Logger, service *services.AnalysisService, chatopsHandler *chatops.Handler, cfg config.AnalysisConfig) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	minFrequency := cfg.MinFrequency
	if minFrequency <= 0 {
		minFrequency = 2
	}
	return &Handlers{
		logger:       logger,
		service:      service,
		chatops:      chatopsHandler,
		minFrequency: minFrequency,
	}
}

// Router builds the gin engine with all analyzer routes.
func (h *Handlers) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/slack/interactions", h.SlackInteractions)

	group := router.Group("/api/v1/runbooks/:runbook")
	group.POST("/annotations", h.CreateAnnotation)
	group.GET("/suggestions", h.ListSuggestions)
	group.POST("/diagnostics", h.CreateDiagnostic)
	group.GET("/diagnostics", h.FindDiagnostics)
	group.GET("/diagnostics/compare", h.CompareDiagnostics)

	return router
}

// SlackInteractions accepts Slack interactive payloads. Slack posts modal
// submissions form-encoded under a "payload" field; raw JSON bodies are
// accepted too for internal tooling.
func (h *Handlers) SlackInteractions(c *gin.Context) {
	raw := c.PostForm("payload")
	var payload chatops.InteractionPayload
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
	} else if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if payload.Type != "view_submission" || payload.View.CallbackID != chatops.CallbackID {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	c.JSON(http.StatusOK, h.chatops.HandleSubmission(payload))
}

// CreateAnnotation appends an annotation record to the named runbook. The
// record's timestamp is stamped here when the caller omits it; the analysis
// core never computes timestamps.
func (h *Handlers) CreateAnnotation(c *gin.Context) {
	var annotation models.AnnotationRecord
	if err := c.ShouldBindJSON(&annotation); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid annotation: " + err.Error()})
		return
	}
	if annotation.Timestamp == "" {
		annotation.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	name := c.Param("runbook")
	if err := h.service.Annotate(c.Request.Context(), name, annotation); err != nil {
		h.writeError(c, "annotate", err)
		return
	}
	c.JSON(http.StatusCreated, annotation)
}

// ListSuggestions runs the suggestion analysis over the runbook's annotation
// history. min_frequency defaults to the configured threshold; an explicit
// zero or negative value degenerates to "everything seen at least once".
func (h *Handlers) ListSuggestions(c *gin.Context) {
	minFrequency := h.minFrequency
	if raw := c.Query("min_frequency"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_frequency must be an integer"})
			return
		}
		minFrequency = parsed
	}

	name := c.Param("runbook")
	suggestions, err := h.service.Suggest(c.Request.Context(), name, minFrequency)
	if err != nil {
		h.writeError(c, "suggest", err)
		return
	}
	if suggestions == nil {
		suggestions = []models.Suggestion{}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions, "count": len(suggestions)})
}

type diagnosticRequest struct {
	Source     string                 `json:"source" binding:"required"`
	Query      string                 `json:"query"`
	ResultBlob map[string]interface{} `json:"result_blob" binding:"required"`
	Provenance models.Provenance      `json:"provenance"`
}

// CreateDiagnostic hashes the payload and appends the resulting record.
func (h *Handlers) CreateDiagnostic(c *gin.Context) {
	var req diagnosticRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid diagnostic: " + err.Error()})
		return
	}

	name := c.Param("runbook")
	record, err := h.service.RecordDiagnostic(c.Request.Context(), name, req.Source, req.Query, req.ResultBlob, req.Provenance)
	if err != nil {
		h.writeError(c, "record diagnostic", err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// FindDiagnostics returns records matching a result hash in history order.
func (h *Handlers) FindDiagnostics(c *gin.Context) {
	targetHash := c.Query("hash")
	if targetHash == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hash is required"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	name := c.Param("runbook")
	records, err := h.service.FindDiagnostics(c.Request.Context(), name, targetHash, limit)
	if err != nil {
		h.writeError(c, "find diagnostics", err)
		return
	}
	if records == nil {
		records = []models.DiagnosticRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"diagnostics": records, "count": len(records)})
}

// CompareDiagnostics diffs the records matching the a and b hashes.
func (h *Handlers) CompareDiagnostics(c *gin.Context) {
	hashA := c.Query("a")
	hashB := c.Query("b")
	if hashA == "" || hashB == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a and b hashes are required"})
		return
	}

	name := c.Param("runbook")
	diff, err := h.service.CompareDiagnostics(c.Request.Context(), name, hashA, hashB)
	if err != nil {
		h.writeError(c, "compare diagnostics", err)
		return
	}
	c.JSON(http.StatusOK, diff)
}

func (h *Handlers) writeError(c *gin.Context, op string, err error) {
	var serErr *diagnostics.SerializationError
	switch {
	case errors.Is(err, runbook.ErrNotFound), errors.Is(err, services.ErrDiagnosticNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &serErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
