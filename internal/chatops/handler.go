// Package chatops turns Slack modal submissions into annotation records and
// hands them to the runbook store. It is a thin front end: the analysis core
// has no dependency on anything here.
package chatops

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/runbookstack/runbook-analyzer/internal/metrics"
	"github.com/runbookstack/runbook-analyzer/internal/models"
)

// CallbackID identifies the annotation modal this handler consumes.
const CallbackID = "incident_annotation"

// Appender is the slice of the runbook store the handler needs.
type Appender interface {
	AppendAnnotation(name string, annotation models.AnnotationRecord) error
}

// InteractionPayload mirrors the subset of a Slack interaction payload the
// handler reads: modal type, callback, and the block input values.
type InteractionPayload struct {
	Type string `json:"type"`
	View View   `json:"view"`
}

// View is the submitted modal view.
type View struct {
	CallbackID string `json:"callback_id"`
	State      State  `json:"state"`
}

// State holds block values keyed by block ID then action ID.
type State struct {
	Values map[string]map[string]Input `json:"values"`
}

// Input is a single modal input value.
type Input struct {
	Value string `json:"value"`
}

// TextObject is a Slack composition text object.
type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Block is a Slack layout block; only section blocks are emitted here.
type Block struct {
	Type string      `json:"type"`
	Text *TextObject `json:"text,omitempty"`
}

// ModalView is a Slack modal pushed in response to a submission.
type ModalView struct {
	Type       string      `json:"type"`
	CallbackID string      `json:"callback_id"`
	Title      *TextObject `json:"title,omitempty"`
	Close      *TextObject `json:"close,omitempty"`
	Blocks     []Block     `json:"blocks,omitempty"`
}

// Response is the body returned to Slack for a view_submission.
type Response struct {
	ResponseAction string            `json:"response_action"`
	View           *ModalView        `json:"view,omitempty"`
	Errors         map[string]string `json:"errors,omitempty"`
}

// Handler processes annotation modal submissions.
type Handler struct {
	store  Appender
	logger *slog.Logger
	now    func() time.Time
}

// NewHandler constructs a Handler writing through the supplied store.
func NewHandler(store Appender, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, logger: logger, now: time.Now}
}

// HandleSubmission validates the payload, builds the annotation record, and
// appends it to the target runbook. Failures come back as a Slack errors
// response rather than an HTTP error so the modal can surface them inline.
func (h *Handler) HandleSubmission(payload InteractionPayload) Response {
	annotation, name, err := h.ParseSubmission(payload)
	if err != nil {
		return errorResponse(err)
	}

	if err := h.store.AppendAnnotation(name, annotation); err != nil {
		h.logger.Error("annotation append failed",
			slog.String("runbook", name),
			slog.Any("error", err))
		return errorResponse(err)
	}
	metrics.AnnotationIngested()

	return Response{
		ResponseAction: "push",
		View: &ModalView{
			Type:       "modal",
			CallbackID: "annotation_confirmation",
			Title:      &TextObject{Type: "plain_text", Text: "Annotation Saved"},
			Close:      &TextObject{Type: "plain_text", Text: "Close"},
			Blocks: []Block{
				{
					Type: "section",
					Text: &TextObject{
						Type: "mrkdwn",
						Text: fmt.Sprintf("Successfully added annotation for incident %s to %s", annotation.IncidentID, name),
					},
				},
			},
		},
	}
}

// ParseSubmission extracts an AnnotationRecord and the target runbook name
// from the modal state. The front end stamps the record's timestamp; the
// analysis core never computes timestamps for new records.
func (h *Handler) ParseSubmission(payload InteractionPayload) (models.AnnotationRecord, string, error) {
	if payload.View.CallbackID != CallbackID {
		return models.AnnotationRecord{}, "", fmt.Errorf("unexpected callback_id %q", payload.View.CallbackID)
	}

	values := payload.View.State.Values
	incidentID := blockValue(values, "incident_id")
	cause := blockValue(values, "root_cause")
	fix := blockValue(values, "fix_applied")
	target := RunbookNameFromPath(blockValue(values, "runbook_path"))

	if incidentID == "" {
		return models.AnnotationRecord{}, "", fmt.Errorf("incident_id is required")
	}
	if target == "" {
		return models.AnnotationRecord{}, "", fmt.Errorf("runbook_path is required")
	}

	annotation := models.AnnotationRecord{
		IncidentID: incidentID,
		Timestamp:  h.now().UTC().Format(time.RFC3339),
		Cause:      cause,
		Fix:        fix,
		Symptoms:   splitLines(blockValue(values, "symptoms")),
		RunbookGap: models.GapList(splitLines(blockValue(values, "runbook_gaps"))),
	}
	return annotation, target, nil
}

// RunbookNameFromPath accepts either a bare runbook name or a repo-style path
// like "runbooks/service-x/runbook.yaml" and returns the runbook name.
func RunbookNameFromPath(value string) string {
	value = strings.Trim(strings.TrimSpace(value), "/")
	if value == "" {
		return ""
	}
	if path.Base(value) == "runbook.yaml" {
		value = path.Dir(value)
	}
	return path.Base(value)
}

func blockValue(values map[string]map[string]Input, block string) string {
	actions, ok := values[block]
	if !ok {
		return ""
	}
	return strings.TrimSpace(actions["input"].Value)
}

func splitLines(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

func errorResponse(err error) Response {
	return Response{
		ResponseAction: "errors",
		Errors: map[string]string{
			"runbook_path": fmt.Sprintf("Error processing annotation: %v", err),
		},
	}
}
