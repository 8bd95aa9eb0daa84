package chatops

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/runbookstack/runbook-analyzer/internal/models"
)

type fakeAppender struct {
	name       string
	annotation models.AnnotationRecord
	calls      int
	err        error
}

func (f *fakeAppender) AppendAnnotation(name string, annotation models.AnnotationRecord) error {
	f.calls++
	f.name = name
	f.annotation = annotation
	return f.err
}

func submissionPayload(values map[string]string) InteractionPayload {
	state := make(map[string]map[string]Input, len(values))
	for block, value := range values {
		state[block] = map[string]Input{"input": {Value: value}}
	}
	return InteractionPayload{
		Type: "view_submission",
		View: View{CallbackID: CallbackID, State: State{Values: state}},
	}
}

func newTestHandler(store Appender) *Handler {
	h := NewHandler(store, nil)
	h.now = func() time.Time {
		return time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC)
	}
	return h
}

func TestHandleSubmission(t *testing.T) {
	store := &fakeAppender{}
	h := newTestHandler(store)

	resp := h.HandleSubmission(submissionPayload(map[string]string{
		"incident_id":  "INC-2026-042",
		"root_cause":   "memory leak in cache layer",
		"fix_applied":  "restarted the pod",
		"symptoms":     "high latency\noomkilled pods\n",
		"runbook_gaps": "no memory alerting",
		"runbook_path": "runbooks/service-x/runbook.yaml",
	}))

	if store.calls != 1 {
		t.Fatalf("AppendAnnotation called %d times, want 1", store.calls)
	}
	if store.name != "service-x" {
		t.Fatalf("runbook name = %q, want service-x", store.name)
	}

	want := models.AnnotationRecord{
		IncidentID: "INC-2026-042",
		Timestamp:  "2026-05-03T09:00:00Z",
		Cause:      "memory leak in cache layer",
		Fix:        "restarted the pod",
		Symptoms:   []string{"high latency", "oomkilled pods"},
		RunbookGap: models.GapList{"no memory alerting"},
	}
	if !reflect.DeepEqual(store.annotation, want) {
		t.Fatalf("annotation:\n%+v\nwant\n%+v", store.annotation, want)
	}

	if resp.ResponseAction != "push" || resp.View == nil {
		t.Fatalf("expected push response, got %+v", resp)
	}
	if resp.View.CallbackID != "annotation_confirmation" {
		t.Fatalf("confirmation callback = %q", resp.View.CallbackID)
	}
	if len(resp.View.Blocks) != 1 || resp.View.Blocks[0].Text == nil {
		t.Fatalf("unexpected confirmation blocks: %+v", resp.View.Blocks)
	}
	if got := resp.View.Blocks[0].Text.Text; got != "Successfully added annotation for incident INC-2026-042 to service-x" {
		t.Fatalf("confirmation text = %q", got)
	}
}

func TestHandleSubmissionMissingFields(t *testing.T) {
	store := &fakeAppender{}
	h := newTestHandler(store)

	resp := h.HandleSubmission(submissionPayload(map[string]string{
		"root_cause":   "memory leak",
		"runbook_path": "service-x",
	}))
	if resp.ResponseAction != "errors" {
		t.Fatalf("missing incident_id should yield errors response: %+v", resp)
	}
	if _, ok := resp.Errors["runbook_path"]; !ok {
		t.Fatalf("error should be keyed on runbook_path: %+v", resp.Errors)
	}

	resp = h.HandleSubmission(submissionPayload(map[string]string{
		"incident_id": "INC-1",
	}))
	if resp.ResponseAction != "errors" {
		t.Fatalf("missing runbook_path should yield errors response: %+v", resp)
	}

	if store.calls != 0 {
		t.Fatalf("store should not be touched on invalid payloads, got %d calls", store.calls)
	}
}

func TestHandleSubmissionStoreFailure(t *testing.T) {
	store := &fakeAppender{err: errors.New("disk unhappy")}
	h := newTestHandler(store)

	resp := h.HandleSubmission(submissionPayload(map[string]string{
		"incident_id":  "INC-1",
		"runbook_path": "service-x",
	}))
	if resp.ResponseAction != "errors" {
		t.Fatalf("store failure should yield errors response: %+v", resp)
	}
	if !strings.Contains(resp.Errors["runbook_path"], "disk unhappy") {
		t.Fatalf("error text should carry the cause: %+v", resp.Errors)
	}
}

func TestHandleSubmissionWrongCallback(t *testing.T) {
	store := &fakeAppender{}
	h := newTestHandler(store)

	payload := submissionPayload(map[string]string{"incident_id": "INC-1", "runbook_path": "x"})
	payload.View.CallbackID = "something_else"

	resp := h.HandleSubmission(payload)
	if resp.ResponseAction != "errors" || store.calls != 0 {
		t.Fatalf("unexpected callback should be rejected: %+v", resp)
	}
}

func TestRunbookNameFromPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"runbooks/service-x/runbook.yaml", "service-x"},
		{"service-x", "service-x"},
		{"/runbooks/service-x/", "service-x"},
		{"service-x/runbook.yaml", "service-x"},
		{"  service-y  ", "service-y"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := RunbookNameFromPath(tc.in); got != tc.want {
			t.Errorf("RunbookNameFromPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
