package runbook

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/runbookstack/runbook-analyzer/internal/models"
)

const sampleDoc = `title: Service X Incident Response
version: "1.2"
last_updated: "2026-05-01"
owner: platform-team
steps:
  - Check dashboards
  - name: escalate
    contact: oncall@example.com
annotations:
  - incident_id: INC-100
    timestamp: "2026-05-02T10:00:00Z"
    cause: memory leak in cache layer
    fix: restarted the pod
    symptoms:
      - high latency
      - oomkilled pods
    runbook_gap: no memory alerting
`

func writeRunbook(t *testing.T, root, name, content string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStoreLoad(t *testing.T) {
	root := t.TempDir()
	writeRunbook(t, root, "service-x", sampleDoc)
	store := NewStore(root, nil)

	doc, err := store.Load("service-x")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Title != "Service X Incident Response" || doc.Owner != "platform-team" {
		t.Fatalf("metadata not parsed: %+v", doc)
	}
	if len(doc.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(doc.Steps))
	}
	if len(doc.Annotations) != 1 {
		t.Fatalf("got %d annotations, want 1", len(doc.Annotations))
	}
	ann := doc.Annotations[0]
	if ann.IncidentID != "INC-100" || ann.Cause != "memory leak in cache layer" {
		t.Fatalf("annotation not parsed: %+v", ann)
	}
	if !reflect.DeepEqual([]string(ann.RunbookGap), []string{"no memory alerting"}) {
		t.Fatalf("scalar runbook_gap not parsed: %+v", ann.RunbookGap)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	_, err := store.Load("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorePathRejectsEscapes(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	for _, name := range []string{"", "..", "../other", "a/b", `a\b`} {
		if _, err := store.Path(name); err == nil {
			t.Errorf("Path(%q) should be rejected", name)
		}
	}
}

func TestStoreAppendAnnotationRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeRunbook(t, root, "service-x", sampleDoc)
	store := NewStore(root, nil)

	added := models.AnnotationRecord{
		IncidentID: "INC-101",
		Timestamp:  "2026-05-03T09:00:00Z",
		Cause:      "disk full",
		Fix:        "cleanup of old logs",
		Symptoms:   []string{"write failures"},
		RunbookGap: models.GapList{"no disk alerting", "no cleanup step"},
	}
	if err := store.AppendAnnotation("service-x", added); err != nil {
		t.Fatalf("AppendAnnotation: %v", err)
	}

	doc, err := store.Load("service-x")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(doc.Annotations) != 2 {
		t.Fatalf("got %d annotations, want 2", len(doc.Annotations))
	}
	if !reflect.DeepEqual(doc.Annotations[1], added) {
		t.Fatalf("appended annotation did not round-trip:\n%+v\nvs\n%+v", doc.Annotations[1], added)
	}
	if doc.Annotations[0].IncidentID != "INC-100" {
		t.Fatal("existing annotation lost on append")
	}
	// Unmodeled step structure survives the rewrite.
	if len(doc.Steps) != 2 {
		t.Fatalf("steps lost on rewrite: %d", len(doc.Steps))
	}
}

func TestStoreAppendDiagnostic(t *testing.T) {
	root := t.TempDir()
	writeRunbook(t, root, "service-x", sampleDoc)
	store := NewStore(root, nil)

	record := models.DiagnosticRecord{
		Timestamp:  "2026-05-03T09:05:00Z",
		Source:     "prometheus",
		Query:      "up == 0",
		ResultHash: strings.Repeat("ab", 32),
		ResultBlob: map[string]interface{}{"status": "firing"},
		Provenance: models.ProvenanceAutomated,
	}
	if err := store.AppendDiagnostic("service-x", record); err != nil {
		t.Fatalf("AppendDiagnostic: %v", err)
	}

	doc, err := store.Load("service-x")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(doc.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(doc.Diagnostics))
	}
	got := doc.Diagnostics[0]
	if got.ResultHash != record.ResultHash || got.Source != "prometheus" {
		t.Fatalf("diagnostic did not round-trip: %+v", got)
	}
	if got.ResultBlob["status"] != "firing" {
		t.Fatalf("result blob did not round-trip: %+v", got.ResultBlob)
	}
}

func TestStoreAppendToMissingRunbook(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	err := store.AppendAnnotation("ghost", models.AnnotationRecord{IncidentID: "INC-1"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	writeRunbook(t, root, "service-x", sampleDoc)
	store := NewStore(root, nil)

	doc, err := store.Load("service-x")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save("service-x", doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "service-x"))
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestStoreList(t *testing.T) {
	root := t.TempDir()
	writeRunbook(t, root, "service-b", sampleDoc)
	writeRunbook(t, root, "service-a", sampleDoc)
	// Directory without a runbook document is skipped.
	if err := os.MkdirAll(filepath.Join(root, "empty-dir"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Stray file at the root is skipped.
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(root, nil)
	names, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"service-a", "service-b"}) {
		t.Fatalf("List = %v", names)
	}
}
