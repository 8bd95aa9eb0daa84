// Package runbook owns reading and appending living-runbook YAML documents.
// The analysis engines never touch files; this store is the single
// collaborator that loads histories for them and persists new records with
// crash-safe replace semantics.
package runbook

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/runbookstack/runbook-analyzer/internal/models"
	"github.com/runbookstack/runbook-analyzer/internal/utils"
)

// FileName is the document file expected inside each runbook directory.
const FileName = "runbook.yaml"

// ErrNotFound signals that a runbook does not exist under the store root.
var ErrNotFound = errors.New("runbook not found")

// Document is a living runbook: static metadata and steps plus the
// append-only annotation and diagnostic histories. Steps are retained as raw
// nodes so sections the analyzer does not model survive a rewrite.
type Document struct {
	Title       string                    `yaml:"title,omitempty"`
	Version     string                    `yaml:"version,omitempty"`
	LastUpdated string                    `yaml:"last_updated,omitempty"`
	Owner       string                    `yaml:"owner,omitempty"`
	Steps       []yaml.Node               `yaml:"steps,omitempty"`
	Annotations []models.AnnotationRecord `yaml:"annotations,omitempty"`
	Diagnostics []models.DiagnosticRecord `yaml:"diagnostics,omitempty"`
}

// Store reads and updates runbook documents under a root directory, one
// runbook per subdirectory.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore constructs a Store rooted at dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: dir, logger: logger}
}

// Root returns the directory the store serves runbooks from.
func (s *Store) Root() string {
	return s.root
}

// Path resolves a runbook name to its document path, rejecting names that
// would escape the store root.
func (s *Store) Path(name string) (string, error) {
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid runbook name %q", name)
	}
	return filepath.Join(s.root, name, FileName), nil
}

// Load reads a runbook document. A missing document yields ErrNotFound.
func (s *Store) Load(name string) (*Document, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, utils.NewAppError("runbook.Load", "read document", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, utils.NewAppError("runbook.Load", "parse document", err)
	}
	return &doc, nil
}

// Save persists a document atomically: the new content is written to a
// temporary file in the same directory and renamed over the old document, so
// a crash leaves either the previous or the new version, never a torn file.
func (s *Store) Save(name string, doc *Document) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return utils.NewAppError("runbook.Save", "encode document", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, FileName+".tmp-*")
	if err != nil {
		return utils.NewAppError("runbook.Save", "create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return utils.NewAppError("runbook.Save", "write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return utils.NewAppError("runbook.Save", "close temp file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return utils.NewAppError("runbook.Save", "replace document", err)
	}
	return nil
}

// AppendAnnotation appends one annotation record and persists the document.
func (s *Store) AppendAnnotation(name string, annotation models.AnnotationRecord) error {
	doc, err := s.Load(name)
	if err != nil {
		return err
	}
	doc.Annotations = append(doc.Annotations, annotation)
	if err := s.Save(name, doc); err != nil {
		return err
	}
	s.logger.Info("annotation appended",
		slog.String("runbook", name),
		slog.String("incident_id", annotation.IncidentID))
	return nil
}

// AppendDiagnostic appends one diagnostic record and persists the document.
func (s *Store) AppendDiagnostic(name string, record models.DiagnosticRecord) error {
	doc, err := s.Load(name)
	if err != nil {
		return err
	}
	doc.Diagnostics = append(doc.Diagnostics, record)
	if err := s.Save(name, doc); err != nil {
		return err
	}
	s.logger.Info("diagnostic appended",
		slog.String("runbook", name),
		slog.String("source", record.Source),
		slog.String("result_hash", record.ResultHash))
	return nil
}

// List returns the names of runbooks under the store root, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, utils.NewAppError("runbook.List", "read store root", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, entry.Name(), FileName)); err != nil {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
