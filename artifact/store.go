package artifact

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/calmctl/gemaraurl"
	"github.com/c360studio/calmctl/policy"
)

// requirementGlob matches stored control requirement documents.
const requirementGlob = "*.requirement.json"

// DirStore reads and writes control requirement documents in a single
// directory. Filenames are derived from requirement ids via gemaraurl.
type DirStore struct {
	root   string
	logger *slog.Logger
}

// NewDirStore creates a store rooted at root. The directory is created on
// first write, not here.
func NewDirStore(root string, logger *slog.Logger) *DirStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirStore{root: root, logger: logger}
}

// Root returns the store directory.
func (s *DirStore) Root() string { return s.root }

// Write marshals the document and writes it under the filename derived from
// requirementID. Returns the written path.
func (s *DirStore) Write(requirementID string, doc *Document) (string, error) {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return "", fmt.Errorf("create store directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	filePath := filepath.Join(s.root, gemaraurl.Filename(requirementID))
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}

	s.logger.Debug("Wrote control requirement document",
		"requirement_id", requirementID,
		"path", filePath)
	return filePath, nil
}

// Stored pairs a parsed document with the file it came from.
type Stored struct {
	Path string
	Doc  *Document
}

// Load enumerates and parses every requirement document in the store, in
// sorted filename order. Unreadable or non-JSON entries are skipped with a
// warning: for matching purposes a malformed document is absent.
func (s *DirStore) Load() ([]Stored, error) {
	matches, err := doublestar.FilepathGlob(filepath.Join(s.root, requirementGlob))
	if err != nil {
		return nil, fmt.Errorf("scan store: %w", err)
	}
	sort.Strings(matches)

	var stored []Stored
	for _, filePath := range matches {
		data, err := os.ReadFile(filePath)
		if err != nil {
			s.logger.Warn("Skipping unreadable document", "path", filePath, "error", err)
			continue
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			s.logger.Warn("Skipping malformed document", "path", filePath, "error", err)
			continue
		}
		stored = append(stored, Stored{Path: filePath, Doc: &doc})
	}
	return stored, nil
}

// URLMapping builds the url→relative-path mapping for a set of resolved
// requirements. controlsDir is the directory holding the generated
// documents, relative to the mapping file's own parent; when baseDir is
// non-empty an additional entry maps each base URL into that directory.
// Paths use forward slashes, as the mapping is consumed by tooling that
// resolves gemara:// URLs, not by the local filesystem.
func URLMapping(reqs []policy.ResolvedRequirement, controlsDir, baseDir string) map[string]string {
	mapping := make(map[string]string, len(reqs)*2)
	for _, r := range reqs {
		filename := gemaraurl.Filename(r.RequirementID)
		mapping[r.CanonicalURL] = "../" + path.Join(controlsDir, filename)
		if baseDir != "" {
			mapping[r.BaseURL] = "../" + path.Join(baseDir, filename)
		}
	}
	return mapping
}

// WriteURLMapping writes a url→path mapping as indented JSON.
func WriteURLMapping(outputPath string, mapping map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create mapping directory: %w", err)
	}
	data, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("write mapping: %w", err)
	}
	return nil
}
