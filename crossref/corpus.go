package crossref

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultArchitecturePattern matches architecture documents within the
// architecture directory. Doublestar syntax, so recursive layouts work with
// e.g. "**/*.arch.json".
const DefaultArchitecturePattern = "*.arch.json"

// ArchitectureDocument is one raw architecture file. The content is opaque
// to validation beyond the gemara:// URL grammar.
type ArchitectureDocument struct {
	Path    string
	Content string
}

// LoadArchitectureDir reads every file under root matching pattern, in
// sorted path order. Unreadable files are skipped with a warning; they
// simply contribute no references.
func LoadArchitectureDir(root, pattern string, logger *slog.Logger) ([]ArchitectureDocument, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if pattern == "" {
		pattern = DefaultArchitecturePattern
	}

	matches, err := doublestar.FilepathGlob(filepath.Join(root, pattern))
	if err != nil {
		return nil, fmt.Errorf("scan architecture directory: %w", err)
	}
	sort.Strings(matches)

	var docs []ArchitectureDocument
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Skipping unreadable architecture file", "path", path, "error", err)
			continue
		}
		docs = append(docs, ArchitectureDocument{Path: path, Content: string(data)})
	}
	return docs, nil
}
