package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/calmctl/policy"
)

// catalogDocument is the on-disk shape of a Layer 2 catalog file.
type catalogDocument struct {
	ID       string               `yaml:"id"`
	Title    string               `yaml:"title,omitempty"`
	Controls []policy.BaseControl `yaml:"controls"`
}

// Dir is a Provider backed by a directory of catalog files. Each catalog
// lives in "<catalog-id>.yaml"; files are parsed once and cached for the
// lifetime of the provider.
type Dir struct {
	root string

	mu     sync.Mutex
	loaded map[string]map[string]policy.BaseControl
}

// NewDir creates a directory-backed provider rooted at root.
func NewDir(root string) *Dir {
	return &Dir{
		root:   root,
		loaded: make(map[string]map[string]policy.BaseControl),
	}
}

// GetBaseControl implements policy.CatalogProvider. Unknown catalogs and
// unknown controls both surface as ErrControlNotFound; the distinction is
// carried in the wrapped message.
func (d *Dir) GetBaseControl(ctx context.Context, catalogID, controlID string) (*policy.BaseControl, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	controls, err := d.catalogControls(catalogID)
	if err != nil {
		return nil, err
	}

	control, ok := controls[controlID]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrControlNotFound, catalogID, controlID)
	}
	return &control, nil
}

// catalogControls returns the parsed control index for a catalog, loading
// the catalog file on first use.
func (d *Dir) catalogControls(catalogID string) (map[string]policy.BaseControl, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if controls, ok := d.loaded[catalogID]; ok {
		return controls, nil
	}

	path := filepath.Join(d.root, catalogID+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: catalog %s (no file at %s)", ErrControlNotFound, catalogID, path)
		}
		return nil, fmt.Errorf("read catalog %s: %w", catalogID, err)
	}

	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", catalogID, err)
	}

	controls := make(map[string]policy.BaseControl, len(doc.Controls))
	for _, c := range doc.Controls {
		if c.CatalogID == "" {
			c.CatalogID = catalogID
		}
		controls[c.ID] = c
	}

	d.loaded[catalogID] = controls
	return controls, nil
}
