// Package catalog supplies Layer 2 base control definitions to the policy
// resolver. The Provider capability is injectable so the resolver never
// bakes in a particular knowledge source.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/c360studio/calmctl/policy"
)

// ErrControlNotFound is returned when a catalog/control pair is unknown.
var ErrControlNotFound = errors.New("base control not found")

// Memory is an in-memory Provider keyed by catalog id and control id.
// It is deterministic and safe for concurrent use, which makes it the test
// double of choice for resolver tests.
type Memory struct {
	mu       sync.RWMutex
	controls map[string]map[string]policy.BaseControl
}

// NewMemory creates an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{controls: make(map[string]map[string]policy.BaseControl)}
}

// Add registers a base control under its catalog id.
func (m *Memory) Add(control policy.BaseControl) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.controls[control.CatalogID] == nil {
		m.controls[control.CatalogID] = make(map[string]policy.BaseControl)
	}
	m.controls[control.CatalogID][control.ID] = control
}

// GetBaseControl implements policy.CatalogProvider.
func (m *Memory) GetBaseControl(ctx context.Context, catalogID, controlID string) (*policy.BaseControl, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	control, ok := m.controls[catalogID][controlID]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrControlNotFound, catalogID, controlID)
	}
	return &control, nil
}

// Seed returns a Memory provider preloaded with a single fixture control:
// one requirement "<controlID>.TR01" with placeholder text and default
// applicability. Useful for examples and tests that only need the shape.
func Seed(catalogID, controlID string) *Memory {
	m := NewMemory()
	m.Add(policy.BaseControl{
		ID:        controlID,
		CatalogID: catalogID,
		Title:     "Base Control " + controlID,
		Objective: "Base control objective for " + controlID,
		AssessmentRequirements: []policy.AssessmentRequirement{
			{
				ID:            controlID + ".TR01",
				Text:          "Base assessment requirement text",
				Applicability: []string{"default"},
			},
		},
	})
	return m
}
