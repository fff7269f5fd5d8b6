// Package policy defines the Gemara Layer 3 policy document model and the
// resolver that merges policy modifications onto Layer 2 base controls.
package policy

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for policy loading.
var (
	ErrPolicyIDRequired    = errors.New("policy metadata.id is required")
	ErrReferenceIDRequired = errors.New("control reference is missing reference-id")
)

// Policy is a Layer 3 policy document: an ordered list of references to
// Layer 2 catalogs, each carrying control- and requirement-level overrides.
type Policy struct {
	Metadata          Metadata           `yaml:"metadata" json:"metadata"`
	ControlReferences []ControlReference `yaml:"control-references" json:"control-references"`
}

// Metadata identifies the policy document.
type Metadata struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title,omitempty" json:"title,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// ControlReference points at one catalog and carries the policy's overrides
// for controls and assessment requirements in that catalog.
type ControlReference struct {
	// ReferenceID is the catalog id the modifications target.
	ReferenceID string `yaml:"reference-id" json:"reference-id"`

	ControlModifications []ControlModification `yaml:"control-modifications" json:"control-modifications"`

	AssessmentRequirementModifications []AssessmentRequirementModification `yaml:"assessment-requirement-modifications" json:"assessment-requirement-modifications"`
}

// ControlModification overrides control-level fields of a base control.
// An empty Title or Objective keeps the base value.
type ControlModification struct {
	TargetID string `yaml:"target-id" json:"target-id"`

	// ModificationType is informational ("enhancement", "restriction", ...).
	ModificationType string `yaml:"modification-type,omitempty" json:"modification-type,omitempty"`

	Title     string `yaml:"title,omitempty" json:"title,omitempty"`
	Objective string `yaml:"objective,omitempty" json:"objective,omitempty"`
}

// AssessmentRequirementModification overrides a single assessment
// requirement, or introduces a new one when TargetID matches no base
// requirement. An empty Text keeps the base text; a nil Applicability keeps
// the base set.
type AssessmentRequirementModification struct {
	TargetID      string   `yaml:"target-id" json:"target-id"`
	Text          string   `yaml:"text,omitempty" json:"text,omitempty"`
	Applicability []string `yaml:"applicability,omitempty" json:"applicability,omitempty"`
}

// BaseControl is a Layer 2 control definition as supplied by a catalog.
type BaseControl struct {
	ID                     string                  `yaml:"id" json:"id"`
	CatalogID              string                  `yaml:"catalog-id" json:"catalog-id"`
	Title                  string                  `yaml:"title" json:"title"`
	Objective              string                  `yaml:"objective" json:"objective"`
	AssessmentRequirements []AssessmentRequirement `yaml:"assessment-requirements" json:"assessment-requirements"`
}

// AssessmentRequirement is the smallest testable unit of a control.
type AssessmentRequirement struct {
	ID            string   `yaml:"id" json:"id"`
	Text          string   `yaml:"text" json:"text"`
	Applicability []string `yaml:"applicability,omitempty" json:"applicability,omitempty"`
}

// ResolvedRequirement is one assessment requirement after policy
// modifications have been applied, carrying everything needed to render and
// address its document.
type ResolvedRequirement struct {
	RequirementID string   `json:"requirement-id"`
	ControlID     string   `json:"control-id"`
	CatalogID     string   `json:"catalog-id"`
	PolicyID      string   `json:"policy-id"`
	Text          string   `json:"text"`
	Applicability []string `json:"applicability"`

	// IsModified is true iff the requirement id appears as a target in the
	// control reference's assessment modifications, independent of whether
	// the override changed any field.
	IsModified bool `json:"is-modified"`

	// BaseRequirementID addresses the Layer 2 requirement this one derives
	// from. For unmodified requirements it equals RequirementID.
	BaseRequirementID string `json:"base-requirement-id"`

	CanonicalURL string `json:"gemara-url"`
	BaseURL      string `json:"base-requirement-url"`

	ControlTitle     string `json:"control-title"`
	ControlObjective string `json:"control-objective"`
}

// Validate checks structural invariants of a loaded policy.
func (p *Policy) Validate() error {
	if p.Metadata.ID == "" {
		return ErrPolicyIDRequired
	}
	for i, ref := range p.ControlReferences {
		if ref.ReferenceID == "" {
			return fmt.Errorf("%w (control-references[%d])", ErrReferenceIDRequired, i)
		}
		for j, mod := range ref.ControlModifications {
			if mod.TargetID == "" {
				return fmt.Errorf("control-references[%d].control-modifications[%d]: target-id is required", i, j)
			}
		}
		for j, mod := range ref.AssessmentRequirementModifications {
			if mod.TargetID == "" {
				return fmt.Errorf("control-references[%d].assessment-requirement-modifications[%d]: target-id is required", i, j)
			}
		}
	}
	return nil
}

// LoadFile reads and validates a policy document from a YAML file.
func LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", path, err)
	}
	return &p, nil
}
