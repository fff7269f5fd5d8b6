package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/calmctl/gemaraurl"
)

// CatalogProvider supplies Layer 2 base control definitions. Implementations
// live in the catalog package; the resolver only depends on the capability.
type CatalogProvider interface {
	GetBaseControl(ctx context.Context, catalogID, controlID string) (*BaseControl, error)
}

// CatalogLookupError records a base control that could not be fetched. It is
// fatal for its control reference but not for the resolution run: the
// resolver continues with the remaining references and the caller aggregates.
type CatalogLookupError struct {
	CatalogID string
	ControlID string
	Err       error
}

func (e *CatalogLookupError) Error() string {
	return fmt.Sprintf("catalog lookup %s/%s: %v", e.CatalogID, e.ControlID, e.Err)
}

func (e *CatalogLookupError) Unwrap() error { return e.Err }

// Resolver merges a policy's modifications onto base controls fetched from a
// catalog provider.
type Resolver struct {
	catalog CatalogProvider
	logger  *slog.Logger
}

// NewResolver creates a resolver backed by the given catalog provider.
func NewResolver(catalog CatalogProvider, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{catalog: catalog, logger: logger}
}

// Resolve produces one ResolvedRequirement per assessment requirement of
// every control the policy modifies. Output order: control references in
// input order, control modifications in input order within each, and within
// each control the base requirements in base order followed by appended new
// requirements in modification-list order.
//
// Catalog lookup failures are returned as *CatalogLookupError values
// alongside whatever resolved successfully; they never abort the run.
func (r *Resolver) Resolve(ctx context.Context, p *Policy) ([]ResolvedRequirement, []error) {
	var resolved []ResolvedRequirement
	var errs []error

	policyID := p.Metadata.ID

	for _, ref := range p.ControlReferences {
		for _, mod := range ref.ControlModifications {
			base, err := r.catalog.GetBaseControl(ctx, ref.ReferenceID, mod.TargetID)
			if err != nil {
				errs = append(errs, &CatalogLookupError{
					CatalogID: ref.ReferenceID,
					ControlID: mod.TargetID,
					Err:       err,
				})
				r.logger.Warn("Base control lookup failed",
					"catalog_id", ref.ReferenceID,
					"control_id", mod.TargetID,
					"error", err)
				continue
			}

			control := applyModifications(base, mod, ref.AssessmentRequirementModifications)

			for _, req := range control.AssessmentRequirements {
				resolved = append(resolved, r.resolveRequirement(policyID, ref, mod.TargetID, control, req))
			}
		}
	}

	r.logger.Debug("Policy resolved",
		"policy_id", policyID,
		"requirements", len(resolved),
		"failed_controls", len(errs))

	return resolved, errs
}

// resolveRequirement fills in identity, URLs, and provenance for one merged
// assessment requirement.
func (r *Resolver) resolveRequirement(policyID string, ref ControlReference, controlID string, control *BaseControl, req AssessmentRequirement) ResolvedRequirement {
	modified := isModified(req.ID, ref.AssessmentRequirementModifications)

	return ResolvedRequirement{
		RequirementID:     req.ID,
		ControlID:         controlID,
		CatalogID:         ref.ReferenceID,
		PolicyID:          policyID,
		Text:              req.Text,
		Applicability:     req.Applicability,
		IsModified:        modified,
		BaseRequirementID: baseRequirementID(controlID, req.ID, modified),
		CanonicalURL:      gemaraurl.Canonical(policyID, controlID, req.ID),
		BaseURL:           gemaraurl.Base(ref.ReferenceID, controlID, req.ID),
		ControlTitle:      control.Title,
		ControlObjective:  control.Objective,
	}
}

// applyModifications merges control-level overrides and assessment
// requirement overrides onto a base control, preserving base order. The base
// control is not mutated.
func applyModifications(base *BaseControl, mod ControlModification, assessmentMods []AssessmentRequirementModification) *BaseControl {
	control := *base

	// Control-level fields: override when present and non-empty.
	if mod.Title != "" {
		control.Title = mod.Title
	}
	if mod.Objective != "" {
		control.Objective = mod.Objective
	}

	merged := make([]AssessmentRequirement, 0, len(base.AssessmentRequirements))
	matched := make(map[string]bool, len(assessmentMods))

	// Pass 1: walk base requirements, replacing fields where a modification
	// targets the requirement id. The id itself is never overridden.
	for _, req := range base.AssessmentRequirements {
		if am := findModification(req.ID, assessmentMods); am != nil {
			matched[am.TargetID] = true
			if am.Text != "" {
				req.Text = am.Text
			}
			if am.Applicability != nil {
				req.Applicability = am.Applicability
			}
		}
		merged = append(merged, req)
	}

	// Pass 2: append modifications that matched no base requirement, in
	// modification-list order. These become new requirements with exactly
	// the override fields.
	for _, am := range assessmentMods {
		if matched[am.TargetID] {
			continue
		}
		merged = append(merged, AssessmentRequirement{
			ID:            am.TargetID,
			Text:          am.Text,
			Applicability: am.Applicability,
		})
		matched[am.TargetID] = true
	}

	control.AssessmentRequirements = merged
	return &control
}

// findModification returns the first modification targeting the given
// requirement id, or nil.
func findModification(requirementID string, mods []AssessmentRequirementModification) *AssessmentRequirementModification {
	for i := range mods {
		if mods[i].TargetID == requirementID {
			return &mods[i]
		}
	}
	return nil
}

// isModified reports whether the requirement id appears as a modification
// target. Membership only; the override content is irrelevant.
func isModified(requirementID string, mods []AssessmentRequirementModification) bool {
	return findModification(requirementID, mods) != nil
}

// baseRequirementID synthesizes the Layer 2 requirement id a modified
// requirement derives from: the substring after the last dot of the
// requirement id, appended to the control id. Unmodified requirements keep
// their own id.
//
// Known limitation: ids using separators other than "." (or with extra dots
// beyond the control-id prefix) produce a suffix that may not name a real
// base requirement.
func baseRequirementID(controlID, requirementID string, modified bool) string {
	if !modified {
		return requirementID
	}
	suffix := requirementID
	if i := lastDot(requirementID); i >= 0 {
		suffix = requirementID[i+1:]
	}
	return controlID + "." + suffix
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}
