package artifact

import (
	"github.com/c360studio/calmctl/policy"
)

// Build renders a resolved requirement into a Layer 3 control requirement
// document. The identity URL and base reference URL come straight off the
// resolved requirement, which computed them via gemaraurl. Documents are
// never hand-addressed.
//
// Layer 2 documents are not emitted here: base controls come from the
// catalog provider and are published by the catalog's own tooling.
func Build(r policy.ResolvedRequirement) *Document {
	applicability := r.Applicability
	if applicability == nil {
		// The applicability field is required by validation, so an absent
		// set serializes as [] rather than disappearing.
		applicability = []string{}
	}

	return &Document{
		Schema:      SchemaID,
		ID:          r.CanonicalURL,
		ControlID:   r.RequirementID,
		Name:        r.ControlTitle + " - " + r.RequirementID,
		Description: r.Text,
		Metadata: &Metadata{
			Gemara: &GemaraMetadata{
				Layer:         Layer3,
				PolicyID:      r.PolicyID,
				ControlID:     r.ControlID,
				RequirementID: r.RequirementID,
				Source: &Source{
					Type:      "policy",
					PolicyID:  r.PolicyID,
					ControlID: r.ControlID,
				},
				BaseRequirement: &BaseRequirement{
					ReferenceURL: r.BaseURL,
					CatalogID:    r.CatalogID,
				},
				Applicability: applicability,
			},
		},
	}
}
