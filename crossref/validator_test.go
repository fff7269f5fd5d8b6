package crossref_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/calmctl/artifact"
	"github.com/c360studio/calmctl/crossref"
	"github.com/c360studio/calmctl/gemaraurl"
	"github.com/c360studio/calmctl/policy"
)

// layer3Doc builds a conformant Layer 3 document for the given ids.
func layer3Doc(policyID, controlID, requirementID string) *artifact.Document {
	return artifact.Build(policy.ResolvedRequirement{
		RequirementID:     requirementID,
		ControlID:         controlID,
		CatalogID:         "FINOS-CCC",
		PolicyID:          policyID,
		Text:              "text",
		Applicability:     []string{"default"},
		BaseRequirementID: requirementID,
		CanonicalURL:      gemaraurl.Canonical(policyID, controlID, requirementID),
		BaseURL:           gemaraurl.Base("FINOS-CCC", controlID, requirementID),
		ControlTitle:      "Control",
	})
}

func stored(doc *artifact.Document) artifact.Stored {
	return artifact.Stored{Path: gemaraurl.Filename(doc.ControlID), Doc: doc}
}

func TestExtractURLs(t *testing.T) {
	docs := []crossref.ArchitectureDocument{
		{Path: "a.arch.json", Content: `{"req": "gemara://policies/p/controls/c/requirements/c.TR02"}`},
		{Path: "b.arch.json", Content: `{"req": "gemara://policies/p/controls/c/requirements/c.TR01",
			"again": "gemara://policies/p/controls/c/requirements/c.TR02"}`},
	}

	urls := crossref.ExtractURLs(docs)
	require.Len(t, urls, 2, "duplicates across documents collapse")
	assert.Equal(t, "gemara://policies/p/controls/c/requirements/c.TR01", urls[0], "ascending lexical order")
	assert.Equal(t, "gemara://policies/p/controls/c/requirements/c.TR02", urls[1])
}

func TestValidate_NoReferences(t *testing.T) {
	report := crossref.NewValidator(nil).Validate(nil, nil)

	assert.Equal(t, crossref.OutcomeNoReferences, report.Outcome())
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
	assert.NotEmpty(t, report.RunID)
}

func TestValidate_AllValid(t *testing.T) {
	doc := layer3Doc("p1", "CCC.C01", "CCC.C01.TR01")
	report := crossref.NewValidator(nil).Validate([]string{doc.ID}, []artifact.Stored{stored(doc)})

	assert.Equal(t, crossref.OutcomeAllValid, report.Outcome())
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
}

func TestValidate_MissingArtifact(t *testing.T) {
	doc := layer3Doc("p1", "CCC.C01", "CCC.C01.TR01")
	missing := gemaraurl.Canonical("p1", "CCC.C01", "CCC.C01.TR99")

	report := crossref.NewValidator(nil).Validate(
		[]string{doc.ID, missing},
		[]artifact.Stored{stored(doc)},
	)

	assert.Equal(t, crossref.OutcomeHasErrors, report.Outcome())
	require.Len(t, report.Errors, 1, "exactly one error per unresolvable URL")
	assert.Equal(t, crossref.KindMissingArtifact, report.Errors[0].Kind)
	assert.Equal(t, missing, report.Errors[0].URL)
}

func TestValidate_MissingFields(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(*artifact.Document)
		wantField string
	}{
		{"control-id", func(d *artifact.Document) { d.ControlID = "" }, "control-id"},
		{"metadata", func(d *artifact.Document) { d.Metadata = nil }, "metadata"},
		{"gemara block", func(d *artifact.Document) { d.Metadata.Gemara = nil }, "metadata.gemara"},
		{"requirement-id", func(d *artifact.Document) { d.Metadata.Gemara.RequirementID = "" }, "metadata.gemara.requirement-id"},
		{"source", func(d *artifact.Document) { d.Metadata.Gemara.Source = nil }, "metadata.gemara.source"},
		{"applicability", func(d *artifact.Document) { d.Metadata.Gemara.Applicability = nil }, "metadata.gemara.applicability"},
		{"layer 3 policy-id", func(d *artifact.Document) { d.Metadata.Gemara.PolicyID = "" }, "metadata.gemara.policy-id"},
		{"layer 3 base-requirement", func(d *artifact.Document) { d.Metadata.Gemara.BaseRequirement = nil }, "metadata.gemara.base-requirement"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := layer3Doc("p1", "CCC.C01", "CCC.C01.TR01")
			tc.mutate(doc)

			report := crossref.NewValidator(nil).Validate([]string{doc.ID}, []artifact.Stored{stored(doc)})

			assert.Equal(t, crossref.OutcomeHasErrors, report.Outcome())
			require.Len(t, report.Errors, 1, "exactly one error per failing document")
			assert.Equal(t, crossref.KindMissingField, report.Errors[0].Kind)
			assert.Contains(t, report.Errors[0].Message, tc.wantField)
		})
	}
}

func TestValidate_Layer2RequiresCatalogID(t *testing.T) {
	url := gemaraurl.Base("FINOS-CCC", "CCC.C01", "CCC.C01.TR01")
	doc := &artifact.Document{
		Schema:      artifact.SchemaID,
		ID:          url,
		ControlID:   "CCC.C01.TR01",
		Name:        "Base Control - CCC.C01.TR01",
		Description: "text",
		Metadata: &artifact.Metadata{
			Gemara: &artifact.GemaraMetadata{
				Layer:         artifact.Layer2,
				RequirementID: "CCC.C01.TR01",
				Source:        &artifact.Source{Type: "catalog"},
				Applicability: []string{"default"},
			},
		},
	}

	t.Run("missing catalog-id is an error", func(t *testing.T) {
		report := crossref.NewValidator(nil).Validate([]string{url}, []artifact.Stored{stored(doc)})
		require.Len(t, report.Errors, 1)
		assert.Contains(t, report.Errors[0].Message, "metadata.gemara.catalog-id")
	})

	t.Run("valid with catalog-id", func(t *testing.T) {
		withCatalog := *doc
		gemara := *doc.Metadata.Gemara
		gemara.CatalogID = "FINOS-CCC"
		withCatalog.Metadata = &artifact.Metadata{Gemara: &gemara}

		report := crossref.NewValidator(nil).Validate([]string{url}, []artifact.Stored{stored(&withCatalog)})
		assert.Equal(t, crossref.OutcomeAllValid, report.Outcome())
		assert.Empty(t, report.Warnings, "layer 2 URLs get no policy-id check")
	})
}

func TestValidate_PolicyIDMismatchIsWarning(t *testing.T) {
	doc := layer3Doc("p1", "CCC.C01", "CCC.C01.TR01")
	doc.Metadata.Gemara.PolicyID = "someone-else"

	report := crossref.NewValidator(nil).Validate([]string{doc.ID}, []artifact.Stored{stored(doc)})

	assert.Equal(t, crossref.OutcomeAllValid, report.Outcome(), "warnings never fail a run")
	assert.Empty(t, report.Errors)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, crossref.KindPolicyIDMismatch, report.Warnings[0].Kind)
	assert.Contains(t, report.Warnings[0].Message, `expected "p1"`)
	assert.Contains(t, report.Warnings[0].Message, `found "someone-else"`)
}

func TestValidate_DeterministicOrder(t *testing.T) {
	urls := []string{
		gemaraurl.Canonical("p1", "c", "c.TR03"),
		gemaraurl.Canonical("p1", "c", "c.TR01"),
		gemaraurl.Canonical("p1", "c", "c.TR02"),
	}

	report := crossref.NewValidator(nil).Validate(urls, nil)

	require.Len(t, report.Errors, 3, "no short-circuiting")
	assert.Equal(t, urls[1], report.Errors[0].URL)
	assert.Equal(t, urls[2], report.Errors[1].URL)
	assert.Equal(t, urls[0], report.Errors[2].URL)
}

func TestValidate_MixedErrorsAndWarnings(t *testing.T) {
	valid := layer3Doc("p1", "CCC.C01", "CCC.C01.TR01")
	mismatched := layer3Doc("p1", "CCC.C01", "CCC.C01.TR02")
	mismatched.Metadata.Gemara.PolicyID = "other"
	broken := layer3Doc("p1", "CCC.C01", "CCC.C01.TR03")
	broken.ControlID = ""
	missing := gemaraurl.Canonical("p1", "CCC.C01", "CCC.C01.TR04")

	report := crossref.NewValidator(nil).Validate(
		[]string{valid.ID, mismatched.ID, broken.ID, missing},
		[]artifact.Stored{stored(valid), stored(mismatched), stored(broken)},
	)

	assert.Equal(t, crossref.OutcomeHasErrors, report.Outcome())
	assert.Len(t, report.Errors, 2)
	assert.Len(t, report.Warnings, 1)
}
