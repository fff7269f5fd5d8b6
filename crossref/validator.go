// Package crossref validates that every gemara:// reference embedded in an
// architecture corpus resolves to an existing, schema-conformant control
// requirement document with a matching identity.
package crossref

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/c360studio/calmctl/artifact"
	"github.com/c360studio/calmctl/gemaraurl"
)

// Kind classifies a validation diagnostic.
type Kind string

const (
	KindMissingArtifact  Kind = "missing-artifact"
	KindIdentityMismatch Kind = "identity-mismatch"
	KindMissingField     Kind = "missing-field"
	KindPolicyIDMismatch Kind = "policy-id-mismatch"
)

// Issue is a single diagnostic tied to one extracted URL.
type Issue struct {
	Kind    Kind   `json:"kind"`
	URL     string `json:"url"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Outcome classifies a validation run. Warnings never affect the outcome.
type Outcome string

const (
	// OutcomeNoReferences means the corpus contained no gemara:// URLs,
	// which counts as success.
	OutcomeNoReferences Outcome = "no-references"
	OutcomeAllValid     Outcome = "all-valid"
	OutcomeHasErrors    Outcome = "has-errors"
)

// Report is the immutable result of one validation run. Errors and warnings
// are ordered by URL so runs are directly comparable.
type Report struct {
	RunID    string   `json:"run-id"`
	URLs     []string `json:"urls"`
	Errors   []Issue  `json:"errors,omitempty"`
	Warnings []Issue  `json:"warnings,omitempty"`
}

// Outcome returns the run classification.
func (r *Report) Outcome() Outcome {
	switch {
	case len(r.URLs) == 0:
		return OutcomeNoReferences
	case len(r.Errors) > 0:
		return OutcomeHasErrors
	default:
		return OutcomeAllValid
	}
}

// Validator checks extracted references against a document corpus. It owns
// no I/O: both corpora are supplied in memory by the caller.
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a validator.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// ExtractURLs collects every gemara:// reference across the architecture
// documents into a sorted, deduplicated list.
func ExtractURLs(docs []ArchitectureDocument) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, doc := range docs {
		for _, url := range gemaraurl.Extract(doc.Content) {
			if !seen[url] {
				seen[url] = true
				urls = append(urls, url)
			}
		}
	}
	sort.Strings(urls)
	return urls
}

// Validate resolves each URL against the corpus and accumulates diagnostics.
// URLs are processed in ascending lexical order and nothing short-circuits:
// one error per unresolvable URL, one error per document failing a required
// field, one warning per Layer 3 policy-id mismatch.
func (v *Validator) Validate(urls []string, corpus []artifact.Stored) *Report {
	sorted := make([]string, len(urls))
	copy(sorted, urls)
	sort.Strings(sorted)

	report := &Report{
		RunID: uuid.New().String(),
		URLs:  sorted,
	}

	for _, url := range sorted {
		stored, found := findByIdentity(url, corpus)
		if !found {
			report.Errors = append(report.Errors, Issue{
				Kind:    KindMissingArtifact,
				URL:     url,
				Message: fmt.Sprintf("missing control file for %s", url),
			})
			continue
		}

		if issue := validateDocument(url, stored); issue != nil {
			report.Errors = append(report.Errors, *issue)
			continue
		}

		v.logger.Debug("Found control file", "url", url, "path", stored.Path)

		if warning := checkPolicyID(url, stored); warning != nil {
			report.Warnings = append(report.Warnings, *warning)
		}
	}

	v.logger.Info("Cross-reference validation complete",
		"run_id", report.RunID,
		"urls", len(report.URLs),
		"errors", len(report.Errors),
		"warnings", len(report.Warnings),
		"outcome", string(report.Outcome()))

	return report
}

// findByIdentity locates the document whose $id equals the URL. Full scan:
// acceptable at expected corpus sizes, O(urls × documents) overall.
func findByIdentity(url string, corpus []artifact.Stored) (artifact.Stored, bool) {
	for _, stored := range corpus {
		if stored.Doc.ID == url {
			return stored, true
		}
	}
	return artifact.Stored{}, false
}

// validateDocument checks structural conformance of a matched document.
// Returns the first violation only, so each document contributes at most
// one error per URL.
func validateDocument(url string, stored artifact.Stored) *Issue {
	doc := stored.Doc

	// Defensive: lookup matched on $id, so a mismatch means the corpus
	// mutated underneath us or the lookup is corrupted.
	if doc.ID != url {
		return &Issue{
			Kind:    KindIdentityMismatch,
			URL:     url,
			Path:    stored.Path,
			Message: fmt.Sprintf("$id mismatch: expected %q, found %q", url, doc.ID),
		}
	}

	if field := missingField(doc); field != "" {
		return &Issue{
			Kind:    KindMissingField,
			URL:     url,
			Path:    stored.Path,
			Message: "missing required field: " + field,
		}
	}
	return nil
}

// missingField returns the name of the first absent required field, or "".
// The always-required set is control-id, metadata, metadata.gemara, and
// within the gemara block requirement-id, source, and applicability. Layer 3
// additionally requires policy-id and base-requirement; Layer 2 requires
// catalog-id.
func missingField(doc *artifact.Document) string {
	if doc.ControlID == "" {
		return "control-id"
	}
	if doc.Metadata == nil {
		return "metadata"
	}
	gemara := doc.Metadata.Gemara
	if gemara == nil {
		return "metadata.gemara"
	}
	if gemara.RequirementID == "" {
		return "metadata.gemara.requirement-id"
	}
	if gemara.Source == nil {
		return "metadata.gemara.source"
	}
	if gemara.Applicability == nil {
		return "metadata.gemara.applicability"
	}

	switch gemara.Layer {
	case artifact.Layer3:
		if gemara.PolicyID == "" {
			return "metadata.gemara.policy-id"
		}
		if gemara.BaseRequirement == nil {
			return "metadata.gemara.base-requirement"
		}
	case artifact.Layer2:
		if gemara.CatalogID == "" {
			return "metadata.gemara.catalog-id"
		}
	}
	return ""
}

// checkPolicyID compares the policy id embedded in a canonical URL against
// the document's metadata. A mismatch is a warning, never an error.
func checkPolicyID(url string, stored artifact.Stored) *Issue {
	gemara := stored.Doc.Metadata.Gemara
	if gemara.Layer != artifact.Layer3 {
		return nil
	}

	expected, ok := gemaraurl.PolicyID(url)
	if !ok {
		return nil
	}
	if gemara.PolicyID == expected {
		return nil
	}
	return &Issue{
		Kind:    KindPolicyIDMismatch,
		URL:     url,
		Path:    stored.Path,
		Message: fmt.Sprintf("policy id mismatch: expected %q, found %q", expected, gemara.PolicyID),
	}
}
