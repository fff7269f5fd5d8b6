// Package gemaraurl derives and parses gemara:// identifiers for control
// requirement documents.
//
// Two grammars exist:
//
//	gemara://policies/<policy-id>/controls/<control-id>/requirements/<requirement-id>
//	gemara://controls/<catalog-id>/<control-id>/requirements/<requirement-id>
//
// The first (canonical) form addresses a requirement resolved under a
// Layer 3 policy; the second (base) form addresses the underlying Layer 2
// requirement. Documents generated by this module always carry URLs built
// here; identity URLs are never hand-authored.
package gemaraurl

import (
	"fmt"
	"regexp"
	"strings"
)

// Scheme is the URL scheme prefix shared by both grammars.
const Scheme = "gemara://"

// FileSuffix is appended to every sanitized requirement filename.
const FileSuffix = ".requirement.json"

// Pre-compiled patterns for reference extraction and canonical parsing.
var (
	// referencePattern matches any gemara:// reference embedded in a JSON
	// document: the scheme followed by one or more non-quote characters.
	referencePattern = regexp.MustCompile(`gemara://[^"]+`)

	// canonicalPattern captures the policy, control, and requirement ids
	// from a canonical URL.
	canonicalPattern = regexp.MustCompile(`^gemara://policies/([^/]+)/controls/([^/]+)/requirements/([^/]+)$`)

	// policyPrefixPattern captures only the policy id. Used when a URL is
	// known to be policy-scoped but may not match the full grammar.
	policyPrefixPattern = regexp.MustCompile(`^gemara://policies/([^/]+)/controls/`)
)

// Canonical returns the canonical URL for a requirement resolved under a
// policy.
func Canonical(policyID, controlID, requirementID string) string {
	return fmt.Sprintf("gemara://policies/%s/controls/%s/requirements/%s", policyID, controlID, requirementID)
}

// Base returns the base URL for the Layer 2 requirement a resolved
// requirement derives from.
func Base(catalogID, controlID, requirementID string) string {
	return fmt.Sprintf("gemara://controls/%s/%s/requirements/%s", catalogID, controlID, requirementID)
}

// Filename sanitizes a requirement id into a document filename: every dot
// becomes a hyphen, the result is lower-cased and suffixed with
// ".requirement.json". The same filename is used for canonical and base
// placements; the caller supplies the directory.
func Filename(requirementID string) string {
	return strings.ToLower(strings.ReplaceAll(requirementID, ".", "-")) + FileSuffix
}

// Extract returns every gemara:// reference found in raw document text.
// Duplicates within a single document are collapsed; cross-document
// deduplication is the caller's concern.
func Extract(content string) []string {
	matches := referencePattern.FindAllString(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var urls []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			urls = append(urls, m)
		}
	}
	return urls
}

// ParseCanonical parses a canonical URL back into its (policy, control,
// requirement) triple. Returns false when the URL does not match the
// canonical grammar.
func ParseCanonical(url string) (policyID, controlID, requirementID string, ok bool) {
	m := canonicalPattern.FindStringSubmatch(url)
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}

// PolicyID extracts the policy id from a policy-scoped URL. Returns false
// when the URL is not policy-scoped.
func PolicyID(url string) (string, bool) {
	m := policyPrefixPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}
