// Package artifact renders resolved assessment requirements into CALM
// control requirement documents and manages their on-disk store.
package artifact

// SchemaID is the fixed CALM control-requirement schema every generated
// document declares.
const SchemaID = "https://calm.finos.org/release/1.1/meta/control-requirement.json"

// Layer tags carried in document metadata.
const (
	Layer2 = "Layer 2"
	Layer3 = "Layer 3"
)

// Document is a control requirement artifact. Its identity URL ($id) is
// always derived by gemaraurl from the same ids that produced the document.
type Document struct {
	Schema      string    `json:"$schema"`
	ID          string    `json:"$id"`
	ControlID   string    `json:"control-id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Metadata    *Metadata `json:"metadata,omitempty"`
}

// Metadata wraps the gemara block. Extra vendor blocks may appear alongside
// it in externally produced documents; only the gemara block is validated.
type Metadata struct {
	Gemara *GemaraMetadata `json:"gemara,omitempty"`
}

// GemaraMetadata is the layer-scoped provenance block. Layer 3 documents
// carry PolicyID and BaseRequirement; Layer 2 documents carry CatalogID.
type GemaraMetadata struct {
	Layer           string           `json:"layer"`
	PolicyID        string           `json:"policy-id,omitempty"`
	ControlID       string           `json:"control-id,omitempty"`
	RequirementID   string           `json:"requirement-id"`
	CatalogID       string           `json:"catalog-id,omitempty"`
	Source          *Source          `json:"source,omitempty"`
	BaseRequirement *BaseRequirement `json:"base-requirement,omitempty"`
	Applicability   []string         `json:"applicability"`
}

// Source records where a requirement came from.
type Source struct {
	Type      string `json:"type"`
	PolicyID  string `json:"policy-id,omitempty"`
	ControlID string `json:"control-id,omitempty"`
}

// BaseRequirement references the Layer 2 requirement a Layer 3 document
// derives from.
type BaseRequirement struct {
	ReferenceURL string `json:"reference-url"`
	CatalogID    string `json:"catalog-id"`
}
