package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const policyYAML = `metadata:
  id: acme-baseline
  title: Acme Baseline Policy
control-references:
  - reference-id: FINOS-CCC
    control-modifications:
      - target-id: CCC.C01
        modification-type: enhancement
        title: Enhanced Encryption
        objective: Enhanced encryption for cloud infrastructure
    assessment-requirement-modifications:
      - target-id: CCC.C01.TR01
        text: All HTTPS communications MUST use TLS 1.3 or higher
        applicability:
          - default
`

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	p, err := LoadFile(writePolicyFile(t, policyYAML))
	require.NoError(t, err)

	assert.Equal(t, "acme-baseline", p.Metadata.ID)
	require.Len(t, p.ControlReferences, 1)

	ref := p.ControlReferences[0]
	assert.Equal(t, "FINOS-CCC", ref.ReferenceID)
	require.Len(t, ref.ControlModifications, 1)
	assert.Equal(t, "CCC.C01", ref.ControlModifications[0].TargetID)
	assert.Equal(t, "Enhanced Encryption", ref.ControlModifications[0].Title)
	require.Len(t, ref.AssessmentRequirementModifications, 1)
	assert.Equal(t, []string{"default"}, ref.AssessmentRequirementModifications[0].Applicability)
}

func TestLoadFile_MissingID(t *testing.T) {
	_, err := LoadFile(writePolicyFile(t, "metadata:\n  title: no id\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPolicyIDRequired)
}

func TestLoadFile_MissingReferenceID(t *testing.T) {
	content := `metadata:
  id: p1
control-references:
  - control-modifications:
      - target-id: CCC.C01
`
	_, err := LoadFile(writePolicyFile(t, content))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReferenceIDRequired)
}

func TestLoadFile_NotYAML(t *testing.T) {
	_, err := LoadFile(writePolicyFile(t, "{not: [valid"))
	assert.Error(t, err)
}

func TestValidate_TargetIDRequired(t *testing.T) {
	p := &Policy{
		Metadata: Metadata{ID: "p1"},
		ControlReferences: []ControlReference{
			{
				ReferenceID:          "CAT",
				ControlModifications: []ControlModification{{Title: "no target"}},
			},
		},
	}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target-id is required")
}
