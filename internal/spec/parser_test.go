package spec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

const sampleSpec = `
name: three-node
nodes:
  - processor: semantiva.builtin.ValueSource
    parameters:
      value: 1.0
  - processor: semantiva.builtin.AddConst
    parameters:
      addend: 2.0
  - processor: semantiva.builtin.CollectProbe
    context_key: result
execution:
  strict: true
  timeout: 30
trace:
  detail: hash
`

func TestParse_ValidDocument(t *testing.T) {
	doc, err := Parse([]byte(sampleSpec))
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 3)
	require.Equal(t, "semantiva.builtin.ValueSource", doc.Nodes[0].Processor)
	require.Equal(t, 2.0, doc.Nodes[1].Parameters["addend"])
	require.Equal(t, "result", doc.Nodes[2].ContextKey)
	require.True(t, doc.Execution.Strict)
	require.Equal(t, 30, doc.Execution.Timeout)
	require.Equal(t, "hash", doc.Trace.Detail)
}

func TestParse_CollectsUnknownNodeKeys(t *testing.T) {
	doc, err := Parse([]byte(`
nodes:
  - processor: some.Processor
    retries: 3
    parameters:
      value: 1
`))
	require.NoError(t, err)
	require.Equal(t, []string{"retries"}, doc.Nodes[0].UnknownKeys)
}

func TestParse_RejectsEmptyNodes(t *testing.T) {
	_, err := Parse([]byte("nodes: []\n"))
	var specErr *semerrors.SpecError
	require.ErrorAs(t, err, &specErr)
}

func TestParse_RejectsInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("nodes:\n  - processor: [unterminated"))
	var specErr *semerrors.SpecError
	require.ErrorAs(t, err, &specErr)
}

func TestParse_RejectsBadTraceDetail(t *testing.T) {
	_, err := Parse([]byte(`
nodes:
  - processor: p.A
trace:
  detail: everything
`))
	var specErr *semerrors.SpecError
	require.ErrorAs(t, err, &specErr)
}

func TestParse_RunSpaceDuplicateKeysRejected(t *testing.T) {
	_, err := Parse([]byte(`
nodes:
  - processor: p.A
run_space:
  blocks:
    - mode: combinatorial
      context:
        seed: [1, 2]
    - mode: combinatorial
      context:
        seed: [3]
`))
	var specErr *semerrors.SpecError
	require.ErrorAs(t, err, &specErr)
	require.Contains(t, specErr.Error(), "seed")
}

func TestParse_ByPositionUnequalLengthsRejected(t *testing.T) {
	_, err := Parse([]byte(`
nodes:
  - processor: p.A
run_space:
  blocks:
    - mode: by_position
      context:
        lr: [0.1, 0.2]
        momentum: [0.9]
`))
	var specErr *semerrors.SpecError
	require.ErrorAs(t, err, &specErr)
}

func TestParseFile_MissingFile(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "absent.yaml"))
	var specErr *semerrors.SpecError
	require.ErrorAs(t, err, &specErr)
}

func TestParseFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSpec), 0o644))

	doc, err := ParseFile(path)
	require.NoError(t, err)
	require.Equal(t, "three-node", doc.Name)
}

func TestValidate_SweepRangeRules(t *testing.T) {
	_, err := Parse([]byte(`
nodes:
  - processor: p.A
    derive:
      parameter_sweep:
        target: addend
        variables:
          t: {lo: 1.0, hi: 0.0, steps: 5}
`))
	var specErr *semerrors.SpecError
	require.ErrorAs(t, err, &specErr)
	require.Contains(t, specErr.Error(), "hi < lo")
}
