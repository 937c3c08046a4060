package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: counter
stores:
  - name: items
    kind: set
  - name: tags
    kind: count
    source: items
    field: tag
steps:
  - patch: items
    added: [{id: a, tag: x}, {id: b, tag: x}]
  - patch: items
    removed: [{id: a}]
assertions:
  - type: counts
    store: tags
    expect: {x: 1}
  - type: event_count
    store: items
    count: 2
`

const failingScenario = `
name: broken
stores:
  - name: v
    kind: value
    value: 1
steps:
  - set: v
    value: 2
assertions:
  - type: value
    store: v
    expect: 3
`

// writeScenario writes content to dir/name and returns the path.
func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// executeCommand runs cmd with args and returns its output.
func executeCommand(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// testCommand returns a bare command whose output goes to buf.
func testCommand(buf *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	return cmd
}
