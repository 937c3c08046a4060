package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"failure", NewExitError(ExitFailure, "scenario counter failed"), ExitFailure},
		{"command error", WrapExitError(ExitCommandError, "failed to open database", errors.New("disk")), ExitCommandError},
		{"wrapped", fmt.Errorf("run: %w", NewExitError(ExitFailure, "x")), ExitFailure},
		{"cobra error", errors.New(`unknown flag: --bogus`), ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("no such table: runs")
	err := WrapExitError(ExitCommandError, "failed to read run", cause)

	assert.Equal(t, "failed to read run: no such table: runs", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "scenario failed", NewExitError(ExitFailure, "scenario failed").Error())
}

func TestOutputFormatter_ResultOK(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Result(RunResult{Scenario: "catalog", Pass: true, Deltas: 12}, "run-1", nil))

	var resp struct {
		Status string    `json:"status"`
		RunID  string    `json:"run_id"`
		Data   RunResult `json:"data"`
		Error  *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, 12, resp.Data.Deltas)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_ResultFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	failure := &CLIError{Code: ResultDeterminism, Message: "determinism verification failed"}
	require.NoError(t, f.Result(ReplayResult{Scenario: "catalog"}, "", failure))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ResultDeterminism, resp.Error.Code)
	assert.NotContains(t, buf.String(), "run_id", "empty run IDs are omitted")
}

func TestOutputFormatter_ErrorJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	details := map[string]string{"file": "catalog.yaml"}
	require.NoError(t, f.Error(ErrCodeNotFound, "path not found: catalog.yaml", details))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_ErrorText(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, f.Error(ErrCodeCycle, "cycle: a -> b -> a", []string{"a", "b"}))
			assert.Contains(t, buf.String(), "Error [E008]: cycle: a -> b -> a")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details: [a b]")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: true}

	f.VerboseLog("%s: %d stores", "catalog.yaml", 7)
	assert.Empty(t, out.String())
	assert.Equal(t, "catalog.yaml: 7 stores\n", diag.String())

	f.Verbose = false
	diag.Reset()
	f.VerboseLog("ignored")
	assert.Empty(t, diag.String())
}

func TestOutputFormatter_VerboseLogFallsBackToWriter(t *testing.T) {
	out := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: out, Verbose: true}

	f.VerboseLog("loaded %d scenario(s)", 2)
	assert.Equal(t, "loaded 2 scenario(s)\n", out.String())
}
