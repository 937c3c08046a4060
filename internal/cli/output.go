package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Scenario passed, files valid, trace reproduced
	ExitFailure      = 1 // A step, assertion, golden file or replay did not hold
	ExitCommandError = 2 // Unreadable file, bad path, database error
)

// Result error codes carried in the JSON envelope when a command ran but
// its outcome was negative.
const (
	ResultScenarioFailed = "E_SCENARIO_FAILED"
	ResultTestFailed     = "E_TEST_FAILED"
	ResultDeterminism    = "E_DETERMINISM"
)

// ExitError is an error carrying the process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError creates an ExitError around err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Errors that are not
// ExitErrors (cobra's own argument and flag errors) are command errors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; keeps JSON on Writer parseable
	Verbose   bool
}

// newFormatter returns the formatter for cmd under the global flags.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
	RunID  string    `json:"run_id,omitempty"` // trace log run, when one was recorded
}

// CLIError describes why a command failed or produced a negative result.
type CLIError struct {
	Code    string `json:"code"` // E001-E009 or a Result* code
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// dbError reports a trace log failure in the JSON envelope when the
// output is JSON, and returns it as a command error.
func dbError(opts *RootOptions, cmd *cobra.Command, message string, err error) error {
	if opts.Format == "json" {
		_ = newFormatter(opts, cmd).Error(ErrCodeDatabase, fmt.Sprintf("%s: %v", message, err), nil)
	}
	return WrapExitError(ExitCommandError, message, err)
}

// JSON writes resp as indented JSON.
func (f *OutputFormatter) JSON(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// Result writes data in an envelope whose status is "error" when failure
// is non-nil. Only used for JSON output; text output is command specific.
func (f *OutputFormatter) Result(data any, runID string, failure *CLIError) error {
	resp := CLIResponse{Status: "ok", Data: data, RunID: runID}
	if failure != nil {
		resp.Status = "error"
		resp.Error = failure
	}
	return f.JSON(resp)
}

// Error reports a command error. Details are printed in text mode only
// when verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.Result(nil, "", &CLIError{Code: code, Message: message, Details: details})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog prints a diagnostic line when verbose, on ErrWriter if set.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
