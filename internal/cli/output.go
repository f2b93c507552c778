package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // invalid catalogs, nothing to report
	ExitCommandError = 2 // bad flags, unreadable files
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Plain errors map to
// ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the JSON envelope of every command.
type Response struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Success writes data as a JSON envelope, or calls text for the text format.
func (f *OutputFormatter) Success(data any, text func(io.Writer) error) error {
	if f.Format == "json" {
		return writeJSON(f.Writer, Response{Status: "ok", Data: data})
	}
	return text(f.Writer)
}

// Fail reports err in the configured format and returns it as an
// ExitError with code.
func (f *OutputFormatter) Fail(code int, message string, err error) error {
	exitErr := WrapExitError(code, message, err)
	if f.Format == "json" {
		_ = writeJSON(f.Writer, Response{Status: "error", Error: exitErr.Error()})
	} else {
		fmt.Fprintf(f.Writer, "✗ %s\n", exitErr.Error())
	}
	return exitErr
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
