package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/ftsq"
)

// Exit codes of the ftsq command.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // engine errors, writer timeouts, I/O
	ExitCommandError = 2 // bad arguments, settings, schema, field or query errors
)

// ErrCodeGeneric is reported for errors that carry no ftsq code.
const ErrCodeGeneric = "ERROR"

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError caused by err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code err asks for; ExitFailure unless err
// wraps an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; Writer when nil
	Verbose   bool
}

// CLIResponse is the envelope of every JSON result.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes a failed command in JSON output.
type CLIError struct {
	Code    string `json:"code"` // ftsq error code or ERROR
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// encode writes v as one JSON line. Highlight markers such as <b> are
// written as is.
func (f *OutputFormatter) encode(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Success writes data. Text output prints it with fmt.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes an error result. Details are shown in text output only
// when verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if details != nil && f.Verbose {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns it as an ExitError. Validation errors
// (schema, field, query) exit with ExitCommandError, everything else with
// ExitFailure.
func (f *OutputFormatter) Fail(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		_ = f.Error(ErrCodeGeneric, exitErr.Error(), nil)
		return exitErr
	}

	code, message, exit := ErrCodeGeneric, err.Error(), ExitFailure
	var ferr *ftsq.Error
	if errors.As(err, &ferr) {
		code, message = string(ferr.Code), ferr.Message
		if ferr.Field != "" {
			message += fmt.Sprintf(" (field=%s)", ferr.Field)
		}
		switch {
		case ftsq.IsSchemaError(err), ftsq.IsFieldError(err), ftsq.IsQueryError(err):
			exit = ExitCommandError
		}
	}
	_ = f.Error(code, message, errorDetails(ferr))
	return WrapExitError(exit, "", err)
}

func errorDetails(ferr *ftsq.Error) any {
	if ferr == nil || ferr.Err == nil {
		return nil
	}
	return ferr.Err.Error()
}

// Documents outputs search results: a JSON array, or one block of
// "key: value" lines per document.
func (f *OutputFormatter) Documents(docs []ftsq.Document) error {
	if f.Format == "json" {
		if docs == nil {
			docs = []ftsq.Document{}
		}
		return f.Success(docs)
	}
	for i, d := range docs {
		if i > 0 {
			fmt.Fprintln(f.Writer)
		}
		for _, k := range d.Keys() {
			fmt.Fprintf(f.Writer, "%s: %s\n", k, oneLine(d.String(k)))
		}
	}
	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// VerboseLog writes a diagnostic line when verbose.
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
