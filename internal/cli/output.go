package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/fieldcert/fieldcert/internal/cert"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Domain failure (claim lost, invalid transition, ...)
	ExitCommandError = 2 // Command error (bad flags, missing config, store unreachable)
)

// ExitError represents an error with a specific exit code.
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

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Domain errors map to ExitFailure; anything unclassified is a command error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if cert.CodeOf(err) != "" {
		return ExitFailure
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Print renders v: as indented JSON in json mode, or via the text function
// in text mode.
func (f *OutputFormatter) Print(v any, text func(io.Writer)) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(f.Writer)
	return nil
}

// statusColor maps batch statuses to terminal colors for text output.
func statusColor(s cert.BatchStatus) *color.Color {
	switch s {
	case cert.BatchCertified:
		return color.New(color.FgGreen)
	case cert.BatchRejected:
		return color.New(color.FgRed)
	case cert.BatchUnderInspection:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

// fprintStatus writes a colored status label.
func fprintStatus(w io.Writer, s cert.BatchStatus) {
	statusColor(s).Fprint(w, string(s))
}
