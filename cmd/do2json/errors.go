package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/aledsdavies/do2json/pkgs/errors"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitInvalidArguments = 1
	ExitIOError          = 2
	ExitParseError       = 3
	ExitCommandError     = 4
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Type    string // "usage", "config", "input", "output", "command", "parse"
	Message string
	Details string // Additional context
	Hint    string // How to fix it
	Code    int
	Cause   error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

func (e *CLIError) Unwrap() error {
	return e.Cause
}

// toCLIError classifies err by its error type and attaches a hint
func toCLIError(err error) *CLIError {
	var cliErr *CLIError
	if stderrors.As(err, &cliErr) {
		return cliErr
	}

	var typed *errors.Do2JSONError
	if !stderrors.As(err, &typed) {
		return &CLIError{Type: "usage", Message: err.Error(), Code: ExitInvalidArguments, Cause: err}
	}

	out := &CLIError{Message: err.Error(), Cause: err}
	switch typed.Type {
	case errors.ErrConfig:
		out.Type, out.Code = "config", ExitInvalidArguments
		out.Hint = "Set DO2JSON_DUMP (or pass --dump) and check the DO2JSON_* variables in your environment or .env"
	case errors.ErrCommandQuery:
		out.Type, out.Code = "config", ExitInvalidArguments
		out.Hint = "Templates can use {{.Target}}, {{.Depth}}, {{.Count}} and {{.Static}}"
	case errors.ErrInputRead:
		out.Type, out.Code = "input", ExitIOError
	case errors.ErrOutputWrite:
		out.Type, out.Code = "output", ExitIOError
		out.Hint = "The output was logged instead; check the path and its permissions"
	case errors.ErrCommandExecution:
		out.Type, out.Code = "command", ExitCommandError
		out.Hint = "Check that --debugger points at a console debugger and the dump file opens in it"
	case errors.ErrTimeout:
		out.Type, out.Code = "command", ExitCommandError
		out.Hint = "Raise --timeout or lower --depth"
	case errors.ErrSelectPath, errors.ErrSerialize, errors.ErrSchemaValidation:
		out.Type, out.Code = "parse", ExitParseError
	default:
		out.Type, out.Code = "unknown", ExitInvalidArguments
	}
	return out
}

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}
	formatCLIError(w, toCLIError(err), useColor)
}

func formatCLIError(w io.Writer, err *CLIError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Message)

	if err.Details != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", Colorize(err.Details, ColorGray, useColor))
	}

	if err.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), err.Hint)
	}
}
