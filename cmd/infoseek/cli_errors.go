// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
)

// CLIError wraps AgentError with a hint for the user.
type CLIError struct {
	*errors.AgentError
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(ae *errors.AgentError, hint string) *CLIError {
	return &CLIError{AgentError: ae, Hint: hint}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.AgentError == nil {
		return "unknown error"
	}
	msg := e.AgentError.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the typed error.
func (e *CLIError) Unwrap() error {
	if e.AgentError == nil {
		return nil
	}
	return e.AgentError
}

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(arg, reason string) *CLIError {
	ae := errors.New(errors.CodeInvalidInput, fmt.Sprintf("invalid argument: %s", reason), nil).
		WithContext("argument", arg).
		WithRecoverable(false)
	return NewCLIError(ae, "run 'infoseek help' for usage information")
}

// NewConfigError creates a configuration error with CLI hints.
func NewConfigError(err error, configPath string) *CLIError {
	ae := errors.New(errors.CodeInvalidInput, "configuration error", err).
		WithContext("config_path", configPath).
		WithRecoverable(false)

	hint := "check your configuration file syntax"
	if configPath != "" {
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(ae, hint)
}

// NewFatalError reports an unrecoverable upstream condition.
func NewFatalError(err error) *CLIError {
	ae := errors.As(err)
	return NewCLIError(ae, "the provider refused further requests; finished results are kept and the run can be resumed later")
}

// printError writes err to w, as JSON when asked to.
func printError(w io.Writer, err error, asJSON bool) {
	var cli *CLIError
	switch e := err.(type) {
	case *CLIError:
		cli = e
	default:
		if errors.IsFatal(err) {
			cli = NewFatalError(err)
		}
	}

	if asJSON {
		payload := map[string]string{"code": "UNKNOWN", "message": err.Error()}
		if cli != nil && cli.AgentError != nil {
			payload["code"] = string(cli.Code)
			payload["message"] = cli.AgentError.Error()
			payload["hint"] = cli.Hint
		}
		b, _ := json.Marshal(map[string]any{"error": payload})
		fmt.Fprintln(w, string(b))
		return
	}
	if cli != nil && cli.AgentError != nil {
		fmt.Fprintf(w, "Error [%s]: %s\n", cli.Code, cli.AgentError.Error())
		if cli.Hint != "" {
			fmt.Fprintf(w, "  Hint: %s\n", cli.Hint)
		}
		return
	}
	fmt.Fprintf(w, "Error: %s\n", err.Error())
}
