package cli

import (
	"errors"
	"fmt"

	ferrors "tabula-hq/formula/pkg/formula/errors"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitFormula = 2
	ExitConfig  = 3
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config error: " + e.Message
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode returns the process exit status for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}

	var list *ferrors.ErrorList
	if errors.As(err, &list) {
		return ExitFormula
	}
	if _, ok := ferrors.KindOf(err); ok {
		return ExitFormula
	}
	return ExitFailure
}
