package shared

import (
	"errors"
	"fmt"
	"os"

	pkgerrors "github.com/stagegate/stagegate/pkg/errors"
)

// Exit codes for the stagegate CLI.
const (
	ExitSuccess           = 0
	ExitEvaluationFailed  = 1
	ExitInvalidDefinition = 2
	ExitMissingInput      = 3
)

// ExitError is an error that carries an exit code.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewEvaluationError wraps a failure while evaluating elements.
func NewEvaluationError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitEvaluationFailed, Message: msg, Cause: cause}
}

// NewInvalidDefinitionError wraps a definition that cannot be loaded or built.
func NewInvalidDefinitionError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitInvalidDefinition, Message: msg, Cause: cause}
}

// NewMissingInputError wraps missing required command input.
func NewMissingInputError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitMissingInput, Message: msg, Cause: cause}
}

// HandleExitError prints the error and exits with its code, defaulting to
// ExitEvaluationFailed for plain errors. A nil error is a no-op.
func HandleExitError(err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "Error:", err.Error())
	printSuggestion(err)

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	os.Exit(ExitEvaluationFailed)
}

// printSuggestion surfaces the suggestion attached to validation errors
// anywhere in the chain.
func printSuggestion(err error) {
	var verr *pkgerrors.ValidationError
	if errors.As(err, &verr) && verr.Suggestion != "" {
		fmt.Fprintln(os.Stderr, "Suggestion:", verr.Suggestion)
	}
}
