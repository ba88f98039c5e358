// Package tool implements the function / tool calling subsystem that lets agents
// invoke structured capabilities (lookups, orders, refunds, handoffs) with schema
// validated arguments, consistent error handling and metadata for model guidance.
package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/shopmesh/core"
	"github.com/hupe1980/shopmesh/internal/util"
)

// Error codes carried by ToolError.
const (
	// CodeValidation marks malformed arguments (programming error, fatal for the turn).
	CodeValidation = "VALIDATION_ERROR"
	// CodeExecution marks collaborator failures (absorbed conversationally).
	CodeExecution = "EXECUTION_ERROR"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools are bound to agents at construction time. The orchestration loop
// resolves the tool by name, decodes the model supplied JSON arguments and
// invokes Call. The result is a closed union: core.TextResult for plain text
// and core.HandoffResult to transfer control to another agent.
//
// Tool implementations should:
//   - Provide clear, descriptive snake_case names and descriptions
//   - Define a proper JSON schema for parameters
//   - Return errors for collaborator failures instead of panicking
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the model to help it understand when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with decoded arguments.
	Call(ctx context.Context, args map[string]any) (core.Result, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
	cause   error
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap exposes the underlying cause. Validation failures unwrap to
// core.ErrInvalidArguments.
func (e *ToolError) Unwrap() error {
	if e.Code == CodeValidation {
		return core.ErrInvalidArguments
	}
	return e.cause
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// IsValidationError reports whether err is a ToolError with CodeValidation.
func IsValidationError(err error) bool {
	var te *ToolError
	return errors.As(err, &te) && te.Code == CodeValidation
}
