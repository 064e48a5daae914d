package mcp

import "fmt"

// JSON-RPC error codes. The -327xx block is the standard taxonomy; the
// -320xx block is server-defined.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeModeNotFound    = -32001
	CodeTaskNotFound    = -32002
	CodeSessionExpired  = -32003
	CodeValidationError = -32004
	CodeToolRestriction = -32005
	CodeFileRestriction = -32006
)

// Error is a protocol-family error: it already knows the wire code it
// should be reported with. The router writes it out verbatim.
type Error struct {
	Code    int
	Message string
	Data    any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// ValidationError is an input-validation failure raised by a handler:
// a missing argument, malformed slug/session-id/URI, or unknown
// mode/session/subresource. The router reports it as VALIDATION_ERROR
// with the reason as message and any structured detail as data.
type ValidationError struct {
	Reason string
	Data   any
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Validationf builds a ValidationError with a formatted reason.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
