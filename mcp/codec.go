package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Parse decodes one line into a Request. Frames that are not valid JSON
// fail with a parse error; frames that are valid JSON but not an object
// fail with an invalid-request error. Neither reaches a handler.
func Parse(line []byte) (*Request, *Error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return nil, &Error{Code: CodeParseError, Message: "Parse error", Data: "empty payload"}
	}
	if !utf8.Valid(trimmed) {
		return nil, &Error{Code: CodeParseError, Message: "Parse error", Data: "payload is not valid UTF-8"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		if json.Valid(trimmed) {
			return nil, &Error{Code: CodeInvalidRequest, Message: "Invalid Request", Data: "payload must be a JSON object"}
		}
		return nil, &Error{Code: CodeParseError, Message: "Parse error", Data: err.Error()}
	}

	req := &Request{}
	if raw, ok := fields["jsonrpc"]; ok {
		// A mistyped version field is caught by Validate below.
		_ = json.Unmarshal(raw, &req.JSONRPC)
	}
	if raw, ok := fields["method"]; ok {
		req.hasMethod = true
		if err := json.Unmarshal(raw, &req.Method); err == nil {
			req.methodIsString = true
		}
	}
	if raw, ok := fields["id"]; ok {
		req.ID = raw
	}
	if raw, ok := fields["params"]; ok {
		req.Params = raw
	}
	return req, nil
}

// Validate checks the envelope fields of a parsed frame: the jsonrpc
// version must be exactly "2.0" and method must be a non-empty string.
func (r *Request) Validate() *Error {
	if r.JSONRPC != "2.0" {
		return &Error{
			Code:    CodeInvalidRequest,
			Message: "Invalid Request",
			Data:    fmt.Sprintf("unsupported jsonrpc version %q", r.JSONRPC),
		}
	}
	if !r.hasMethod {
		return &Error{Code: CodeInvalidRequest, Message: "Invalid Request", Data: "method is required"}
	}
	if !r.methodIsString || r.Method == "" {
		return &Error{Code: CodeInvalidRequest, Message: "Invalid Request", Data: "method must be a non-empty string"}
	}
	return nil
}

// Serialize encodes a response as one line, newline-terminated.
func Serialize(resp *Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshaling response: %w", err)
	}
	return append(data, '\n'), nil
}
