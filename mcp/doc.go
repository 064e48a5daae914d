// Package mcp implements the server's wire surface: a newline-delimited
// JSON-RPC 2.0 codec, a router over a fixed set of request and
// notification methods, and the resource and tool handlers that expose
// modes, tasks, and sessions to a single client over stdin/stdout.
//
// The router is the only place errors become wire frames. Handlers
// raise *Error (protocol family, code already chosen), *ValidationError
// (bad input, reported as VALIDATION_ERROR), or plain errors (reported
// as INTERNAL_ERROR without stopping the loop).
package mcp
