package mcp

import "encoding/json"

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2025-03-26"

// ServerName and ServerVersion identify the server in initialize results.
const (
	ServerName    = "moded"
	ServerVersion = "0.1.0"
)

// Request is an inbound JSON-RPC frame after framing checks. ID and
// Params keep their raw bytes: the id is echoed back untouched, and
// params are decoded by whichever handler owns the method.
type Request struct {
	JSONRPC string
	Method  string
	ID      json.RawMessage
	Params  json.RawMessage

	hasMethod      bool
	methodIsString bool
}

// IsNotification reports whether the frame carried no id field at all.
// An explicit "id": null still counts as a request.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response is an outbound JSON-RPC frame. Exactly one of Result and
// Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the wire form of an error response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// InitializeParams carries the client's advertised protocol version and
// identity. The server accepts any version and answers with its own.
type InitializeParams struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ClientInfo      ClientInfo `json:"clientInfo"`
}

// ClientInfo identifies the connecting client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the server's half of the handshake.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
}

// Capabilities advertises the feature groups the server supports.
type Capabilities struct {
	Resources *ResourcesCapability `json:"resources,omitempty"`
	Tools     *ToolsCapability     `json:"tools,omitempty"`
}

// ResourcesCapability reports resource support. ListChanged stays false:
// the resource list is fixed per registry generation and the server does
// not push change notifications.
type ResourcesCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ToolsCapability reports tool support.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ServerInfo identifies the server.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Resource describes one entry in resources/list.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType"`
}

// ResourceContent is one content block in a resources/read result.
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// ReadResourceParams carries the URI for resources/read.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ListResourcesResult wraps the resource catalogue.
type ListResourcesResult struct {
	Resources []Resource `json:"resources"`
}

// ReadResourceResult wraps the content blocks for one URI.
type ReadResourceResult struct {
	Contents []ResourceContent `json:"contents"`
}

// ToolDefinition describes one entry in tools/list.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema is the JSON Schema fragment describing a tool's arguments.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property is one argument in an input schema.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// ToolCallParams carries the tool name and arguments for tools/call.
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ListToolsResult wraps the tool catalogue.
type ListToolsResult struct {
	Tools []ToolDefinition `json:"tools"`
}

// ToolCallResult is the content envelope a tool call returns.
type ToolCallResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ContentItem is one block of tool output.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CancelledParams carries the payload of a cancelled notification.
type CancelledParams struct {
	RequestID json.RawMessage `json:"requestId"`
	Reason    string          `json:"reason,omitempty"`
}
