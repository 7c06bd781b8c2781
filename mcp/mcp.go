// Package mcp defines the JSON-RPC 2.0 envelope and the Model Context
// Protocol payload types this server speaks over stdio.
package mcp

import "encoding/json"

const (
	// Version is the JSON-RPC version tag carried by every message.
	Version = "2.0"

	// ProtocolVersion is the MCP revision advertised by initialize.
	ProtocolVersion = "2024-11-05"
)

// JSON-RPC error codes. CodeInternalError is reserved for recovered
// panics; tool and validation failures map to CodeApplicationError.
const (
	CodeParseError       = -32700
	CodeMethodNotFound   = -32601
	CodeApplicationError = -32000
	CodeInternalError    = -32603
)

// Request is one decoded input line. ID is nil when the id field is
// absent or null, which marks the request as a notification; otherwise
// it holds a string or a float64.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request must never be answered.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response is one output line. Exactly one of Result and Error is set.
// ID always echoes the request id, null included, so it carries no
// omitempty tag.
type Response struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      any          `json:"id"`
	Result  any          `json:"result,omitempty"`
	Error   *ErrorObject `json:"error,omitempty"`
}

// ErrorObject is the error member of a failed response.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewResponse builds a success envelope for the given request id.
func NewResponse(id any, result any) *Response {
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

// NewErrorResponse builds a failure envelope for the given request id.
func NewErrorResponse(id any, code int, message string) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &ErrorObject{Code: code, Message: message},
	}
}

// Tool is one entry of the tools/list result. The descriptor set is
// fixed at process start and never changes afterwards.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ContentItem is a single tools/call content element. This server only
// ever produces text content.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult is the tools/call result payload.
type ToolResult struct {
	Content []ContentItem `json:"content"`
}

// TextResult wraps text in a single-item tool result.
func TextResult(text string) *ToolResult {
	return &ToolResult{Content: []ContentItem{{Type: "text", Text: text}}}
}

// ServerInfo identifies this server in the initialize result.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the initialize response payload.
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
}

// ToolsListResult is the tools/list response payload.
type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

// ToolCallParams are the params of a tools/call request. Arguments may
// be absent, which handlers treat as an empty object.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}
