package mcp

import "encoding/json"

// Method is a protocol method identifier used in JSON-RPC messages.
type Method string

// The closed set of methods this transport dispatches. Anything else falls
// through to the malformed-input error path.
const (
	InitializeMethod              Method = "initialize"
	InitializedNotificationMethod Method = "notifications/initialized"
	ToolsListMethod               Method = "tools/list"
	ToolsCallMethod               Method = "tools/call"
)

// ProtocolVersion is the fixed protocol version string announced in the
// initialize result.
const ProtocolVersion = "2024-11-05"

// InitializeRequest starts the initialization handshake. The transport only
// echoes its own identity; client fields are accepted for diagnostics.
type InitializeRequest struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ClientInfo      ImplementationInfo `json:"clientInfo"`
}

// InitializeResult returns the protocol version, capability catalog and
// server identity.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ImplementationInfo `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitzero"`
}

// ListToolsResult returns the available tools in catalog insertion order.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolRequest is the received representation of a tool call. Arguments
// stay raw until the handler decodes them against its schema.
type CallToolRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallToolResult represents a tool invocation result: a list of typed
// content blocks plus an optional failure flag.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitzero"`
}
