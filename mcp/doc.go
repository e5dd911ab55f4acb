// Package mcp contains the wire-facing protocol data types and constants
// shared by the stdio transport and tool catalog implementations. It mirrors
// the JSON representation exchanged with agent orchestrators while keeping
// the Go API small: a closed set of method names, tool descriptors with
// simplified JSON-schema input declarations, and the initialize/list/call
// request and result shapes.
//
// The capability block advertised at initialize maps tool names to their
// descriptors. This is the catalog shape legacy orchestrators expect, and it
// doubles as the uniqueness guarantee for tool names.
package mcp
