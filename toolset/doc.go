// Package toolset provides the reference implementation of the transport's
// external collaborator contract: a named registry of schema-described tools
// with asynchronous handlers. The stdio transport only needs the two slot
// functions a registry exposes (ListTools, CallTool); anything satisfying
// those signatures can be registered instead.
//
// Tools can be declared three ways:
//
//   - NewTool reflects a JSON schema from a typed argument struct and wraps
//     the handler with strict decoding of incoming arguments.
//   - TypedTool pairs an explicit descriptor with a typed handler.
//   - StaticTool pairs a descriptor with a raw handler for full control.
//
// A handler failure returned as *Error carries an optional suggestion the
// transport surfaces in the error envelope's data payload.
package toolset
