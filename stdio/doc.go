// Package stdio implements a single-connection, line-delimited JSON-RPC tool
// transport over stdin/stdout. It is intended for embedding tool servers as
// subprocesses of an agent or orchestrator that pipes one JSON object per
// line and correlates responses by id.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client
//	Framing          : newline-delimited JSON objects
//	Ordering         : strict FIFO; each line is processed to completion
//	                   (response written) before the next line is dispatched
//	Methods          : initialize, notifications/initialized, tools/list,
//	                   tools/call, plus the legacy {"command": ...} shape
//	Diagnostics      : slog on stderr; stdout carries protocol bytes only
//
// The transport delegates all tool semantics to the two handler slots on its
// HandlerRegistry. Registration must happen before Serve starts reading for
// those methods to succeed; invoking a method whose slot is empty is a
// per-message dispatch error, never a crash.
//
// Example:
//
//	reg := stdio.NewHandlerRegistry()
//	ts := toolset.NewRegistry( /* tools */ )
//	reg.RegisterListTools(ts.ListTools)
//	reg.RegisterCallTool(ts.CallTool)
//	h := stdio.NewHandler(
//	    mcp.ImplementationInfo{Name: "my-server", Version: "0.1.0"},
//	    reg,
//	    stdio.WithCapabilities(mcp.ServerCapabilities{Tools: ts.Catalog()}),
//	)
//	if err := h.Serve(context.Background()); err != nil { log.Fatal(err) }
package stdio
