package toolset

import (
	"context"
	"fmt"
	"sync"

	"github.com/probeshift/browserwire/mcp"
)

// ToolHandler is the function signature used to handle a tool invocation.
type ToolHandler func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error)

// StaticTool pairs a tool descriptor with its handler.
type StaticTool struct {
	Descriptor mcp.Tool
	Handler    ToolHandler
}

// Registry owns a mutable, threadsafe set of tool descriptors and handlers.
// Descriptors are listed in registration order. Registering a name twice
// overwrites the previous tool in place with no warning.
type Registry struct {
	mu       sync.RWMutex
	tools    []mcp.Tool             // descriptors for listing, insertion order
	handlers map[string]ToolHandler // name -> handler
}

// NewRegistry constructs a Registry with the given tool definitions.
func NewRegistry(defs ...StaticTool) *Registry {
	r := &Registry{handlers: make(map[string]ToolHandler, len(defs))}
	for _, d := range defs {
		r.Register(d)
	}
	return r
}

// Register adds a tool, replacing any existing tool with the same name while
// keeping its position in the listing order.
func (r *Registry) Register(def StaticTool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers == nil {
		r.handlers = make(map[string]ToolHandler)
	}
	name := def.Descriptor.Name
	replaced := false
	for i, t := range r.tools {
		if t.Name == name {
			r.tools[i] = def.Descriptor
			replaced = true
			break
		}
	}
	if !replaced {
		r.tools = append(r.tools, def.Descriptor)
	}
	r.handlers[name] = def.Handler
}

// Remove removes a tool by name. Returns true if removed.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	removed := false
	for _, t := range r.tools {
		if t.Name == name {
			removed = true
			continue
		}
		r.tools[n] = t
		n++
	}
	if removed {
		r.tools = r.tools[:n]
		delete(r.handlers, name)
	}
	return removed
}

// Snapshot returns a copy of the current tool descriptors in listing order.
func (r *Registry) Snapshot() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Catalog returns the descriptor map advertised in the initialize handshake.
func (r *Registry) Catalog() map[string]mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]mcp.Tool, len(r.tools))
	for _, t := range r.tools {
		out[t.Name] = t
	}
	return out
}

// ListTools satisfies the transport's list slot.
func (r *Registry) ListTools(ctx context.Context) (*mcp.ListToolsResult, error) {
	return &mcp.ListToolsResult{Tools: r.Snapshot()}, nil
}

// CallTool satisfies the transport's call slot. A name the registry does not
// know resolves to a content-style error result rather than a handler
// failure: the transport reserves error envelopes for framing and routing
// problems.
func (r *Registry) CallTool(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req == nil || req.Name == "" {
		return nil, NewError("invalid tool request: missing name", "provide a tool name in params.name")
	}
	r.mu.RLock()
	h := r.handlers[req.Name]
	r.mu.RUnlock()
	if h == nil {
		return Errorf("Unknown tool: %s", req.Name), nil
	}
	return h(ctx, req)
}

// TextResult is a small helper to build a text CallToolResult.
func TextResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: s}}}
}

// Errorf returns an error CallToolResult with a single text block and IsError=true.
func Errorf(format string, a ...any) *mcp.CallToolResult {
	msg := fmt.Sprintf(format, a...)
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: msg}}, IsError: true}
}
