package stdio

import (
	"context"
	"sync"

	"github.com/probeshift/browserwire/mcp"
)

// ListToolsFunc is the handler signature for the list slot.
type ListToolsFunc func(ctx context.Context) (*mcp.ListToolsResult, error)

// CallToolFunc is the handler signature for the call slot.
type CallToolFunc func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error)

// HandlerRegistry holds at most one handler per logical operation kind. It is
// owned by the transport instance rather than being ambient process state;
// callers register handlers before Serve starts the read loop. Registering a
// slot twice silently discards the previous handler.
type HandlerRegistry struct {
	mu   sync.RWMutex
	list ListToolsFunc
	call CallToolFunc
}

// NewHandlerRegistry constructs an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// RegisterListTools sets the list slot. Last writer wins.
func (r *HandlerRegistry) RegisterListTools(fn ListToolsFunc) {
	r.mu.Lock()
	r.list = fn
	r.mu.Unlock()
}

// RegisterCallTool sets the call slot. Last writer wins.
func (r *HandlerRegistry) RegisterCallTool(fn CallToolFunc) {
	r.mu.Lock()
	r.call = fn
	r.mu.Unlock()
}

func (r *HandlerRegistry) listTools() ListToolsFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list
}

func (r *HandlerRegistry) callTool() CallToolFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.call
}
