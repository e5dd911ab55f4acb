// Package manifest serves a tool catalog declared in a JSON file. It fills
// both transport handler slots: listings come from the manifest's
// descriptors, and calls are gated on the declared tool names with their
// arguments validated against the declared input schemas before a single
// engine function is invoked. The manifest file can be watched for changes
// so a deployment can adjust its advertised tool surface without a restart.
//
// Manifest format:
//
//	{
//	  "tools": [
//	    {"name": "browser_navigate",
//	     "description": "Navigate the browser to a URL",
//	     "inputSchema": {"type": "object", "properties": {...}, "required": [...]}}
//	  ]
//	}
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/probeshift/browserwire/mcp"
	"github.com/probeshift/browserwire/toolset"
)

// Invoker executes a manifest-approved tool call. It is the single function
// behind every declared tool; the automation engine is free to switch on the
// request's name.
type Invoker func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Catalog is a file-backed tool catalog.
type Catalog struct {
	path   string
	invoke Invoker
	log    *slog.Logger

	mu      sync.RWMutex
	tools   []mcp.Tool
	schemas map[string]*jsonschema.Resolved
}

// Option customizes a Catalog.
type Option func(*Catalog)

// WithLogger overrides the logger used for reload diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.log = l
		}
	}
}

// New loads the manifest at path and binds the invoker. The initial load
// must succeed; later reload failures keep the last good catalog.
func New(path string, invoke Invoker, opts ...Option) (*Catalog, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve path: %w", err)
	}
	c := &Catalog{
		path:   abs,
		invoke: invoke,
		log:    slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

type manifestDoc struct {
	Tools []manifestTool `json:"tools"`
}

type manifestTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Reload re-reads the manifest file and atomically replaces the descriptor
// set and compiled schemas.
func (c *Catalog) Reload() error {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("manifest: read %s: %w", c.path, err)
	}
	var doc manifestDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("manifest: parse %s: %w", c.path, err)
	}

	tools := make([]mcp.Tool, 0, len(doc.Tools))
	schemas := make(map[string]*jsonschema.Resolved, len(doc.Tools))
	for _, mt := range doc.Tools {
		if mt.Name == "" {
			return fmt.Errorf("manifest: tool with empty name")
		}
		if _, dup := schemas[mt.Name]; dup {
			return fmt.Errorf("manifest: duplicate tool name %q", mt.Name)
		}

		schemaRaw := mt.InputSchema
		if len(schemaRaw) == 0 {
			schemaRaw = json.RawMessage(`{"type":"object"}`)
		}

		var compiled jsonschema.Schema
		if err := json.Unmarshal(schemaRaw, &compiled); err != nil {
			return fmt.Errorf("manifest: tool %q: parse inputSchema: %w", mt.Name, err)
		}
		resolved, err := compiled.Resolve(nil)
		if err != nil {
			return fmt.Errorf("manifest: tool %q: resolve inputSchema: %w", mt.Name, err)
		}
		schemas[mt.Name] = resolved

		var wireSchema mcp.ToolInputSchema
		if err := json.Unmarshal(schemaRaw, &wireSchema); err != nil {
			return fmt.Errorf("manifest: tool %q: inputSchema shape: %w", mt.Name, err)
		}
		tools = append(tools, mcp.Tool{
			Name:        mt.Name,
			Description: mt.Description,
			InputSchema: wireSchema,
		})
	}

	c.mu.Lock()
	c.tools = tools
	c.schemas = schemas
	c.mu.Unlock()
	c.log.Debug("manifest loaded", slog.String("path", c.path), slog.Int("tools", len(tools)))
	return nil
}

// Snapshot returns a copy of the declared descriptors in manifest order.
func (c *Catalog) Snapshot() []mcp.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]mcp.Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Catalog returns the descriptor map advertised at initialize.
func (c *Catalog) Catalog() map[string]mcp.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]mcp.Tool, len(c.tools))
	for _, t := range c.tools {
		out[t.Name] = t
	}
	return out
}

// ListTools satisfies the transport's list slot.
func (c *Catalog) ListTools(ctx context.Context) (*mcp.ListToolsResult, error) {
	return &mcp.ListToolsResult{Tools: c.Snapshot()}, nil
}

// CallTool satisfies the transport's call slot. Names outside the manifest
// resolve to a content-style unknown-tool result; declared names have their
// arguments validated against the declared schema before the engine runs.
func (c *Catalog) CallTool(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req == nil || req.Name == "" {
		return nil, toolset.NewError("invalid tool request: missing name", "provide a tool name in params.name")
	}
	c.mu.RLock()
	resolved, ok := c.schemas[req.Name]
	c.mu.RUnlock()
	if !ok {
		return toolset.Errorf("Unknown tool: %s", req.Name), nil
	}

	var args any = map[string]any{}
	if len(req.Arguments) > 0 {
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return nil, toolset.NewError(
				fmt.Sprintf("invalid arguments for %q: %v", req.Name, err),
				"send arguments as a JSON object",
			)
		}
	}
	if err := resolved.Validate(args); err != nil {
		return nil, toolset.NewError(
			fmt.Sprintf("invalid arguments for %q: %v", req.Name, err),
			"check the tool's input schema",
		)
	}

	return c.invoke(ctx, req)
}

// Watch reloads the catalog whenever the manifest file changes, until the
// context is canceled. Editors and config management tend to replace the
// file rather than write it in place, so the watch is on the parent
// directory and events are filtered by name. A reload failure keeps the last
// good catalog and is logged.
func (c *Catalog) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("manifest: watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(c.path)); err != nil {
		return fmt.Errorf("manifest: watch %s: %w", filepath.Dir(c.path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != c.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := c.Reload(); err != nil {
				c.log.Warn("manifest reload failed; keeping previous catalog",
					slog.String("error", err.Error()))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.log.Warn("manifest watcher error", slog.String("error", err.Error()))
		}
	}
}
