package toolset

import (
	"context"
	"testing"

	"github.com/probeshift/browserwire/mcp"
)

func TestNewTool_ReflectsInputSchema(t *testing.T) {
	type args struct {
		URL     string `json:"url" jsonschema:"required" jsonschema_description:"Absolute URL to open"`
		Timeout int    `json:"timeoutMs,omitempty" jsonschema_description:"Navigation timeout in milliseconds"`
	}
	tool := NewTool("browser_navigate", func(ctx context.Context, a args) (*mcp.CallToolResult, error) {
		return TextResult("ok"), nil
	}, WithDescription("Navigate the browser to a URL"))

	desc := tool.Descriptor
	if desc.Name != "browser_navigate" {
		t.Fatalf("name %q", desc.Name)
	}
	if desc.Description != "Navigate the browser to a URL" {
		t.Fatalf("description %q", desc.Description)
	}
	if desc.InputSchema.Type != "object" {
		t.Fatalf("schema type %q", desc.InputSchema.Type)
	}

	urlProp, ok := desc.InputSchema.Properties["url"]
	if !ok {
		t.Fatal("url property missing")
	}
	if urlProp.Type != "string" {
		t.Fatalf("url type %q", urlProp.Type)
	}
	if urlProp.Description != "Absolute URL to open" {
		t.Fatalf("url description %q", urlProp.Description)
	}

	toProp, ok := desc.InputSchema.Properties["timeoutMs"]
	if !ok {
		t.Fatal("timeoutMs property missing")
	}
	if toProp.Type != "integer" {
		t.Fatalf("timeoutMs type %q", toProp.Type)
	}

	foundRequired := false
	for _, name := range desc.InputSchema.Required {
		if name == "url" {
			foundRequired = true
		}
		if name == "timeoutMs" {
			t.Fatal("timeoutMs must not be required")
		}
	}
	if !foundRequired {
		t.Fatalf("url missing from required: %v", desc.InputSchema.Required)
	}

	if desc.InputSchema.AdditionalProperties {
		t.Fatal("strict tools must reject additional properties")
	}
}

func TestNewTool_EnumAndNested(t *testing.T) {
	type args struct {
		Button string `json:"button,omitempty" jsonschema:"enum=left,enum=right,enum=middle"`
		Point  struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"point"`
	}
	tool := NewTool("browser_click", func(ctx context.Context, a args) (*mcp.CallToolResult, error) {
		return TextResult("ok"), nil
	})

	btn := tool.Descriptor.InputSchema.Properties["button"]
	if len(btn.Enum) != 3 {
		t.Fatalf("enum %v", btn.Enum)
	}

	point := tool.Descriptor.InputSchema.Properties["point"]
	if point.Type != "object" {
		t.Fatalf("point type %q", point.Type)
	}
	if _, ok := point.Properties["x"]; !ok {
		t.Fatal("nested x property missing")
	}
}

func TestNewTool_NonStructArgsFallBackToEmptyObject(t *testing.T) {
	tool := NewTool("noop", func(ctx context.Context, a string) (*mcp.CallToolResult, error) {
		return TextResult("ok"), nil
	})
	s := tool.Descriptor.InputSchema
	if s.Type != "object" || len(s.Properties) != 0 {
		t.Fatalf("fallback schema: %+v", s)
	}
}
