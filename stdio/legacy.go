package stdio

import (
	"context"
	"log/slog"
	"strings"

	"github.com/probeshift/browserwire/internal/logctx"
	"github.com/probeshift/browserwire/mcp"
)

// Legacy compatibility path: pre-JSON-RPC clients send
// {"command": <tool>, "arguments": {...}} and receive a
// {"type": "response", "result": {...}} envelope. The shape carries no
// correlation id; legacy clients match responses to requests by stream
// order, which the transport's strict FIFO dispatch keeps total. That
// ordering is the only correlation guarantee this path has.

type legacyResponse struct {
	Type   string       `json:"type"`
	Result legacyResult `json:"result"`
}

type legacyResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Error   *legacyError `json:"error,omitempty"`
}

type legacyError struct {
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// dispatchLegacy treats a command message as an implicit tools/call and
// re-shapes the uniform handler result into the legacy envelope.
func (h *Handler) dispatchLegacy(ctx context.Context, log *slog.Logger, msg *inbound) {
	ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{ToolName: msg.Command})

	fn := h.reg.callTool()
	if fn == nil {
		h.writeLegacyFailure(ctx, log, "no call handler registered", "")
		return
	}

	req := &mcp.CallToolRequest{Name: msg.Command, Arguments: msg.Arguments}
	res, err := fn(ctx, req)
	if err != nil {
		log.ErrorContext(ctx, "legacy command failed", slog.String("error", err.Error()))
		h.writeLegacyFailure(ctx, log, err.Error(), suggestionOf(err))
		return
	}

	out := legacyResponse{Type: "response"}
	text := joinTextContent(res)
	if res.IsError {
		out.Result = legacyResult{Success: false, Error: &legacyError{Message: text}}
	} else {
		out.Result = legacyResult{Success: true, Message: text}
	}
	if err := h.writeJSON(out); err != nil {
		log.ErrorContext(ctx, "failed to write legacy response", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeLegacyFailure(ctx context.Context, log *slog.Logger, message, suggestion string) {
	out := legacyResponse{
		Type: "response",
		Result: legacyResult{
			Success: false,
			Error:   &legacyError{Message: message, Suggestion: suggestion},
		},
	}
	if err := h.writeJSON(out); err != nil {
		log.ErrorContext(ctx, "failed to write legacy failure", slog.String("error", err.Error()))
	}
}

// joinTextContent flattens a result's text blocks into the single message
// string the legacy shape expects. Non-text blocks have no legacy rendering
// and are skipped.
func joinTextContent(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	parts := make([]string, 0, len(res.Content))
	for _, block := range res.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}
