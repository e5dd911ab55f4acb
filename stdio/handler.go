package stdio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/probeshift/browserwire/internal/jsonrpc"
	"github.com/probeshift/browserwire/internal/logctx"
	"github.com/probeshift/browserwire/mcp"
	"github.com/probeshift/browserwire/toolset"
)

const suggestCheckFormat = "check input format"

// Handler is a single-connection stdio transport that reads line-delimited
// JSON-RPC messages from an io.Reader and writes responses to an io.Writer.
// By default it uses os.Stdin and os.Stdout, with slog diagnostics on
// os.Stderr.
//
// The handler is transport-only; tool semantics live behind the two slots of
// the HandlerRegistry, plus the built-in initialize responder configured via
// WithCapabilities.
type Handler struct {
	info         mcp.ImplementationInfo
	caps         mcp.ServerCapabilities
	instructions string
	reg          *HandlerRegistry

	r   io.Reader
	w   io.Writer
	wmu sync.Mutex

	log    *slog.Logger
	served atomic.Bool
}

// NewHandler constructs a stdio Handler with defaults and applies options.
// A nil registry gets replaced with an empty one; its slots can still be
// filled through Registry before Serve is called.
func NewHandler(info mcp.ImplementationInfo, reg *HandlerRegistry, opts ...Option) *Handler {
	if reg == nil {
		reg = NewHandlerRegistry()
	}
	h := &Handler{
		info: info,
		reg:  reg,
		r:    os.Stdin,
		w:    os.Stdout,
		log: slog.New(logctx.Handler{
			Handler: slog.NewTextHandler(os.Stderr, nil),
		}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Registry returns the handler registry so callers can fill its slots.
func (h *Handler) Registry() *HandlerRegistry { return h.reg }

// Serve runs the stdio event loop until EOF on the reader or the context is
// canceled. It is safe to call at most once per Handler.
//
// Lines are processed strictly in order: the response (or error envelope)
// for line N is written before line N+1 is dispatched. Responses therefore
// appear in request order even when handler latencies differ, and the
// correlation id additionally ties each envelope to its request. A blocked
// read is only abandoned when the reader itself returns, so cancellation
// takes effect at the next read boundary.
func (h *Handler) Serve(ctx context.Context) error {
	if !h.served.CompareAndSwap(false, true) {
		return errors.New("stdio: Serve may only be called once per Handler")
	}

	log := h.log.With(slog.String("conn_id", uuid.NewString()))
	log.DebugContext(ctx, "stdio transport started",
		slog.String("server", h.info.Name),
		slog.String("version", h.info.Version),
	)

	var framer lineFramer
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := h.r.Read(buf)
		if n > 0 {
			framer.Append(buf[:n])
			for {
				line, ok := framer.Next()
				if !ok {
					break
				}
				h.handleLine(ctx, log, line)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if rest := framer.Remainder(); rest != nil {
					h.handleLine(ctx, log, rest)
				}
				log.DebugContext(ctx, "stdio transport stopped at EOF")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("stdio: read: %w", err)
		}
	}
}

// inbound is the structural probe for one parsed line. The shape is decided
// by which fields are present: a method marks a JSON-RPC request or
// notification, a bare command marks the legacy compatibility shape.
type inbound struct {
	JSONRPCVersion string             `json:"jsonrpc"`
	ID             *jsonrpc.RequestID `json:"id"`
	Method         mcp.Method         `json:"method"`
	Params         json.RawMessage    `json:"params"`
	Command        string             `json:"command"`
	Arguments      json.RawMessage    `json:"arguments"`
}

func (m *inbound) kind() string {
	switch {
	case m.Method != "":
		if m.ID.IsNil() {
			return "notification"
		}
		return "request"
	case m.Command != "":
		return "command"
	default:
		return "unknown"
	}
}

// handleLine classifies and dispatches one framed line, writing at most one
// output line. Per-message failures degrade to error envelopes; nothing here
// terminates the transport.
func (h *Handler) handleLine(ctx context.Context, log *slog.Logger, line []byte) {
	var msg inbound
	if err := json.Unmarshal(line, &msg); err != nil {
		id := jsonrpc.ExtractID(line)
		log.WarnContext(ctx, "failed to parse incoming line",
			slog.String("error", err.Error()),
			slog.Int("line_bytes", len(line)),
		)
		h.writeError(ctx, log, id, fmt.Sprintf("failed to parse message: %v", err), suggestCheckFormat)
		return
	}

	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: string(msg.Method),
		ID:     msg.ID.String(),
		Type:   msg.kind(),
	})

	switch {
	case msg.Method == mcp.InitializeMethod:
		h.respondResult(ctx, log, msg.ID, &mcp.InitializeResult{
			ProtocolVersion: mcp.ProtocolVersion,
			Capabilities:    h.caps,
			ServerInfo:      h.info,
			Instructions:    h.instructions,
		})
	case msg.Method == mcp.InitializedNotificationMethod:
		// Acknowledge silently. Never produces output, id or not.
		log.DebugContext(ctx, "client completed initialization")
	case msg.Method == mcp.ToolsListMethod:
		h.dispatchList(ctx, log, &msg)
	case msg.Method == mcp.ToolsCallMethod:
		h.dispatchCall(ctx, log, &msg)
	case msg.Method == "" && msg.Command != "":
		h.dispatchLegacy(ctx, log, &msg)
	case msg.Method != "":
		log.WarnContext(ctx, "unrecognized method")
		h.respondError(ctx, log, msg.ID, fmt.Sprintf("unrecognized method %q", msg.Method), suggestCheckFormat)
	default:
		// Neither a method nor a command: treat like unparseable input, so
		// the envelope is written even when no id was recovered.
		log.WarnContext(ctx, "unrecognized message shape")
		h.writeError(ctx, log, msg.ID, "unrecognized message shape", suggestCheckFormat)
	}
}

func (h *Handler) dispatchList(ctx context.Context, log *slog.Logger, msg *inbound) {
	fn := h.reg.listTools()
	if fn == nil {
		h.respondError(ctx, log, msg.ID, "no list handler registered", "")
		return
	}
	res, err := fn(ctx)
	if err != nil {
		log.ErrorContext(ctx, "list handler failed", slog.String("error", err.Error()))
		h.respondError(ctx, log, msg.ID, err.Error(), suggestionOf(err))
		return
	}
	h.respondResult(ctx, log, msg.ID, res)
}

func (h *Handler) dispatchCall(ctx context.Context, log *slog.Logger, msg *inbound) {
	fn := h.reg.callTool()
	if fn == nil {
		h.respondError(ctx, log, msg.ID, "no call handler registered", "")
		return
	}
	var req mcp.CallToolRequest
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &req); err != nil {
			h.respondError(ctx, log, msg.ID, fmt.Sprintf("invalid tools/call params: %v", err), suggestCheckFormat)
			return
		}
	}
	ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{ToolName: req.Name})
	res, err := fn(ctx, &req)
	if err != nil {
		log.ErrorContext(ctx, "call handler failed", slog.String("error", err.Error()))
		h.respondError(ctx, log, msg.ID, err.Error(), suggestionOf(err))
		return
	}
	h.respondResult(ctx, log, msg.ID, res)
}

// respondResult emits a success envelope echoing the request id. Requests
// without an id are notifications and never produce output.
func (h *Handler) respondResult(ctx context.Context, log *slog.Logger, id *jsonrpc.RequestID, result any) {
	if id.IsNil() {
		log.DebugContext(ctx, "suppressing response for notification-shaped request")
		return
	}
	resp, err := jsonrpc.NewResultResponse(id, result)
	if err != nil {
		h.respondError(ctx, log, id, err.Error(), "")
		return
	}
	if err := h.writeJSON(resp); err != nil {
		log.ErrorContext(ctx, "failed to write response", slog.String("error", err.Error()))
	}
}

// respondError emits an error envelope echoing the request id, subject to
// the same notification suppression as respondResult.
func (h *Handler) respondError(ctx context.Context, log *slog.Logger, id *jsonrpc.RequestID, message, suggestion string) {
	if id.IsNil() {
		log.DebugContext(ctx, "suppressing error for notification-shaped request",
			slog.String("error", message))
		return
	}
	h.writeError(ctx, log, id, message, suggestion)
}

// writeError emits an error envelope unconditionally. The parse-failure path
// uses it directly so that a line whose id could not be recovered still
// yields an envelope with an explicit null id.
func (h *Handler) writeError(ctx context.Context, log *slog.Logger, id *jsonrpc.RequestID, message, suggestion string) {
	resp := jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInternalError, message, suggestion)
	if err := h.writeJSON(resp); err != nil {
		log.ErrorContext(ctx, "failed to write error envelope", slog.String("error", err.Error()))
	}
}

// writeJSON serializes exactly one JSON object terminated by a newline. The
// mutex keeps envelopes whole should a future caller write from another
// goroutine; it imposes no ordering of its own.
func (h *Handler) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	b = append(b, '\n')
	h.wmu.Lock()
	defer h.wmu.Unlock()
	_, err = h.w.Write(b)
	return err
}

// suggestionOf extracts the recovery suggestion from a handler failure, if
// the handler attached one.
func suggestionOf(err error) string {
	var te *toolset.Error
	if errors.As(err, &te) {
		return te.Suggestion
	}
	return ""
}
