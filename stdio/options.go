package stdio

import (
	"io"
	"log/slog"

	"github.com/probeshift/browserwire/mcp"
)

// Option customizes a Handler.
type Option func(*Handler)

// WithIO sets the reader and writer for the handler.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
		if w != nil {
			h.w = w
		}
	}
}

// WithReader overrides the input stream.
func WithReader(r io.Reader) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
	}
}

// WithWriter overrides the output stream.
func WithWriter(w io.Writer) Option {
	return func(h *Handler) {
		if w != nil {
			h.w = w
		}
	}
}

// WithLogger overrides the logger. Diagnostics never touch the protocol
// stream, so the logger must not write to the handler's output writer.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithCapabilities sets the capability catalog announced at initialize.
func WithCapabilities(caps mcp.ServerCapabilities) Option {
	return func(h *Handler) {
		h.caps = caps
	}
}

// WithInstructions sets optional human-readable guidance returned during
// initialize.
func WithInstructions(instructions string) Option {
	return func(h *Handler) {
		h.instructions = instructions
	}
}
