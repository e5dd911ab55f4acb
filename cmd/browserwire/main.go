// Command browserwire runs a line-delimited JSON-RPC tool server on
// stdin/stdout. By default it serves a stubbed browser toolset; with
// --manifest it serves tools declared in a JSON manifest file and reloads the
// catalog when the file changes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joeshaw/envdecode"
	"github.com/spf13/cobra"

	"github.com/probeshift/browserwire/examples/browser"
	"github.com/probeshift/browserwire/internal/logctx"
	"github.com/probeshift/browserwire/manifest"
	"github.com/probeshift/browserwire/mcp"
	"github.com/probeshift/browserwire/stdio"
	"github.com/probeshift/browserwire/toolset"
)

type config struct {
	Manifest     string `env:"BROWSERWIRE_MANIFEST"`
	LogLevel     string `env:"BROWSERWIRE_LOG_LEVEL,default=info"`
	Instructions string `env:"BROWSERWIRE_INSTRUCTIONS"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config{}
	// Defaults are provided via struct tags; flags below override.
	_ = envdecode.Decode(&cfg)

	root := &cobra.Command{
		Use:          "browserwire",
		Short:        "Line-delimited JSON-RPC tool server over stdio",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	root.Flags().StringVar(&cfg.Manifest, "manifest", cfg.Manifest, "path to a tool manifest file (default: built-in demo tools)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().StringVar(&cfg.Instructions, "instructions", cfg.Instructions, "instructions text returned from initialize")

	return root
}

func run(ctx context.Context, cfg config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	// The protocol owns stdout; diagnostics go to stderr.
	log := slog.New(logctx.Handler{
		Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	})

	info := mcp.ImplementationInfo{Name: "browserwire", Version: "0.1.0"}

	var (
		list stdio.ListToolsFunc
		call stdio.CallToolFunc
		caps mcp.ServerCapabilities
	)

	if cfg.Manifest != "" {
		cat, err := manifest.New(cfg.Manifest, manifestInvoker(), manifest.WithLogger(log))
		if err != nil {
			return fmt.Errorf("load manifest: %w", err)
		}
		go func() {
			if err := cat.Watch(ctx); err != nil {
				log.Error("manifest watch stopped", slog.String("err", err.Error()))
			}
		}()
		list, call = cat.ListTools, cat.CallTool
		caps = mcp.ServerCapabilities{Tools: cat.Catalog()}
		log.Info("serving manifest toolset", slog.String("path", cfg.Manifest), slog.Int("tools", len(cat.Snapshot())))
	} else {
		reg := browser.New()
		list, call = reg.ListTools, reg.CallTool
		caps = mcp.ServerCapabilities{Tools: reg.Catalog()}
		log.Info("serving demo browser toolset", slog.Int("tools", len(reg.Snapshot())))
	}

	h := stdio.NewHandler(info, nil,
		stdio.WithLogger(log),
		stdio.WithCapabilities(caps),
		stdio.WithInstructions(cfg.Instructions),
	)
	h.Registry().RegisterListTools(list)
	h.Registry().RegisterCallTool(call)

	return h.Serve(ctx)
}

// manifestInvoker executes manifest-declared tools. The manifest names tools
// and constrains their arguments; execution is delegated here so deployments
// can swap in a real automation backend. This stub echoes the accepted call.
func manifestInvoker() manifest.Invoker {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolset.TextResult(fmt.Sprintf("%s accepted %d bytes of arguments", req.Name, len(req.Arguments))), nil
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
