package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/probeshift/browserwire/internal/jsonrpc"
	"github.com/probeshift/browserwire/mcp"
	"github.com/probeshift/browserwire/toolset"
)

// testHarness encapsulates pipes and collected output for stdio handler tests.
type testHarness struct {
	t      *testing.T
	cancel context.CancelFunc
	stdinW io.Writer
	outMu  sync.Mutex
	lines  []string
}

func newHarness(t *testing.T, h func(opts ...Option) *Handler) *testHarness {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	handler := h(WithIO(inR, outW), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	ctx, cancel := context.WithCancel(context.Background())
	th := &testHarness{t: t, cancel: cancel, stdinW: inW}

	go func() {
		_ = handler.Serve(ctx)
	}()

	scanner := bufio.NewScanner(outR)
	go func() {
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			th.t.Logf("OUT: %s", line)
			th.outMu.Lock()
			th.lines = append(th.lines, line)
			th.outMu.Unlock()
		}
	}()

	t.Cleanup(func() {
		cancel()
		_ = inW.Close()
		_ = outW.Close()
	})
	return th
}

// send writes one raw line followed by a newline to the handler's stdin.
func (th *testHarness) send(raw string) {
	th.t.Helper()
	if _, err := io.WriteString(th.stdinW, raw+"\n"); err != nil {
		th.t.Fatalf("send: %v", err)
	}
}

func (th *testHarness) nextLine(timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		th.outMu.Lock()
		if len(th.lines) > 0 {
			s := th.lines[0]
			th.lines = th.lines[1:]
			th.outMu.Unlock()
			return s, nil
		}
		th.outMu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}
	return "", fmt.Errorf("timeout waiting for output line")
}

func (th *testHarness) expectResponse(timeout time.Duration) *jsonrpc.Response {
	th.t.Helper()
	line, err := th.nextLine(timeout)
	if err != nil {
		th.t.Fatalf("expect response: %v", err)
	}
	var resp jsonrpc.Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		th.t.Fatalf("decode response %q: %v", line, err)
	}
	return &resp
}

func (th *testHarness) expectSilence(d time.Duration) {
	th.t.Helper()
	if line, err := th.nextLine(d); err == nil {
		th.t.Fatalf("expected no output, got %q", line)
	}
}

func testInfo() mcp.ImplementationInfo {
	return mcp.ImplementationInfo{Name: "browserwire-test", Version: "0.1.0"}
}

func emptyHandler(opts ...Option) *Handler {
	return NewHandler(testInfo(), nil, opts...)
}

func toolsetHandler(ts *toolset.Registry) func(opts ...Option) *Handler {
	return func(opts ...Option) *Handler {
		reg := NewHandlerRegistry()
		reg.RegisterListTools(ts.ListTools)
		reg.RegisterCallTool(ts.CallTool)
		opts = append(opts, WithCapabilities(mcp.ServerCapabilities{Tools: ts.Catalog()}))
		return NewHandler(testInfo(), reg, opts...)
	}
}

func TestInitialize_BeforeAnyRegistration(t *testing.T) {
	th := newHarness(t, emptyHandler)

	th.send(`{"jsonrpc":"2.0","id":"init-1","method":"initialize","params":{}}`)
	resp := th.expectResponse(time.Second)
	if resp.Error != nil {
		t.Fatalf("initialize failed: %+v", resp.Error)
	}
	if got := resp.ID.String(); got != "init-1" {
		t.Fatalf("id = %q", got)
	}

	var res mcp.InitializeResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.ProtocolVersion != mcp.ProtocolVersion {
		t.Fatalf("protocol version %q", res.ProtocolVersion)
	}
	if res.ServerInfo.Name != "browserwire-test" || res.ServerInfo.Version != "0.1.0" {
		t.Fatalf("server info %+v", res.ServerInfo)
	}
}

func TestInitialize_AdvertisesToolCatalog(t *testing.T) {
	ts := toolset.NewRegistry(toolset.TypedTool(
		mcp.Tool{
			Name:        "browser_navigate",
			Description: "Navigate to a URL",
			InputSchema: mcp.ToolInputSchema{Type: "object"},
		},
		func(ctx context.Context, a struct{}) (*mcp.CallToolResult, error) {
			return toolset.TextResult("ok"), nil
		},
	))
	th := newHarness(t, toolsetHandler(ts))

	th.send(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	resp := th.expectResponse(time.Second)

	var res mcp.InitializeResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	tool, ok := res.Capabilities.Tools["browser_navigate"]
	if !ok {
		t.Fatalf("catalog missing tool: %+v", res.Capabilities.Tools)
	}
	if tool.Description != "Navigate to a URL" {
		t.Fatalf("descriptor %+v", tool)
	}
}

func TestInitializedNotification_ProducesNoOutput(t *testing.T) {
	th := newHarness(t, emptyHandler)

	th.send(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	th.expectSilence(150 * time.Millisecond)

	// The transport is still healthy afterwards.
	th.send(`{"jsonrpc":"2.0","id":2,"method":"initialize","params":{}}`)
	resp := th.expectResponse(time.Second)
	if resp.Error != nil {
		t.Fatalf("initialize after notification failed: %+v", resp.Error)
	}
}

func TestToolsList_UnregisteredYieldsErrorEnvelope(t *testing.T) {
	th := newHarness(t, emptyHandler)

	th.send(`{"jsonrpc":"2.0","id":7,"method":"tools/list","params":{}}`)
	resp := th.expectResponse(time.Second)
	if resp.Error == nil {
		t.Fatal("expected error envelope")
	}
	if resp.Error.Code != jsonrpc.ErrorCodeInternalError {
		t.Fatalf("code %d", resp.Error.Code)
	}
	if !strings.Contains(resp.Error.Message, "no list handler registered") {
		t.Fatalf("message %q", resp.Error.Message)
	}
	if got := resp.ID.String(); got != "7" {
		t.Fatalf("id %q", got)
	}
}

func TestToolsList_RoundTripsRegisteredResult(t *testing.T) {
	want := &mcp.ListToolsResult{Tools: []mcp.Tool{{
		Name:        "x",
		Description: "example",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]mcp.SchemaProperty{"q": {Type: "string"}},
			Required:   []string{"q"},
		},
	}}}

	th := newHarness(t, func(opts ...Option) *Handler {
		reg := NewHandlerRegistry()
		reg.RegisterListTools(func(ctx context.Context) (*mcp.ListToolsResult, error) {
			return want, nil
		})
		return NewHandler(testInfo(), reg, opts...)
	})

	th.send(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
	resp := th.expectResponse(time.Second)
	if resp.Error != nil {
		t.Fatalf("list failed: %+v", resp.Error)
	}
	var got mcp.ListToolsResult
	if err := json.Unmarshal(resp.Result, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	wantJSON, _ := json.Marshal(want)
	gotJSON, _ := json.Marshal(&got)
	if string(wantJSON) != string(gotJSON) {
		t.Fatalf("result changed in transit:\n got %s\nwant %s", gotJSON, wantJSON)
	}
}

func TestToolsCall_EchoesCorrelationID(t *testing.T) {
	ts := toolset.NewRegistry(toolset.TypedTool(
		mcp.Tool{Name: "echo", InputSchema: mcp.ToolInputSchema{Type: "object"}},
		func(ctx context.Context, a struct {
			Text string `json:"text"`
		}) (*mcp.CallToolResult, error) {
			return toolset.TextResult(a.Text), nil
		},
	))
	th := newHarness(t, toolsetHandler(ts))

	th.send(`{"jsonrpc":"2.0","id":42,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`)
	resp := th.expectResponse(time.Second)
	if resp.Error != nil {
		t.Fatalf("call failed: %+v", resp.Error)
	}
	if got := resp.ID.String(); got != "42" {
		t.Fatalf("id %q", got)
	}
	var res mcp.CallToolResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Content) != 1 || res.Content[0].Text != "hi" {
		t.Fatalf("result %+v", res)
	}
}

func TestToolsCall_HandlerFailureCarriesSuggestion(t *testing.T) {
	th := newHarness(t, func(opts ...Option) *Handler {
		reg := NewHandlerRegistry()
		reg.RegisterCallTool(func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return nil, toolset.NewError("browser not connected", "start the browser extension first")
		})
		return NewHandler(testInfo(), reg, opts...)
	})

	th.send(`{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":"browser_click","arguments":{}}}`)
	resp := th.expectResponse(time.Second)
	if resp.Error == nil {
		t.Fatal("expected error envelope")
	}
	if resp.Error.Message != "browser not connected" {
		t.Fatalf("message %q", resp.Error.Message)
	}
	data, err := json.Marshal(resp.Error.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	var ed jsonrpc.ErrorData
	if err := json.Unmarshal(data, &ed); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if ed.Suggestion != "start the browser extension first" {
		t.Fatalf("suggestion %q", ed.Suggestion)
	}
}

func TestToolsCall_UnknownToolIsContentResult(t *testing.T) {
	ts := toolset.NewRegistry()
	th := newHarness(t, toolsetHandler(ts))

	th.send(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"foo","arguments":{}}}`)
	resp := th.expectResponse(time.Second)
	if resp.Error != nil {
		t.Fatalf("unknown tool must not be a transport error: %+v", resp.Error)
	}
	var res mcp.CallToolResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected isError result")
	}
	if res.Content[0].Text != "Unknown tool: foo" {
		t.Fatalf("text %q", res.Content[0].Text)
	}
}

func TestInvalidJSON_OneErrorEnvelopeThenRecovery(t *testing.T) {
	th := newHarness(t, emptyHandler)

	th.send(`{not json`)
	resp := th.expectResponse(time.Second)
	if resp.Error == nil {
		t.Fatal("expected error envelope")
	}
	if resp.Error.Code != jsonrpc.ErrorCodeInternalError {
		t.Fatalf("code %d", resp.Error.Code)
	}
	if resp.ID != nil {
		t.Fatalf("unrecoverable id must be null, got %v", resp.ID.Value())
	}

	// Processing continues with the next valid line.
	th.send(`{"jsonrpc":"2.0","id":"after","method":"initialize","params":{}}`)
	resp = th.expectResponse(time.Second)
	if resp.Error != nil {
		t.Fatalf("valid line after parse failure failed: %+v", resp.Error)
	}
	if got := resp.ID.String(); got != "after" {
		t.Fatalf("id %q", got)
	}
	th.expectSilence(100 * time.Millisecond)
}

func TestInvalidJSON_RecoversEmbeddedID(t *testing.T) {
	th := newHarness(t, emptyHandler)

	th.send(`{"jsonrpc":"2.0","id":5,"method":"tools/list","params":{`)
	resp := th.expectResponse(time.Second)
	if resp.Error == nil {
		t.Fatal("expected error envelope")
	}
	if got := resp.ID.String(); got != "5" {
		t.Fatalf("recovered id %q", got)
	}
}

func TestUnrecognizedMethod_ErrorEnvelope(t *testing.T) {
	th := newHarness(t, emptyHandler)

	th.send(`{"jsonrpc":"2.0","id":11,"method":"resources/list","params":{}}`)
	resp := th.expectResponse(time.Second)
	if resp.Error == nil {
		t.Fatal("expected error envelope")
	}
	if !strings.Contains(resp.Error.Message, "resources/list") {
		t.Fatalf("message %q", resp.Error.Message)
	}
	if got := resp.ID.String(); got != "11" {
		t.Fatalf("id %q", got)
	}
}

func TestUnknownShape_ErrorEnvelopeWithNullID(t *testing.T) {
	th := newHarness(t, emptyHandler)

	// Valid JSON with neither a method nor a command. No id to suppress on,
	// so an envelope with an explicit null id must still come back.
	th.send(`{"foo":1}`)
	resp := th.expectResponse(time.Second)
	if resp.Error == nil || resp.Error.Code != jsonrpc.ErrorCodeInternalError {
		t.Fatalf("response %+v", resp)
	}
	if !resp.ID.IsNil() {
		t.Fatalf("id = %q, want null", resp.ID.String())
	}
}

func TestDispatch_StrictFIFO(t *testing.T) {
	th := newHarness(t, func(opts ...Option) *Handler {
		reg := NewHandlerRegistry()
		reg.RegisterCallTool(func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if req.Name == "slow" {
				time.Sleep(100 * time.Millisecond)
			}
			return toolset.TextResult(req.Name + " done"), nil
		})
		return NewHandler(testInfo(), reg, opts...)
	})

	// Both lines land in one read burst; the slow call is submitted first.
	burst := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"slow"}}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"fast"}}` + "\n"
	if _, err := io.WriteString(th.stdinW, burst); err != nil {
		t.Fatalf("send burst: %v", err)
	}

	first := th.expectResponse(2 * time.Second)
	second := th.expectResponse(2 * time.Second)
	if got := first.ID.String(); got != "1" {
		t.Fatalf("first response id %q, want the first submitted line", got)
	}
	if got := second.ID.String(); got != "2" {
		t.Fatalf("second response id %q", got)
	}
}

func TestPartialLine_BufferedAcrossReads(t *testing.T) {
	th := newHarness(t, emptyHandler)

	half := `{"jsonrpc":"2.0","id":"split",`
	if _, err := io.WriteString(th.stdinW, half); err != nil {
		t.Fatalf("write: %v", err)
	}
	th.expectSilence(100 * time.Millisecond)

	rest := `"method":"initialize","params":{}}` + "\n"
	if _, err := io.WriteString(th.stdinW, rest); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp := th.expectResponse(time.Second)
	if resp.Error != nil {
		t.Fatalf("split line failed: %+v", resp.Error)
	}
	if got := resp.ID.String(); got != "split" {
		t.Fatalf("id %q", got)
	}
}

func TestNotificationShapedCall_ProducesNoOutput(t *testing.T) {
	called := make(chan struct{}, 1)
	th := newHarness(t, func(opts ...Option) *Handler {
		reg := NewHandlerRegistry()
		reg.RegisterCallTool(func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			called <- struct{}{}
			return toolset.TextResult("ok"), nil
		})
		return NewHandler(testInfo(), reg, opts...)
	})

	th.send(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"fire_and_forget"}}`)
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
	th.expectSilence(150 * time.Millisecond)
}

func TestServe_SecondCallRejected(t *testing.T) {
	h := NewHandler(testInfo(), nil,
		WithIO(strings.NewReader(""), io.Discard),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err := h.Serve(context.Background()); err != nil {
		t.Fatalf("first serve: %v", err)
	}
	if err := h.Serve(context.Background()); err == nil {
		t.Fatal("second Serve must fail")
	}
}

func TestServe_ProcessesTrailingLineAtEOF(t *testing.T) {
	// No trailing newline on the final message; EOF closes the unit.
	in := strings.NewReader(`{"jsonrpc":"2.0","id":"last","method":"initialize","params":{}}`)
	var out syncBuffer
	h := NewHandler(testInfo(), nil,
		WithIO(in, &out),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err := h.Serve(context.Background()); err != nil {
		t.Fatalf("serve: %v", err)
	}
	var resp jsonrpc.Response
	if err := json.Unmarshal([]byte(strings.TrimSpace(out.String())), &resp); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if got := resp.ID.String(); got != "last" {
		t.Fatalf("id %q", got)
	}
}

// syncBuffer is a mutex-guarded bytes buffer for test writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
