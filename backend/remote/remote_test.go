package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/jonwraymond/toolgate/backend"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	stdioServerEnv = "TOOLGATE_REMOTE_TEST_SERVER"
	// stdioLingerEnv keeps the child alive after stdin closes, so shutdown
	// has to signal it.
	stdioLingerEnv = "TOOLGATE_REMOTE_TEST_LINGER"
	// exitCodeEnv makes the test binary exit immediately with its value.
	exitCodeEnv = "TOOLGATE_REMOTE_TEST_EXIT"
)

// TestMain lets the test binary double as an MCP stdio server.
func TestMain(m *testing.M) {
	if code := os.Getenv(exitCodeEnv); code != "" {
		n, _ := strconv.Atoi(code)
		os.Exit(n)
	}
	if os.Getenv(stdioServerEnv) == "1" {
		server := newTestServer(nil)
		if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if os.Getenv(stdioLingerEnv) == "1" {
			time.Sleep(time.Minute)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func objectSchema() map[string]any {
	return map[string]any{"type": "object"}
}

// newTestServer builds a server exposing echo, fail, structured, env, and
// block tools. Extra tools are appended by name.
func newTestServer(opts *mcp.ServerOptions, extra ...string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "test-server", Version: "v0.0.1"}, opts)

	server.AddTool(&mcp.Tool{Name: "echo", Description: "Echoes text", InputSchema: objectSchema()},
		func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				Text string `json:"text"`
			}
			if len(req.Params.Arguments) > 0 {
				if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
					return nil, err
				}
			}
			return textResult(args.Text), nil
		})

	server.AddTool(&mcp.Tool{Name: "fail", InputSchema: objectSchema()},
		func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			res := textResult("boom")
			res.IsError = true
			return res, nil
		})

	server.AddTool(&mcp.Tool{Name: "structured", InputSchema: objectSchema()},
		func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			res := textResult(`{"n":1}`)
			res.StructuredContent = map[string]any{"n": 1}
			return res, nil
		})

	server.AddTool(&mcp.Tool{Name: "env", InputSchema: objectSchema()},
		func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return textResult(os.Getenv("TOOLGATE_REMOTE_TEST_VALUE")), nil
		})

	server.AddTool(&mcp.Tool{Name: "block", InputSchema: objectSchema()},
		func(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	for _, name := range extra {
		server.AddTool(&mcp.Tool{Name: name, InputSchema: objectSchema()},
			func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return textResult(name), nil
			})
	}
	return server
}

func remoteDescriptor(name string) backend.Descriptor {
	return backend.Descriptor{
		Name:      name,
		Kind:      backend.KindRemote,
		Enabled:   true,
		Transport: backend.TransportHTTP,
		ServerURL: "http://in-memory.invalid/mcp",
	}
}

// connectInMemory returns a connected provider talking to server over
// in-memory transports.
func connectInMemory(t *testing.T, server *mcp.Server) *Provider {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server.Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = ss.Close() })

	p, err := New(remoteDescriptor("mem"), WithTransport(clientTransport))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := p.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func toolByID(t *testing.T, p *Provider, id string) backend.RegisteredTool {
	t.Helper()
	tools, err := p.Tools()
	if err != nil {
		t.Fatalf("Tools() error = %v", err)
	}
	for _, tool := range tools {
		if tool.ID == id {
			return tool
		}
	}
	t.Fatalf("tool %s not found", id)
	return backend.RegisteredTool{}
}

func TestNew_RejectsLocalDescriptor(t *testing.T) {
	_, err := New(backend.Descriptor{Name: "hr", Kind: backend.KindLocalMock})
	if !errors.Is(err, backend.ErrConfig) {
		t.Errorf("New() error = %v, want ErrConfig", err)
	}
}

func TestProvider_InMemory(t *testing.T) {
	p := connectInMemory(t, newTestServer(nil))

	if p.State() != StateConnected {
		t.Fatalf("State() = %v, want connected", p.State())
	}
	if info := p.ServerInfo(); info == nil || info.Name != "test-server" {
		t.Errorf("ServerInfo() = %+v", info)
	}
	if caps := p.Capabilities(); caps == nil || caps.Tools == nil {
		t.Errorf("Capabilities() = %+v, want tools capability", caps)
	}

	tools, err := p.Tools()
	if err != nil {
		t.Fatalf("Tools() error = %v", err)
	}
	var ids []string
	for _, tool := range tools {
		ids = append(ids, tool.ID)
		if tool.Schema.Namespace != "mem" {
			t.Errorf("%s Namespace = %q", tool.ID, tool.Schema.Namespace)
		}
	}
	slices.Sort(ids)
	want := []string{"mem.block", "mem.echo", "mem.env", "mem.fail", "mem.structured"}
	if !slices.Equal(ids, want) {
		t.Errorf("tool ids = %v, want %v", ids, want)
	}

	again, _ := p.Tools()
	if len(again) != len(tools) {
		t.Errorf("Tools() not idempotent: %d then %d", len(tools), len(again))
	}
}

func TestProvider_Call(t *testing.T) {
	p := connectInMemory(t, newTestServer(nil))
	ctx := context.Background()

	got, err := toolByID(t, p, "mem.echo").Handler(ctx, map[string]any{"text": "hello"})
	if err != nil {
		t.Fatalf("echo error = %v", err)
	}
	if got != "hello" {
		t.Errorf("echo = %#v, want hello", got)
	}

	got, err = toolByID(t, p, "mem.structured").Handler(ctx, nil)
	if err != nil {
		t.Fatalf("structured error = %v", err)
	}
	if m, ok := got.(map[string]any); !ok || m["n"] != 1.0 {
		t.Errorf("structured = %#v, want map[n:1]", got)
	}
}

func TestProvider_CallToolError(t *testing.T) {
	p := connectInMemory(t, newTestServer(nil))

	_, err := toolByID(t, p, "mem.fail").Handler(context.Background(), nil)
	var ce *backend.CallError
	if !errors.As(err, &ce) || ce.ToolID != "mem.fail" {
		t.Fatalf("fail error = %v, want *CallError", err)
	}
	if !errors.Is(err, ErrToolFailed) {
		t.Errorf("errors.Is(err, ErrToolFailed) = false: %v", err)
	}
}

func TestProvider_CallCanceled(t *testing.T) {
	p := connectInMemory(t, newTestServer(nil))
	block := toolByID(t, p, "mem.block")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := block.Handler(ctx, nil); !errors.Is(err, backend.ErrCall) {
		t.Fatalf("block error = %v, want CallError", err)
	}

	// The session survives a canceled call.
	got, err := toolByID(t, p, "mem.echo").Handler(context.Background(), map[string]any{"text": "still here"})
	if err != nil || got != "still here" {
		t.Errorf("echo after cancel = %v, %v", got, err)
	}
}

func TestProvider_CallAfterClose(t *testing.T) {
	p := connectInMemory(t, newTestServer(nil))
	echo := toolByID(t, p, "mem.echo")

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	_, err := echo.Handler(context.Background(), map[string]any{"text": "x"})
	var ce *backend.CallError
	if !errors.As(err, &ce) {
		t.Fatalf("call after close error = %v, want *CallError", err)
	}
	if !errors.Is(err, backend.ErrProviderClosed) {
		t.Errorf("errors.Is(err, ErrProviderClosed) = false: %v", err)
	}
	if _, err := p.Tools(); !errors.Is(err, backend.ErrProviderClosed) {
		t.Errorf("Tools() after close error = %v", err)
	}
}

func TestProvider_StateErrors(t *testing.T) {
	p, err := New(remoteDescriptor("idle"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := p.Tools(); !errors.Is(err, backend.ErrNotConnected) {
		t.Errorf("Tools() before connect error = %v, want ErrNotConnected", err)
	}
	if p.Capabilities() != nil || p.ServerInfo() != nil {
		t.Error("handshake data available before connect")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() before connect error = %v", err)
	}
	if err := p.Connect(context.Background()); !errors.Is(err, backend.ErrInvalidState) {
		t.Errorf("Connect() after close error = %v, want ErrInvalidState", err)
	}

	live := connectInMemory(t, newTestServer(nil))
	if err := live.Connect(context.Background()); !errors.Is(err, backend.ErrInvalidState) {
		t.Errorf("second Connect() error = %v, want ErrInvalidState", err)
	}
}

func TestProvider_Pagination(t *testing.T) {
	server := newTestServer(&mcp.ServerOptions{PageSize: 2}, "extra_a", "extra_b", "extra_c")
	p := connectInMemory(t, server)

	tools, err := p.Tools()
	if err != nil {
		t.Fatalf("Tools() error = %v", err)
	}
	if len(tools) != 8 {
		t.Errorf("Tools() returned %d tools, want 8", len(tools))
	}
}

func TestProvider_StreamableHTTP(t *testing.T) {
	server := newTestServer(nil)
	var unauthorized atomic.Int32
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			unauthorized.Add(1)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	d := remoteDescriptor("web")
	d.ServerURL = srv.URL
	d.Headers = map[string]string{"Authorization": "Bearer secret"}

	p, err := New(d, WithConnectTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer p.Close()

	got, err := toolByID(t, p, "web.echo").Handler(context.Background(), map[string]any{"text": "over http"})
	if err != nil {
		t.Fatalf("echo error = %v", err)
	}
	if got != "over http" {
		t.Errorf("echo = %#v", got)
	}
	if n := unauthorized.Load(); n != 0 {
		t.Errorf("%d requests were sent without the descriptor header", n)
	}
}

type staticSource []backend.Descriptor

func (s staticSource) ListDescriptors(context.Context) ([]backend.Descriptor, error) {
	return append([]backend.Descriptor(nil), s...), nil
}

func TestProvider_SSEOutlivesConnect(t *testing.T) {
	server := newTestServer(nil)
	srv := httptest.NewServer(mcp.NewSSEHandler(func(*http.Request) *mcp.Server { return server }, nil))
	t.Cleanup(srv.Close)

	d := remoteDescriptor("s")
	d.Transport = backend.TransportSSE
	d.ServerURL = srv.URL

	agg, err := backend.NewAggregator(backend.Config{
		Source:         staticSource{d},
		Factories:      backend.NewFactoryTable(),
		Connector:      NewConnector(WithConnectTimeout(5 * time.Second)),
		ConnectTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewAggregator() error = %v", err)
	}
	session, err := agg.Aggregate(context.Background(), backend.Principal{UserID: "alice", Role: "admin"})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	if len(session.Failures) != 0 {
		t.Fatalf("Failures = %v", session.Failures)
	}

	for _, text := range []string{"first", "second"} {
		got, err := session.Call(context.Background(), "s.echo", map[string]any{"text": text})
		if err != nil {
			t.Fatalf("call s.echo error = %v", err)
		}
		if got != text {
			t.Errorf("s.echo = %#v, want %q", got, text)
		}
	}
}

// stalledTransport never finishes connecting until released.
type stalledTransport struct {
	release chan struct{}
}

func (t *stalledTransport) Connect(context.Context) (mcp.Connection, error) {
	<-t.release
	return nil, errors.New("released")
}

func TestProvider_ConnectDeadlineBoundsTransport(t *testing.T) {
	stalled := &stalledTransport{release: make(chan struct{})}
	t.Cleanup(func() { close(stalled.release) })

	p, err := New(remoteDescriptor("stuck"), WithTransport(stalled), WithConnectTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	start := time.Now()
	err = p.Connect(context.Background())
	var ce *backend.ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("Connect() error = %v, want *ConnectionError", err)
	}
	if ce.Stage != backend.StageHandshake {
		t.Errorf("Stage = %q, want %q", ce.Stage, backend.StageHandshake)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Connect() took %v, want the connect timeout to apply", elapsed)
	}
	if p.State() != StateFailed {
		t.Errorf("State() = %s, want failed", p.State())
	}
}

func TestProvider_UnreachableURL(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	for _, transport := range []backend.Transport{backend.TransportHTTP, backend.TransportSSE} {
		t.Run(string(transport), func(t *testing.T) {
			d := remoteDescriptor("down")
			d.Transport = transport
			d.ServerURL = url

			p, err := New(d, WithConnectTimeout(5*time.Second))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			err = p.Connect(context.Background())

			var ce *backend.ConnectionError
			if !errors.As(err, &ce) {
				t.Fatalf("Connect() error = %v, want *ConnectionError", err)
			}
			if ce.Backend != "down" || ce.Transport != transport {
				t.Errorf("ConnectionError = %+v", ce)
			}
			if p.State() != StateFailed {
				t.Errorf("State() = %v, want failed", p.State())
			}
			if err := p.Close(); err != nil {
				t.Errorf("Close() after failure error = %v", err)
			}
		})
	}
}

func TestProvider_Stdio(t *testing.T) {
	d := stdioDescriptor(t, "child", map[string]string{
		stdioServerEnv:               "1",
		"TOOLGATE_REMOTE_TEST_VALUE": "from-descriptor",
	})

	p, err := New(d, WithConnectTimeout(10*time.Second), WithTerminateTimeout(time.Second))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	got, err := toolByID(t, p, "child.env").Handler(context.Background(), nil)
	if err != nil {
		t.Fatalf("env error = %v", err)
	}
	if got != "from-descriptor" {
		t.Errorf("env = %#v, want from-descriptor", got)
	}

	echo := toolByID(t, p, "child.echo")
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	_, err = echo.Handler(context.Background(), map[string]any{"text": "x"})
	var ce *backend.CallError
	if !errors.As(err, &ce) || !errors.Is(err, backend.ErrProviderClosed) {
		t.Errorf("call after Close error = %v, want *CallError wrapping ErrProviderClosed", err)
	}
}

func stdioDescriptor(t *testing.T, name string, env map[string]string) backend.Descriptor {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Skipf("cannot locate test binary: %v", err)
	}
	return backend.Descriptor{
		Name:      name,
		Kind:      backend.KindRemote,
		Enabled:   true,
		Transport: backend.TransportStdio,
		Command:   exe,
		Args:      []string{"-test.run=^$"},
		Env:       env,
	}
}

func TestProvider_StdioTerminatedChildClosesCleanly(t *testing.T) {
	d := stdioDescriptor(t, "slow", map[string]string{stdioServerEnv: "1", stdioLingerEnv: "1"})
	p, err := New(d, WithConnectTimeout(10*time.Second), WithTerminateTimeout(200*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	start := time.Now()
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil for a child stopped by the terminate signal", err)
	}
	if elapsed := time.Since(start); elapsed > 30*time.Second {
		t.Errorf("Close() took %v", elapsed)
	}
	if p.State() != StateClosed {
		t.Errorf("State() = %s, want closed", p.State())
	}
}

func TestTerminatedOnClose(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Skipf("cannot locate test binary: %v", err)
	}

	exitErr := func(t *testing.T) error {
		t.Helper()
		cmd := exec.Command(exe, "-test.run=^$")
		cmd.Env = mergeEnv(os.Environ(), map[string]string{exitCodeEnv: "3"})
		return cmd.Run()
	}
	signaled := func(t *testing.T) error {
		t.Helper()
		cmd := exec.Command(exe, "-test.run=^$")
		cmd.Env = mergeEnv(os.Environ(), map[string]string{stdioServerEnv: "1"})
		stdin, err := cmd.StdinPipe()
		if err != nil {
			t.Fatalf("StdinPipe() error = %v", err)
		}
		defer stdin.Close()
		if err := cmd.Start(); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			t.Fatalf("Signal() error = %v", err)
		}
		return cmd.Wait()
	}

	tests := []struct {
		name string
		err  func(t *testing.T) error
		want bool
	}{
		{name: "nil", err: func(*testing.T) error { return nil }, want: false},
		{name: "plain error", err: func(*testing.T) error { return errors.New("closing stdin") }, want: false},
		{name: "exit status", err: exitErr, want: false},
		{name: "sigterm", err: signaled, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.err(t)
			if got := terminatedOnClose(fmt.Errorf("wrapped: %w", err)); got != tt.want {
				t.Errorf("terminatedOnClose(%v) = %v, want %v", err, got, tt.want)
			}
		})
	}
}

func TestProvider_StdioCommandNotFound(t *testing.T) {
	d := backend.Descriptor{
		Name:      "ghost",
		Kind:      backend.KindRemote,
		Transport: backend.TransportStdio,
		Command:   "toolgate-no-such-binary-for-tests",
	}
	p, err := New(d)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	err = p.Connect(context.Background())

	var ce *backend.ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("Connect() error = %v, want *ConnectionError", err)
	}
	if ce.Stage != backend.StageTransport {
		t.Errorf("Stage = %q, want %q", ce.Stage, backend.StageTransport)
	}
}

func TestConnector(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(nil)
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server.Connect() error = %v", err)
	}
	defer ss.Close()

	c := NewConnector(WithTransport(clientTransport), WithClientInfo("toolgate-test", "v1"))
	p, err := c.Connect(ctx, remoteDescriptor("mem"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer p.Close()

	if p.Kind() != backend.KindRemote {
		t.Errorf("Kind() = %q", p.Kind())
	}
	tools, err := p.Tools()
	if err != nil || len(tools) == 0 {
		t.Errorf("Tools() = %d tools, %v", len(tools), err)
	}

	if _, err := c.Connect(ctx, backend.Descriptor{Name: "bad", Kind: backend.KindRemote, Transport: backend.TransportSSE}); !errors.Is(err, backend.ErrConfig) {
		t.Errorf("Connect(invalid) error = %v, want ErrConfig", err)
	}
}

func TestDecodeResult(t *testing.T) {
	tests := []struct {
		name string
		res  *mcp.CallToolResult
		want string
	}{
		{"nil", nil, "<nil>"},
		{"empty", &mcp.CallToolResult{}, "<nil>"},
		{"single text", textResult("hi"), "hi"},
		{"multiple text", &mcp.CallToolResult{Content: []mcp.Content{
			&mcp.TextContent{Text: "a"}, &mcp.TextContent{Text: "b"},
		}}, "map[content:[a b]]"},
		{"structured wins", &mcp.CallToolResult{
			Content:           []mcp.Content{&mcp.TextContent{Text: "ignored"}},
			StructuredContent: map[string]any{"ok": true},
		}, "map[ok:true]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeResult(tt.res)
			if err != nil {
				t.Fatalf("decodeResult() error = %v", err)
			}
			if s := fmt.Sprint(got); s != tt.want {
				t.Errorf("decodeResult() = %s, want %s", s, tt.want)
			}
		})
	}

	res := textResult("bad input")
	res.IsError = true
	if _, err := decodeResult(res); !errors.Is(err, ErrToolFailed) || err.Error() != "remote tool reported an error: bad input" {
		t.Errorf("decodeResult(IsError) error = %v", err)
	}
}

func TestMergeEnv(t *testing.T) {
	got := mergeEnv([]string{"A=1", "B=2"}, map[string]string{"B": "3", "C": "4"})
	want := []string{"A=1", "B=3", "C=4"}
	if !slices.Equal(got, want) {
		t.Errorf("mergeEnv() = %v, want %v", got, want)
	}
}

func TestHTTPClient_Headers(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Api-Key")
	}))
	defer srv.Close()

	if httpClient(nil, nil) != http.DefaultClient {
		t.Error("httpClient without headers should return the base client")
	}
	c := httpClient(nil, map[string]string{"X-Api-Key": "k"})
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()
	if got != "k" {
		t.Errorf("X-Api-Key = %q, want k", got)
	}
}
