package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"slices"
	"strings"
	"syscall"

	"github.com/jonwraymond/toolgate/backend"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// newTransport builds the client transport for a descriptor.
func newTransport(d backend.Descriptor, o options) (mcp.Transport, error) {
	if o.transport != nil {
		return o.transport, nil
	}
	switch d.Transport {
	case backend.TransportStdio:
		cmd := exec.Command(d.Command, d.Args...)
		if cmd.Err != nil {
			return nil, cmd.Err
		}
		cmd.Dir = d.Dir
		if len(d.Env) > 0 {
			cmd.Env = mergeEnv(os.Environ(), d.Env)
		}
		cmd.Stderr = os.Stderr
		return &mcp.CommandTransport{Command: cmd, TerminateDuration: o.terminateTimeout}, nil
	case backend.TransportSSE:
		return &mcp.SSEClientTransport{Endpoint: d.ServerURL, HTTPClient: httpClient(o.httpClient, d.Headers)}, nil
	case backend.TransportHTTP:
		return &mcp.StreamableClientTransport{Endpoint: d.ServerURL, HTTPClient: httpClient(o.httpClient, d.Headers)}, nil
	default:
		return nil, fmt.Errorf("unsupported transport %q", d.Transport)
	}
}

// detachedTransport connects its inner transport with a context that is never
// canceled, so long-lived streams (the SSE event stream in particular) outlive
// the connect deadline. The deadline still bounds the wait: if ctx ends first,
// Connect returns ctx.Err() and closes the connection once it arrives.
type detachedTransport struct {
	inner mcp.Transport
}

func (t detachedTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	type result struct {
		conn mcp.Connection
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := t.inner.Connect(context.WithoutCancel(ctx))
		done <- result{conn: conn, err: err}
	}()

	select {
	case r := <-done:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil {
				_ = r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// terminatedOnClose reports whether err is a child exit caused by the
// shutdown signals sent after the terminate timeout.
func terminatedOnClose(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return false
	}
	return status.Signal() == syscall.SIGTERM || status.Signal() == syscall.SIGKILL
}

// mergeEnv overlays extra onto base, which is in os.Environ form.
func mergeEnv(base []string, extra map[string]string) []string {
	env := make(map[string]string, len(base)+len(extra))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	for k, v := range extra {
		env[k] = v
	}
	merged := make([]string, 0, len(env))
	for k, v := range env {
		merged = append(merged, k+"="+v)
	}
	slices.Sort(merged)
	return merged
}

// httpClient returns base, or a copy of it that sends headers on every
// request.
func httpClient(base *http.Client, headers map[string]string) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	if len(headers) == 0 {
		return base
	}
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	c := *base
	c.Transport = &headerTransport{base: rt, headers: headers}
	return &c
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
