// toolgate aggregates the MCP tool backends a principal may use and serves
// them to an MCP host as a single stdio server.
//
// Backend descriptors come from a YAML/JSON file (--backends) or a SQLite
// database (--database). Local providers bundled with toolgate are
// registered at startup; remote backends are reached over stdio, SSE, or
// streamable HTTP. Backends that fail to start are logged and skipped.
//
// stdout carries the MCP protocol, so logs go to stderr as JSON.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"

	"github.com/jonwraymond/toolgate/backend"
	"github.com/jonwraymond/toolgate/backend/remote"
	"github.com/jonwraymond/toolgate/gateway"
	_ "github.com/jonwraymond/toolgate/providers/all"
	"github.com/jonwraymond/toolgate/source"
)

var version = "dev"

const (
	defaultBackends = "backends.yaml"
	defaultUser     = "user"
	defaultRole     = "admin"
)

type config struct {
	backends       string
	database       string
	user           string
	role           string
	connectTimeout time.Duration
	maxToolCalls   int
	searchTool     bool
	logLevel       slog.Level
	showVersion    bool
}

func main() {
	if err := run(os.Args[1:], os.Getenv, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads flags, falling back to the environment for values the
// command line leaves unset.
func parseFlags(args []string, getenv func(string) string, stderr io.Writer) (config, error) {
	var (
		cfg      config
		logLevel string
	)
	fs := pflag.NewFlagSet("toolgate", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.backends, "backends", "", "backend descriptor file, YAML or JSON (env TOOLGATE_BACKENDS, default "+defaultBackends+")")
	fs.StringVar(&cfg.database, "database", "", "SQLite database holding backend descriptors; overrides --backends")
	fs.StringVarP(&cfg.user, "user", "u", "", "principal user id (env MW_USERNAME, default "+defaultUser+")")
	fs.StringVarP(&cfg.role, "role", "r", "", "principal role (env MW_ROLES, default "+defaultRole+")")
	fs.DurationVar(&cfg.connectTimeout, "connect-timeout", backend.DefaultConnectTimeout, "per-backend connect timeout")
	fs.IntVar(&cfg.maxToolCalls, "max-tool-calls", 0, "maximum tool calls served, 0 for unlimited")
	fs.BoolVar(&cfg.searchTool, "search-tool", false, "expose a "+gateway.SearchToolName+" tool")
	fs.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.BoolVar(&cfg.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if fs.NArg() > 0 {
		return config{}, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	if err := cfg.logLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return config{}, fmt.Errorf("--log-level: %w", err)
	}
	if cfg.connectTimeout < 0 {
		return config{}, fmt.Errorf("--connect-timeout must not be negative")
	}

	cfg.backends = firstNonEmpty(cfg.backends, getenv("TOOLGATE_BACKENDS"), defaultBackends)
	cfg.user = firstNonEmpty(cfg.user, getenv("MW_USERNAME"), defaultUser)
	cfg.role = firstNonEmpty(cfg.role, firstRole(getenv("MW_ROLES")), defaultRole)
	return cfg, nil
}

// firstRole returns the first entry of a comma-separated role list.
func firstRole(roles string) string {
	first, _, _ := strings.Cut(roles, ",")
	return strings.TrimSpace(first)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func run(args []string, getenv func(string) string, stderr io.Writer) error {
	cfg, err := parseFlags(args, getenv, stderr)
	if err != nil {
		return err
	}
	if cfg.showVersion {
		fmt.Fprintf(stderr, "toolgate %s\n", version)
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: cfg.logLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSource, err := openSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	factories := backend.DefaultFactories()
	factories.SetLogger(logger)
	agg, err := backend.NewAggregator(backend.Config{
		Source:         src,
		Factories:      factories,
		Connector:      remote.NewConnector(remote.WithClientInfo("toolgate", version), remote.WithLogger(logger)),
		ConnectTimeout: cfg.connectTimeout,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	principal := backend.Principal{UserID: cfg.user, Role: cfg.role}
	session, err := agg.Aggregate(ctx, principal)
	if err != nil {
		return fmt.Errorf("aggregate for %s: %w", principal, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("session close error", "session", session.ID, "error", err)
		}
	}()

	err = gateway.Serve(ctx, session, &mcp.StdioTransport{}, gateway.Options{
		Name:         "toolgate",
		Version:      version,
		MaxToolCalls: cfg.maxToolCalls,
		SearchTool:   cfg.searchTool,
		Logger:       logger,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// openSource returns the descriptor source selected by cfg and a function
// releasing it.
func openSource(ctx context.Context, cfg config, logger *slog.Logger) (backend.Source, func(), error) {
	if cfg.database == "" {
		logger.Debug("using descriptor file", "path", cfg.backends)
		return source.NewFile(cfg.backends), func() {}, nil
	}

	db, err := source.OpenSQLite(source.SQLiteConfig{Path: cfg.database, Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}
