// Issued serves the in-memory issue tracker over HTTP, or over MCP stdio.
//
// Configuration is loaded from ~/.config/issuetracker/config.yaml (or the
// file given by -config) and environment variables. See internal/config.
//
// Usage:
//
//	# Start the HTTP API on the configured port
//	issued
//
//	# Serve MCP tools on stdin/stdout
//	issued mcp
//
//	# Override via environment
//	SERVER_HTTP_PORT=8080 EVENTS_ENABLED=true issued
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/issuetracker/internal/config"
	"github.com/fyrsmithlabs/issuetracker/internal/events"
	httpapi "github.com/fyrsmithlabs/issuetracker/internal/http"
	"github.com/fyrsmithlabs/issuetracker/internal/issue"
	"github.com/fyrsmithlabs/issuetracker/internal/logging"
	"github.com/fyrsmithlabs/issuetracker/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/issuetracker/config.yaml)")
	flag.Parse()
	args := flag.Args()

	mode := "http"
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		case "mcp":
			mode = "mcp"
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  issued           Start the HTTP API\n")
			fmt.Fprintf(os.Stderr, "  issued mcp       Serve MCP tools over stdio\n")
			fmt.Fprintf(os.Stderr, "  issued version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	if mode == "mcp" {
		err = runMCP(ctx, *configPath)
	} else {
		err = run(ctx, *configPath)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("issued: %v", err)
	}
}

func printVersion() {
	fmt.Printf("issued by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the HTTP API and blocks until ctx is cancelled.
// Returns http.ErrServerClosed on graceful shutdown.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	app, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer app.Close()

	srv, err := httpapi.NewServer(app.store, app.logger, &httpapi.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	app.logger.Info(ctx, "issued configured",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("id_format", cfg.Store.IDFormat),
		zap.Bool("events", app.nc != nil),
		zap.Bool("telemetry", app.telemetry.IsEnabled()),
		zap.Strings("telemetry_degraded", app.telemetry.Degraded()),
	)

	return srv.Start(ctx)
}

// app holds the dependencies shared by the HTTP and MCP modes.
type app struct {
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	store     *issue.Store
	nc        *nats.Conn
}

// newApp wires logging, telemetry, the optional change feed and the store.
// quiet routes logs to stderr for stdio transports.
func newApp(ctx context.Context, cfg *config.Config, quiet bool) (*app, error) {
	logger, err := initLogger(cfg, quiet)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Observability, version), logger.Underlying())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	ids, err := issue.NewIDGenerator(cfg.Store.IDFormat)
	if err != nil {
		return nil, err
	}

	a := &app{logger: logger, telemetry: tel}
	opts := []issue.Option{
		issue.WithIDGenerator(ids),
		issue.WithMetrics(issue.NewMetrics(logger.Underlying())),
	}

	if cfg.Events.Enabled {
		nc, err := events.Connect(cfg.Events.NATSURL, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize events: %w", err)
		}
		pub, err := events.NewPublisher(nc, cfg.Events.SubjectPrefix, logger)
		if err != nil {
			nc.Close()
			a.Close()
			return nil, err
		}
		a.nc = nc
		opts = append(opts, issue.WithObserver(pub))
		logger.Info(ctx, "publishing issue events",
			zap.String("url", cfg.Events.NATSURL),
			zap.String("prefix", cfg.Events.SubjectPrefix))
	}

	a.store = issue.NewStore(opts...)
	return a, nil
}

// Close drains the broker connection and flushes telemetry and logs.
func (a *app) Close() {
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			a.nc.Close()
		}
	}
	if err := a.telemetry.Shutdown(context.Background()); err != nil {
		a.logger.Warn(context.Background(), "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func initLogger(cfg *config.Config, quiet bool) (*logging.Logger, error) {
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	lc := logging.NewDefaultConfig()
	lc.Level = level
	lc.Format = cfg.Logging.Format
	if quiet {
		lc.Output = logging.OutputConfig{Stderr: true}
	}
	lc.Fields["version"] = version

	if !cfg.Observability.EnableTelemetry {
		return logging.NewLogger(lc, nil)
	}
	lc.Output.OTEL = true
	return logging.NewLogger(lc, global.GetLoggerProvider())
}
