// Package logging provides structured logging for issuetracker.
//
// # Overview
//
// Logging wraps Zap with:
//   - A Trace level (-2, below Debug)
//   - Stdout or stderr output plus an optional OpenTelemetry bridge
//   - Context field injection (trace_id, span_id, request.id, project)
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithProject(ctx, "apitest")
//	logger.Info(ctx, "issue created", zap.String("issue.id", id))
//
// # Testing
//
// TestLogger records entries in memory:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "issue created")
//	tl.AssertLogged(t, zapcore.InfoLevel, "issue created")
package logging
