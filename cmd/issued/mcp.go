package main

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/issuetracker/internal/config"
	"github.com/fyrsmithlabs/issuetracker/internal/mcp"
)

// runMCP serves the issue tools on stdio until the client disconnects or
// ctx is cancelled. Logs go to stderr.
func runMCP(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	app, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer app.Close()

	srv, err := mcp.NewServer(app.store, &mcp.Config{
		Name:    "issuetracker",
		Version: version,
		Logger:  app.logger.Underlying(),
	})
	if err != nil {
		return fmt.Errorf("failed to create mcp server: %w", err)
	}
	return srv.Run(ctx)
}
