package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"

	"github.com/volforge/volmcp/internal/config"
	"github.com/volforge/volmcp/internal/history"
	"github.com/volforge/volmcp/internal/server"
	"github.com/volforge/volmcp/internal/vol"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	// stdout carries the MCP transport, so all logging stays on stderr
	slog.Info("starting volatility MCP server",
		"python", cfg.Python,
		"volatilityDir", cfg.VolatilityDir,
		"entrypoint", cfg.EntryPoint,
	)

	var hist *history.Store
	if cfg.HistoryDB != "" {
		hist, err = history.NewStore(cfg.HistoryDB)
		if err != nil {
			return errors.Wrap(err, "opening history store")
		}
		defer hist.Close()
		slog.Info("invocation history enabled", "path", cfg.HistoryDB)
	}

	analyzer := vol.NewAnalyzer(vol.NewInvoker(cfg))
	srv := server.New(analyzer, hist)

	m := mcp.NewServer(&mcp.Implementation{Name: "VolatilityForensics", Version: "1.0.0"}, nil)
	srv.Register(m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "serving MCP over stdio")
	}

	slog.Info("shutting down")
	return nil
}
