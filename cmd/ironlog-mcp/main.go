package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/ironlog/internal/config"
	"github.com/meltforce/ironlog/internal/mcp"
	"github.com/meltforce/ironlog/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("url", "", "IronLog server base URL (e.g. http://ironlog:80); remote mode")
	configPath := flag.String("config", "", "path to config file; local database mode")
	flag.Parse()

	// stdout carries the MCP protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ds, cleanup, err := buildDataSource(*serverURL, *configPath, log)
	if err != nil {
		log.Error("failed to initialize data source", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	s := mcp.New(ds, Version, log)
	log.Info("IronLog MCP server starting", "version", Version)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}

// buildDataSource picks remote (REST over the tailnet) or local (direct
// database) mode. Exactly one of url and configPath must be set.
func buildDataSource(url, configPath string, log *slog.Logger) (mcp.DataSource, func(), error) {
	switch {
	case url != "" && configPath != "":
		return nil, nil, fmt.Errorf("-url and -config are mutually exclusive")
	case url != "":
		return mcp.NewHTTPClient(url), func() {}, nil
	case configPath != "":
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		db, err := storage.New(context.Background(), cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("connecting database: %w", err)
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("one of -url or -config is required")
	}
}
