package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/enjoysite/friendmap/config"
	"github.com/enjoysite/friendmap/internal/client"
	"github.com/enjoysite/friendmap/internal/client/api"
	"github.com/enjoysite/friendmap/internal/client/geo"
	"github.com/enjoysite/friendmap/internal/client/storage"
	"github.com/enjoysite/friendmap/internal/identity"
	"github.com/enjoysite/friendmap/internal/mapview"
	"github.com/enjoysite/friendmap/internal/tui"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	server := flag.String("server", cfg.ServerURL, "friendmap API base URL (FRIENDMAP_SERVER)")
	lat := flag.String("lat", cfg.Latitude, "latitude reported when publishing (FRIENDMAP_LAT)")
	lng := flag.String("lng", cfg.Longitude, "longitude reported when publishing (FRIENDMAP_LNG)")
	statePath := flag.String("state", cfg.StatePath, "local state file (FRIENDMAP_STATE, default ~/.config/friendmap/state.yaml)")
	logPath := flag.String("log", cfg.LogPath, "write logs to this file (FRIENDMAP_LOG); the terminal is used by the UI")
	flag.Parse()

	logger, err := newLogger(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *statePath == "" {
		p, err := storage.DefaultStatePath()
		if err != nil {
			logger.Fatal("failed to resolve state path", zap.Error(err))
		}
		*statePath = p
	}

	gate, err := identity.NewAllowList(cfg.AllowedNames)
	if err != nil {
		logger.Fatal("invalid allow-list", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiClient := api.NewClient(*server)
	session := client.NewSession(gate, apiClient, storage.NewStateFile(*statePath), logger)
	publisher := client.NewPublisher(session, geo.FromStrings(*lat, *lng), apiClient, logger)
	feed := client.NewFeed(session, apiClient, logger)
	board := mapview.NewBoard()

	model := tui.New(ctx, tui.Deps{
		Session:   session,
		Publisher: publisher,
		Feed:      feed,
		Board:     board,
		Renderer:  mapview.NewRenderer(board),
		Logger:    logger,
	})

	logger.Info("starting friendmap client", zap.String("server", *server), zap.String("state", *statePath))

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		logger.Error("ui exited with error", zap.Error(err))
		feed.Stop()
		os.Exit(1)
	}
	feed.Stop()
}

// newLogger writes to path when given and discards logs otherwise, since the
// UI owns the terminal.
func newLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}
