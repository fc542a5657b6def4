// Package app wires the process-wide components both binaries share.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"outreach_engine/internal/browser"
	"outreach_engine/internal/campaign"
	"outreach_engine/internal/config"
	"outreach_engine/internal/content"
	"outreach_engine/internal/logbus"
	"outreach_engine/internal/metrics"
	"outreach_engine/internal/store/sqlite"
)

type App struct {
	Cfg      config.Config
	Logger   *zap.Logger
	Bus      *logbus.Bus
	Store    *sqlite.Store
	Content  campaign.ContentSource
	Launcher *browser.Launcher
	Metrics  *metrics.Collector
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logbus.NewZap(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	bus := logbus.New(cfg.Log.BufferSize).WithLogger(logger)

	store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	src, err := content.New(ctx, cfg.Content, bus)
	if err != nil {
		_ = store.Close()
		_ = logger.Sync()
		return nil, fmt.Errorf("content source: %w", err)
	}

	return &App{
		Cfg:     cfg,
		Logger:  logger,
		Bus:     bus,
		Store:   store,
		Content: src,
		Launcher: browser.NewLauncher(browser.Options{
			Browser:  cfg.Browser,
			Sessions: store,
			Bus:      bus,
		}),
		Metrics: metrics.NewCollector(),
	}, nil
}

func (a *App) Close() {
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn("close sqlite", zap.Error(err))
	}
	a.Bus.Close()
	_ = a.Logger.Sync()
}
