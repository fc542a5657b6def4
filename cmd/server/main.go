package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach_engine/internal/app"
	"outreach_engine/internal/campaign"
	"outreach_engine/internal/config"
	"outreach_engine/internal/engine"
	"outreach_engine/internal/httpapi"
	"outreach_engine/internal/notify"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to config.yaml")
	flag.Parse()

	cfg, found, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer a.Close()
	bus := a.Bus
	bus.Log("info", "server starting", map[string]any{"addr": cfg.Server.Addr, "provider": cfg.Content.Provider})
	if !found {
		bus.Log("warn", "config file not found, using defaults", map[string]any{"path": *configPath})
	}

	if n, err := a.Store.FailRunningTasks(ctx, "interrupted by restart"); err != nil {
		bus.Log("warn", "recover running tasks failed", map[string]any{"error": err.Error()})
	} else if n > 0 {
		bus.Log("warn", "tasks left running by previous process marked as error", map[string]any{"count": n})
	}

	notifier := notify.NewEmailNotifier(a.Store, cfg.Notify, bus)
	eng := engine.New(engine.Options{
		Store:    a.Store,
		Opener:   a.Launcher,
		Content:  a.Content,
		Bus:      bus,
		Metrics:  a.Metrics,
		Notifier: notifier,
		Limits:   cfg.Limits,
		Settings: campaign.SettingsFromConfig(cfg),
	})

	api := httpapi.New(httpapi.Options{
		Cfg:     cfg,
		Bus:     bus,
		Store:   a.Store,
		Engine:  eng,
		Metrics: a.Metrics,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		bus.Log("info", "shutdown signal received", map[string]any{"signal": sig.String()})
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			bus.Log("error", "http server error", map[string]any{"error": err.Error()})
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_ = server.Shutdown(shutdownCtx)
	if err := eng.Close(shutdownCtx); err != nil {
		bus.Log("warn", "engine did not stop in time", map[string]any{"error": err.Error()})
	}
	_ = notifier.Close(shutdownCtx)
	bus.Log("info", "server stopped", nil)
}
