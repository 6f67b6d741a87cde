package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vrsandeep/cne-console/internal/api"
	"github.com/vrsandeep/cne-console/internal/core"
	"github.com/vrsandeep/cne-console/internal/inbox"
	"github.com/vrsandeep/cne-console/internal/logger"
	"github.com/vrsandeep/cne-console/internal/util"
)

var version = "dev"

func main() {
	// A .env file is optional; CNE_* variables may come from the environment.
	_ = godotenv.Load()

	app, err := core.New(version)
	if err != nil {
		logger.NewDefault().Error("Fatal error during application setup", "error", err)
		os.Exit(1)
	}
	defer app.Close()
	log := app.Logger

	if err := util.EnsureDir(app.Config.Downloads.Path); err != nil {
		log.Warn("Downloads directory is not usable", "path", app.Config.Downloads.Path, "error", err)
	}

	app.Start()

	if path := app.Config.Inbox.Path; path != "" {
		watcher := inbox.NewWatcher(path, app.Inbox, inbox.WatcherOptions{
			InferOnly: app.Config.Inbox.InferOnly,
			Debounce:  app.Config.Inbox.Debounce,
			Rejects:   app.Store,
			Logger:    log,
		})
		if err := watcher.Start(); err != nil {
			log.Error("Could not start inbox watcher", "path", path, "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	server := api.NewServer(app)
	defer server.Close()
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.Config.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting web server", "addr", httpServer.Addr, "backend", app.Config.Backend.BaseURL, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Could not start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	log.Info("Server exiting")
}
