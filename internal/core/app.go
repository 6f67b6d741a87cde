package core

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vrsandeep/cne-console/internal/assets"
	"github.com/vrsandeep/cne-console/internal/backend"
	"github.com/vrsandeep/cne-console/internal/config"
	"github.com/vrsandeep/cne-console/internal/db"
	"github.com/vrsandeep/cne-console/internal/inbox"
	"github.com/vrsandeep/cne-console/internal/jobs"
	"github.com/vrsandeep/cne-console/internal/logger"
	"github.com/vrsandeep/cne-console/internal/models"
	"github.com/vrsandeep/cne-console/internal/store"
	"github.com/vrsandeep/cne-console/internal/websocket"
)

// App holds the core components of the application that are shared
// between the server and the CLI.
type App struct {
	Config  *config.Config
	DB      *sql.DB
	Store   *store.Store
	Client  *backend.Client
	Tracker *jobs.Tracker
	Inbox   *inbox.Service
	WsHub   *websocket.Hub
	Logger  *slog.Logger
	Version string
}

// New loads the configuration, opens and migrates the database and wires
// the backend client, tracker and websocket hub. Nothing runs until the
// caller starts the hub and the tracker.
func New(version string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(database, assets.MigrationsFS, log); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	app := Wire(cfg, database, log, http.DefaultTransport)
	app.Version = version
	log.Debug("Core application setup complete", "backend", cfg.Backend.BaseURL, "database", cfg.Database.Path)
	return app, nil
}

// Wire builds an App around an open, migrated database.
func Wire(cfg *config.Config, database *sql.DB, log *slog.Logger, transport http.RoundTripper) *App {
	hub := websocket.NewHubWithLogger(log)
	st := store.New(database)

	opts := []backend.Option{
		backend.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout, Transport: transport}),
		backend.WithLogger(log),
	}
	if cfg.Poll.Interval > 0 {
		opts = append(opts, backend.WithPollInterval(cfg.Poll.Interval))
	}
	client := backend.NewClient(cfg.Backend.BaseURL, opts...)

	tracker := jobs.NewTracker(client, st, jobs.TrackerOptions{
		Interval:    cfg.Tracker.RefreshInterval,
		MaxParallel: cfg.Tracker.MaxParallel,
		Logger:      log,
		OnChange:    func(ev models.JobEvent) { hub.BroadcastJSON(ev) },
	})

	return &App{
		Config:  cfg,
		DB:      database,
		Store:   st,
		Client:  client,
		Tracker: tracker,
		Inbox:   inbox.NewService(client, tracker, st, log),
		WsHub:   hub,
		Logger:  log,
	}
}

// Start runs the websocket hub and begins refreshing tracked jobs.
func (a *App) Start() {
	go a.WsHub.Run()
	a.Tracker.Start()
}

// Close stops the tracker and the hub and closes the database.
func (a *App) Close() {
	if a.Tracker != nil {
		a.Tracker.Close()
	}
	if a.WsHub != nil {
		a.WsHub.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
