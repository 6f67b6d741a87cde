package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/vrsandeep/cne-console/internal/api"
	"github.com/vrsandeep/cne-console/internal/config"
	"github.com/vrsandeep/cne-console/internal/core"
	"github.com/vrsandeep/cne-console/internal/logger"
)

// SetupTestApp wires a running core.App against a fresh in-memory database
// and a FakeBackend. The tracker refresh interval is long enough that only
// explicit changes trigger requests.
func SetupTestApp(t *testing.T) (*core.App, *FakeBackend) {
	t.Helper()
	backend := NewFakeBackend(t)

	cfg := config.Default()
	cfg.Backend.BaseURL = backend.URL
	cfg.Backend.Timeout = 5 * time.Second
	cfg.Tracker.RefreshInterval = time.Hour
	cfg.Poll.Interval = 10 * time.Millisecond
	cfg.Preview.RequestSize = 10
	cfg.Preview.PageSize = 5

	app := core.Wire(cfg, SetupTestDB(t), logger.Discard(), http.DefaultTransport)
	app.Version = "test"
	app.Start()
	t.Cleanup(app.Close)
	return app, backend
}

// SetupTestServer initializes a full core.App and api.Server for integration testing.
func SetupTestServer(t *testing.T) (*api.Server, *core.App, *FakeBackend) {
	t.Helper()
	app, backend := SetupTestApp(t)
	server := api.NewServer(app)
	t.Cleanup(server.Close)
	return server, app, backend
}
