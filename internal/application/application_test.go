package application

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/spacing-calculator/internal/config"
	"github.com/eugenenazirov/spacing-calculator/internal/session"
	"github.com/eugenenazirov/spacing-calculator/internal/spacer"
	"github.com/eugenenazirov/spacing-calculator/internal/storage"
)

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(":8085")
	logger := zaptest.NewLogger(t)

	app, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if app.server == nil || app.router == nil || app.handler == nil {
		t.Fatalf("expected server, router, and handler to be initialized")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}

	var names []string
	_ = app.handler.WithState(func(s *session.State) error {
		for _, sp := range s.Registry.Spacers() {
			names = append(names, sp.Name)
		}
		return nil
	})
	if len(names) != 2 || names[0] != "Half" || names[1] != "Tenth" {
		t.Fatalf("expected seeded spacers in thickness order, got %v", names)
	}
}

func TestNewRestoresSavedState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	saved, err := session.New([]spacer.Definition{{Name: "Saved", Thickness: 300_000, Enabled: true}})
	if err != nil {
		t.Fatalf("session.New returned error: %v", err)
	}
	if err := storage.Save(context.Background(), storage.NewFileStorage(path), saved); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	cfg := baseTestConfig(":0")
	cfg.StateBackend = storage.BackendFile
	cfg.StatePath = path

	app, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_ = app.handler.WithState(func(s *session.State) error {
		got := s.Registry.Spacers()
		if len(got) != 1 || got[0].Name != "Saved" {
			t.Fatalf("expected saved inventory, got %+v", got)
		}
		return nil
	})
}

func TestNewFallsBackOnCorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write state: %v", err)
	}

	cfg := baseTestConfig(":0")
	cfg.StateBackend = storage.BackendFile
	cfg.StatePath = path

	app, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_ = app.handler.WithState(func(s *session.State) error {
		if s.Registry.Len() != len(cfg.Spacers) {
			t.Fatalf("expected seeded inventory, got %d spacers", s.Registry.Len())
		}
		return nil
	})
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.StateBackend = "etcd"

	if _, err := New(cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestShutdownSavesState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	cfg := baseTestConfig(":0")
	cfg.StateBackend = storage.BackendSQLite
	cfg.StatePath = path

	app, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	rec := serve(app, http.MethodPost, "/api/spacers", `{"name":"Quarter","thickness":"0.25"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	store, err := storage.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	defer store.Close()

	state, err := storage.Load(context.Background(), store, cfg.Spacers)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if state.Registry.Len() != 3 {
		t.Fatalf("expected added spacer to be persisted, got %d spacers", state.Registry.Len())
	}
}

func TestShutdownSavesAfterGracePeriodExpired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	cfg := baseTestConfig(":0")
	cfg.StateBackend = storage.BackendFile
	cfg.StatePath = path

	app, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	rec := serve(app, http.MethodPost, "/api/spacers", `{"name":"Quarter","thickness":"0.25"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	state, err := storage.Load(context.Background(), storage.NewFileStorage(path), cfg.Spacers)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if state.Registry.Len() != 3 {
		t.Fatalf("expected added spacer to be persisted, got %d spacers", state.Registry.Len())
	}
}

func TestShutdownReportsSaveFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	cfg := baseTestConfig(":0")
	cfg.StateBackend = storage.BackendFile
	cfg.StatePath = filepath.Join(blocker, "state.json")

	app, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if err := app.Shutdown(context.Background()); err == nil {
		t.Fatalf("expected save failure to be reported")
	}
}

func TestAutosaveWritesDirtyState(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.AutosaveInterval = 5 * time.Millisecond

	app, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	app.startAutosave()
	t.Cleanup(app.waitAutosave)

	rec := serve(app, http.MethodPost, "/api/fit", `{"target":"0.6"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		data, err := app.storage.Read(context.Background())
		if err == nil && strings.Contains(string(data), `"0.6"`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("autosave did not persist the draft target")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if app.dirty.Load() {
		t.Fatalf("expected dirty flag to be cleared after autosave")
	}
}

func TestRootHandlerServesSummaryPage(t *testing.T) {
	app, err := New(baseTestConfig(":0"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	rec := serve(app, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Tenth") {
		t.Fatalf("expected summary page to list spacers")
	}

	if rec := serve(app, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected health 200, got %d", rec.Code)
	}
}

func serve(app *App, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	return rec
}

func baseTestConfig(port string) config.Config {
	return config.Config{
		Port:                 port,
		StateBackend:         storage.BackendMemory,
		ShutdownGracePeriod:  50 * time.Millisecond,
		ReadHeaderTimeout:    20 * time.Millisecond,
		WriteTimeout:         30 * time.Millisecond,
		IdleTimeout:          40 * time.Millisecond,
		EnableRequestLogging: false,
		RateLimitRPS:         0,
		RateLimitBurst:       0,
		Spacers: []spacer.Definition{
			{Name: "Tenth", Thickness: 100_000, Enabled: true},
			{Name: "Half", Thickness: 500_000, Enabled: true},
		},
	}
}
