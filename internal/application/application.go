package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/spacing-calculator/internal/api"
	"github.com/eugenenazirov/spacing-calculator/internal/calculator"
	"github.com/eugenenazirov/spacing-calculator/internal/config"
	"github.com/eugenenazirov/spacing-calculator/internal/session"
	"github.com/eugenenazirov/spacing-calculator/internal/storage"
)

// finalSaveTimeout bounds the save made on shutdown. It is independent of the
// server's grace period, which may already be spent by then.
const finalSaveTimeout = 5 * time.Second

// App encapsulates the application dependencies and HTTP server.
type App struct {
	cfg        config.Config
	storage    storage.Storage
	calculator calculator.Calculator
	handler    *api.Handler
	router     http.Handler
	logger     *zap.Logger
	server     *http.Server

	dirty        atomic.Bool
	stopAutosave context.CancelFunc
	autosaveDone chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error
}

// New initializes the application with all dependencies from the provided configuration.
// The saved session is loaded from the configured backend; a missing or
// unreadable one is replaced by a fresh session seeded from cfg.Spacers.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store, err := storage.Open(cfg.StateBackend, cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state storage: %w", err)
	}

	state, err := storage.LoadOrDefault(context.Background(), store, cfg.Spacers, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	app := &App{
		cfg:        cfg,
		storage:    store,
		calculator: calculator.New(),
		logger:     logger,
	}

	app.handler = api.NewHandler(app.calculator, state,
		api.WithSeed(cfg.Spacers),
		api.WithChangeHook(app.markDirty),
	)
	app.router = api.NewRouter(app.handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)
	app.server = NewServer(cfg, BuildRootHandler(app.router, app.handler.Index()))

	return app, nil
}

// BuildRootHandler constructs the root HTTP handler that serves the summary page and routes API requests.
func BuildRootHandler(apiHandler, indexHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", indexHandler)
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server and the autosave loop in goroutines.
func (a *App) Start() error {
	a.startAutosave()

	go func() {
		a.logger.Info("server listening",
			zap.String("addr", a.server.Addr),
			zap.String("state_backend", string(a.cfg.StateBackend)),
			zap.String("state_path", a.cfg.StatePath),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Save writes the current session to storage.
func (a *App) Save(ctx context.Context) error {
	return a.handler.WithState(func(state *session.State) error {
		a.dirty.Store(false)
		if err := storage.Save(ctx, a.storage, state); err != nil {
			a.dirty.Store(true)
			return err
		}
		return nil
	})
}

// Shutdown stops the server, writes the final session and closes storage.
// A failed final save is returned; server shutdown problems are only logged.
// Subsequent calls return the first result.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warn("graceful shutdown failed", zap.Error(err))
			if closeErr := a.server.Close(); closeErr != nil {
				a.logger.Error("forced close failed", zap.Error(closeErr))
			}
		}

		a.waitAutosave()

		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalSaveTimeout)
		defer cancel()
		saveErr := a.Save(saveCtx)
		if saveErr != nil {
			a.logger.Error("failed to save state", zap.Error(saveErr))
		} else {
			a.logger.Info("state saved", zap.String("state_path", a.cfg.StatePath))
		}

		closeErr := a.storage.Close()
		if closeErr != nil {
			a.logger.Warn("failed to close state storage", zap.Error(closeErr))
		}

		a.shutdownErr = errors.Join(saveErr, closeErr)
	})
	return a.shutdownErr
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) markDirty() {
	a.dirty.Store(true)
}

// startAutosave periodically writes the session while it has unsaved changes.
// A non-positive interval disables autosave; the session is still written on
// shutdown.
func (a *App) startAutosave() {
	if a.cfg.AutosaveInterval <= 0 || a.stopAutosave != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopAutosave = cancel
	a.autosaveDone = make(chan struct{})

	go func() {
		defer close(a.autosaveDone)
		ticker := time.NewTicker(a.cfg.AutosaveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !a.dirty.Load() {
					continue
				}
				if err := a.Save(ctx); err != nil {
					a.logger.Warn("autosave failed", zap.Error(err))
					continue
				}
				a.logger.Debug("autosaved state")
			}
		}
	}()
}

func (a *App) waitAutosave() {
	if a.stopAutosave == nil {
		return
	}
	a.stopAutosave()
	<-a.autosaveDone
}
