package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"flyhard/internal/api"
	"flyhard/internal/config"
	"flyhard/internal/database"
	"flyhard/internal/match"
	"flyhard/internal/registry"
	"flyhard/internal/router"
	"flyhard/internal/scores"
	"flyhard/internal/websocket"
	"flyhard/pkg/interfaces"
)

// Application coordinates all system components. Initialization follows
// strict dependency order: Datalog -> Registry -> Reaper -> Ledger ->
// Coordinator -> Router -> Transports -> HTTP.
type Application struct {
	config     *config.Config
	log        *zap.Logger
	datalog    *database.Store
	registry   *registry.Registry
	reaper     *registry.Reaper
	ledger     *scores.Ledger
	apiServer  *api.Server
	httpServer *http.Server
}

// NewApplication builds the full component graph. The datalog store is
// optional: an empty path disables payload persistence.
func NewApplication(cfg *config.Config, log *zap.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var datalog *database.Store
	if cfg.Datalog.Path != "" {
		store, err := database.NewStore(cfg.Datalog.Path, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open datalog: %w", err)
		}
		datalog = store
	}

	reg := registry.New(cfg.Game.MaxClients, log)
	reaper := registry.NewReaper(reg, cfg.Game.IdleTimeout, cfg.Game.ReapInterval, log)
	// The reaper runs only once a first client exists.
	reg.OnCreate(reaper.Start)

	ledger := scores.NewLedger()
	coordinator := match.NewCoordinator(reg, ledger, log)

	// A nil *Store must not become a non-nil interface value.
	var recorder interfaces.PayloadRecorder
	if datalog != nil {
		recorder = datalog
	}
	rt := router.New(reg, coordinator, recorder, log)

	gate := api.NewVersionGate(cfg.Game.PermittedVersions)
	apiServer := api.NewServer(rt, reg, ledger, gate, log)
	wsHandler := websocket.NewHandler(rt, gate, log)

	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleConnection)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		log:        log,
		datalog:    datalog,
		registry:   reg,
		reaper:     reaper,
		ledger:     ledger,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start begins serving and returns once the listener is up or the startup
// failed.
func (app *Application) Start(ctx context.Context) error {
	app.log.Info("starting server", zap.String("addr", app.httpServer.Addr))

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-time.After(100 * time.Millisecond):
		app.log.Info("server ready")
	}
	return nil
}

// Stop shuts down in reverse dependency order: listener, reaper, datalog.
func (app *Application) Stop(ctx context.Context) error {
	app.log.Info("shutting down")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		app.log.Warn("http shutdown failed", zap.Error(err))
		_ = app.httpServer.Close()
	}

	app.reaper.Stop()

	if app.datalog != nil {
		if err := app.datalog.Close(); err != nil {
			return fmt.Errorf("failed to close datalog: %w", err)
		}
	}

	app.log.Info("shutdown complete")
	return nil
}

// Registry exposes the client registry for administrative inspection.
func (app *Application) Registry() *registry.Registry {
	return app.registry
}
