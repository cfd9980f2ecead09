package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"qcpulse/internal/config"
	"qcpulse/internal/coordinator"
	apierrors "qcpulse/internal/errors"
	"qcpulse/internal/infrastructure"
	customMiddleware "qcpulse/internal/middleware"
	"qcpulse/internal/services"
	"qcpulse/internal/store"
	handlers "qcpulse/internal/transport/http"
	ws "qcpulse/internal/websocket"
	"qcpulse/pkg/contracts"
	"qcpulse/pkg/contracts/domain"
)

const AppName = "QCPulse - SPC monitoring for QC measurements"

// Application is the main application container.
type Application struct {
	Config      *config.Config
	Logger      *slog.Logger
	Router      *chi.Mux
	Server      *http.Server
	Store       *store.ExcelStore
	Watcher     *store.Watcher
	Hub         *ws.Hub
	Coordinator *coordinator.Coordinator

	seriesService *services.SeriesService
	healthService *services.HealthService
}

// NewApplication creates a fully wired application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.GetFullVersionString()))

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	a := &Application{
		Config: cfg,
		Logger: logger,
	}

	a.Store = store.NewExcelStore(cfg.Paths.WorkbookPath(), logger)
	a.Hub = ws.NewHub(logger)
	a.Coordinator = coordinator.New(a.Store, a.Hub, logger)

	// The hub greets new viewers with the authoritative snapshot and feeds
	// editor updates straight into the coordinator.
	a.Hub.SetSnapshotProvider(a.Coordinator.CurrentSeries)
	a.Hub.OnIncomingUpdate(func(ctx context.Context, series domain.Series, origin string) {
		a.Coordinator.ApplyUpdate(infrastructure.EnsureTraceID(ctx), series, origin)
	})

	a.Watcher = store.NewWatcher(a.Store, func() {
		ctx := infrastructure.EnsureTraceID(context.Background())
		a.Coordinator.ReloadFromStore(ctx)
	}, logger)

	a.seriesService = services.NewSeriesService(a.Coordinator, logger)
	a.healthService = services.NewHealthService(a.Coordinator, a.Hub)

	a.setupRouter()
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return a, nil
}

// setupRouter configures the HTTP router with all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware first; it must not wrap the ResponseWriter or the
	// websocket upgrade breaks.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.HandleFunc("/ws", a.handleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	errorHandler := apierrors.NewErrorHandler(a.Logger)
	seriesHandler := handlers.NewSeriesHandler(a.seriesService, a.Logger, errorHandler)
	healthHandler := handlers.NewHealthHandler(a.healthService, a.Logger)

	rateLimiter := customMiddleware.NewRateLimiter(
		a.Config.Server.RateLimitRPS, a.Config.Server.RateLimitBurst, a.Logger)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(rateLimiter.Handler)
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Route("/api", func(r chi.Router) {
			r.Mount("/series", seriesHandler.Routes())
			r.Get("/health", healthHandler.HealthCheck)
		})
	})

	a.Router = r
}

// handleWebSocket upgrades a viewer connection and hands it to the hub.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		// The tool serves one trusted lab network; origin checking is not
		// an authentication layer here.
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.ErrorContext(r.Context(), "WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr))
		return
	}

	client := ws.ServeWS(a.Hub, conn, a.Logger)
	a.Logger.InfoContext(r.Context(), "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))
}

// Run starts everything and blocks until the context is cancelled or the
// server fails. Shutdown is graceful within the configured timeout.
func (a *Application) Run(ctx context.Context) error {
	startCtx := infrastructure.EnsureTraceID(ctx)
	series := a.Coordinator.Initialize(startCtx)
	a.Logger.Info("Authoritative series established",
		slog.Int("samples", len(series)))

	a.Hub.Start()
	defer a.Hub.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("HTTP server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := a.Watcher.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		err := a.Coordinator.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		a.Logger.Info("Shutting down HTTP server")
		return a.Server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	infrastructure.CloseLogFile()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
