package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"go-event-platform/internal/config"
	"go-event-platform/internal/database"
	"go-event-platform/internal/event"
	"go-event-platform/internal/handler"
	"go-event-platform/internal/metrics"
	"go-event-platform/internal/middleware"
	"go-event-platform/internal/registry"
	"go-event-platform/internal/repository"
	"go-event-platform/internal/router"
	"go-event-platform/internal/service"
	"go-event-platform/internal/websocket"
)

type App struct {
	cfg          *config.Config
	server       *http.Server
	db           *database.DB
	audit        *service.AuditService
	hub          *websocket.Hub
	cleanupFuncs []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	slog.InfoContext(ctx, "connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, database.Options{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a := &App{cfg: cfg, db: db, cleanupFuncs: []func(){db.Close}}

	if err := db.Migrate(ctx); err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	pool := db.Pool
	lifecycleRepo := repository.NewLifecycleRepository(pool)
	trashRepo := repository.NewTrashRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	reg, err := registry.Default(service.NewTableLifecycle(lifecycleRepo), service.NewEmbeddedLifecycle(lifecycleRepo))
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to build module registry: %w", err)
	}
	if err := lifecycleRepo.EnsureActiveUniqueIndexes(ctx, reg.Modules()); err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to ensure unique indexes: %w", err)
	}
	slog.InfoContext(ctx, "database ready", "modules", len(reg.Keys()))

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		database.NewPoolCollector(pool),
	)
	m := metrics.New(promRegistry)

	bus, err := a.newBus(ctx, event.WithDropHook(func(e event.Event) { m.IncEventDropped(string(e.Type)) }))
	if err != nil {
		a.cleanup()
		return nil, err
	}

	a.hub = websocket.NewHub(bus)
	go a.hub.Run()

	a.audit = service.NewAuditService(auditRepo, bus, m, service.AuditConfig{
		Workers:      cfg.AuditWorkers,
		QueueSize:    cfg.AuditQueueSize,
		RequireActor: cfg.AuditRequireActor,
		Timeout:      cfg.AuditTimeout,
	})
	lifecycleService := service.NewLifecycleService(reg, a.audit, bus, m)
	trashService := service.NewTrashService(reg, trashRepo, m, cfg.TrashDefaultPageSize, cfg.TrashMaxPageSize)

	authService := service.NewAuthService(cfg.JWTSecret, cfg.JWTAccessTTL)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:      handler.NewAuthHandler(),
		Trash:     handler.NewTrashHandler(trashService, lifecycleService),
		Audit:     handler.NewAuditHandler(a.audit),
		WebSocket: handler.NewWebSocketHandler(a.hub, cfg.CORSOrigins),
		Health:    a.health,
	}, promRegistry)

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

// newBus relays events through Redis when REDIS_URL is set so that every
// instance reaches its own websocket clients.
func (a *App) newBus(ctx context.Context, opts ...event.Option) (event.Bus, error) {
	if a.cfg.RedisURL == "" {
		slog.InfoContext(ctx, "REDIS_URL not set; using in-process event bus")
		return event.NewBus(opts...), nil
	}

	redisOpts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	bus := event.NewRedisBus(client, a.cfg.RedisChannel, opts...)
	relayCtx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := bus.Run(relayCtx); err != nil {
			slog.Error("redis event relay stopped", "error", err)
		}
	}()

	a.cleanupFuncs = append(a.cleanupFuncs, func() {
		cancel()
		bus.Close()
		_ = client.Close()
	})
	slog.InfoContext(ctx, "redis event relay started", "channel", a.cfg.RedisChannel)
	return bus, nil
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Health(ctx); err != nil {
		slog.WarnContext(ctx, "health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests and
// queued audit entries before releasing the database.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.hub.Stop()
	a.audit.Close()
	a.cleanup()

	slog.Info("server stopped")
	return runErr
}

func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}
