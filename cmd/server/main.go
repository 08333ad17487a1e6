// Package main is the entry point of the thesis tracking service.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: the thesis lifecycle state machine and its invariants
// - Application: command and query handlers over a unit of work
// - Infrastructure: Postgres persistence, Redis snapshots, event bus
// - Interface: the HTTP API
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tesis-hub/tesis-tracker/config"
	"github.com/tesis-hub/tesis-tracker/internal/application/command"
	"github.com/tesis-hub/tesis-tracker/internal/application/query"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
	"github.com/tesis-hub/tesis-tracker/internal/infrastructure/messaging"
	"github.com/tesis-hub/tesis-tracker/internal/infrastructure/persistence/postgres"
	"github.com/tesis-hub/tesis-tracker/internal/infrastructure/persistence/redis"
	"github.com/tesis-hub/tesis-tracker/internal/infrastructure/service"
	httpserver "github.com/tesis-hub/tesis-tracker/internal/interface/http"
	"github.com/tesis-hub/tesis-tracker/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Log.Level),
	})
	log.Info("starting tesis-tracker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	var dbConn *postgres.Connection
	if cfg.Database.URL != "" {
		dbConn, err = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	} else {
		dbConn, err = postgres.NewConnection(ctx, postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			Database:        cfg.Database.Name,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			SSLMode:         cfg.Database.SSLMode,
			MaxConns:        int32(cfg.Database.MaxConns),
			MinConns:        int32(cfg.Database.MinConns),
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
			MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnectTimeout:  cfg.Database.ConnectTimeout,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.RunMigrations {
		log.Info("running database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional snapshot cache)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache     *redis.Cache
		cmdCache       command.Cache
		snapshotCache  query.ExpedienteCache
		healthCheckers = map[string]httpserver.HealthChecker{"postgres": dbConn}
	)
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCache, err = redis.NewCache(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn("failed to connect to Redis, snapshot cache disabled", logger.Err(err))
		} else {
			defer redisCache.Close()
			expedienteCache := redis.NewExpedienteCache(redisCache)
			cmdCache = expedienteCache
			snapshotCache = expedienteCache
			healthCheckers["redis"] = redisCache
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	busConfig := messaging.DefaultConfig()
	busConfig.AsyncMode = cfg.EventBus.AsyncMode
	busConfig.WorkerPoolSize = cfg.EventBus.WorkerPoolSize
	busConfig.HandlerTimeout = cfg.EventBus.HandlerTimeout
	busConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. PERSISTENCE
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	tesisStore := postgres.NewTesisStore(dbConn)
	historialStore := postgres.NewHistorialStore(dbConn)
	evaluacionStore := postgres.NewEvaluacionStore(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")
	maquina := tesis.NewMaquina(tesis.Plazos{
		DiasEvaluacion: cfg.Plazos.DiasEvaluacion,
		DiasCorreccion: cfg.Plazos.DiasCorreccion,
	})

	getExpediente := query.NewGetExpedienteHandler(tesisStore, historialStore, evaluacionStore, snapshotCache, log)
	listarTesis := query.NewListarTesisHandler(tesisStore)

	deps := httpserver.Dependencies{
		CrearTesis:            command.NewCrearTesisHandler(tesisStore, eventBus, log),
		ResponderInvitacion:   command.NewResponderInvitacionHandler(tesisStore, cmdCache, eventBus, log),
		EnviarRevision:        command.NewEnviarRevisionHandler(tesisStore, cmdCache, eventBus, maquina, log),
		RevisarDocumentos:     command.NewRevisarDocumentosHandler(tesisStore, cmdCache, eventBus, maquina, log),
		ConfirmarVoucher:      command.NewConfirmarVoucherHandler(tesisStore, cmdCache, eventBus, maquina, log),
		AsignarJurado:         command.NewAsignarJuradoHandler(tesisStore, cmdCache, eventBus, log),
		ConfirmarJurados:      command.NewConfirmarJuradosHandler(tesisStore, cmdCache, eventBus, maquina, log),
		RetirarJurado:         command.NewRetirarJuradoHandler(tesisStore, cmdCache, log),
		PromoverAccesitario:   command.NewPromoverAccesitarioHandler(tesisStore, cmdCache, eventBus, log),
		RegistrarEvaluacion:   command.NewRegistrarEvaluacionHandler(tesisStore, cmdCache, eventBus, log),
		SubirDictamen:         command.NewSubirDictamenHandler(tesisStore, cmdCache, eventBus, maquina, log),
		SubsanarObservaciones: command.NewSubsanarObservacionesHandler(tesisStore, cmdCache, eventBus, maquina, log),
		SubirResolucion:       command.NewSubirResolucionHandler(tesisStore, cmdCache, eventBus, maquina, log),
		PresentarInforme:      command.NewPresentarInformeHandler(tesisStore, cmdCache, eventBus, maquina, log),
		ProgramarSustentacion: command.NewProgramarSustentacionHandler(tesisStore, cmdCache, eventBus, maquina, log),
		CerrarSustentacion:    command.NewCerrarSustentacionHandler(tesisStore, cmdCache, eventBus, maquina, log),
		EliminarTesis:         command.NewEliminarTesisHandler(tesisStore, cmdCache, eventBus, log),
		GetExpediente:         getExpediente,
		ListarTesis:           listarTesis,
		HealthCheckers:        healthCheckers,
		Logger:                log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. NOTIFICATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering notification handlers...")
	notificador := service.NewNotificador(tesisStore, service.NewMensajeroLog(log), eventBus, log)
	if err := notificador.Registrar(eventBus); err != nil {
		return fmt.Errorf("failed to register notification handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins

	server := httpserver.NewServer(httpConfig, deps)

	log.Info("starting HTTP server", logger.String("address", server.Address()))
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("http server error", logger.Err(err))
			return err
		}
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...",
		logger.String("timeout", cfg.App.ShutdownTimeout.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed")
	return nil
}
