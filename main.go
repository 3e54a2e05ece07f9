package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/thistle/config"
	playerrepo "github.com/Ramsey-B/thistle/internal/repositories/player"
	screeningrepo "github.com/Ramsey-B/thistle/internal/repositories/screening"
	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/events"
	"github.com/Ramsey-B/thistle/pkg/graph"
	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/middleware"
	"github.com/Ramsey-B/thistle/pkg/processor"
	"github.com/Ramsey-B/thistle/pkg/routes/health"
	playerroutes "github.com/Ramsey-B/thistle/pkg/routes/player"
	screeningroutes "github.com/Ramsey-B/thistle/pkg/routes/screening"
	"github.com/Ramsey-B/thistle/pkg/startup"
	"github.com/Ramsey-B/thistle/pkg/tracing"
	"github.com/Ramsey-B/thistle/pkg/tracing/exporters"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to bind config: %s\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(&exporters.ConsoleExporter{}))
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var db *sqlx.DB
	var graphClient *graph.Client

	manager := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	manager.AddDependency(&dependency{
		name: "postgres",
		start: func(ctx context.Context) error {
			dsn := fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
				cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
			)
			conn, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
			if err != nil {
				return err
			}
			conn.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			conn.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			conn.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
			db = conn
			return nil
		},
		stop: func(ctx context.Context) error {
			if db != nil {
				return db.Close()
			}
			return nil
		},
	})
	manager.AddDependency(&dependency{
		name:      "migrations",
		dependsOn: []string{"postgres"},
		start: func(ctx context.Context) error {
			driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
			if err != nil {
				return err
			}
			ms := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			return ms.Migrate(cfg.DatabaseName, driver)
		},
		stop: func(ctx context.Context) error { return nil },
	})
	if cfg.GraphDBEnabled {
		manager.AddDependency(&dependency{
			name: "graph",
			start: func(ctx context.Context) error {
				client, err := graph.NewClient(graph.Config{
					Host:     cfg.GraphDBHost,
					Port:     cfg.GraphDBPort,
					Username: cfg.GraphDBUser,
					Password: cfg.GraphDBPassword,
				}, logger)
				if err != nil {
					return err
				}
				if err := client.VerifyConnectivity(ctx); err != nil {
					return err
				}
				graphClient = client
				return nil
			},
			stop: func(ctx context.Context) error {
				if graphClient != nil {
					return graphClient.Close(ctx)
				}
				return nil
			},
		})
	}

	if err := manager.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	dbInstance := database.NewDatabaseInstance(db, logger)
	playerRepo := playerrepo.NewRepository(dbInstance, logger)
	screeningRepo := screeningrepo.NewRepository(dbInstance, logger)

	engine := matching.NewEngine(logger, matching.EngineConfig{
		FlagTrueDuplicates: cfg.ScreeningFlagTrueDuplicates,
	})

	var emitter matching.Emitter
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		emitter = events.NewEmitter(producer, logger)
	}

	var linker matching.IdentityLinker
	if graphClient != nil {
		linker = graphClient
	}

	screeningService := matching.NewService(
		logger, engine, playerRepo, screeningRepo, emitter, linker,
		cfg.ScreeningMaxBatchRecords,
	)

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		logger.WithError(err).Error("Failed to create DI container")
		os.Exit(1)
	}
	mustRegister(logger, ectoinject.RegisterInstance[ectologger.Logger](container, logger))
	mustRegister(logger, ectoinject.RegisterInstance[*playerrepo.Repository](container, playerRepo))
	mustRegister(logger, ectoinject.RegisterInstance[*screeningrepo.Repository](container, screeningRepo))
	mustRegister(logger, ectoinject.RegisterInstance[*matching.Service](container, screeningService))
	if graphClient != nil {
		mustRegister(logger, ectoinject.RegisterInstance[*graph.Client](container, graphClient))
	}

	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		proc := processor.NewProcessor(logger, screeningService)
		consumer = kafka.NewConsumer(cfg, logger, proc.ProcessMessage)
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start intake consumer")
			os.Exit(1)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	checker := health.NewChecker(db, consumerHealth(consumer), version)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	screeningroutes.Register(api.Group("/screenings"))
	playerroutes.Register(api.Group("/players"))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		logger.WithFields(map[string]any{"port": cfg.Port}).Infof("Starting %s on port %d", cfg.AppName, cfg.Port)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server failed")
			cancel()
		}
	}()
	checker.SetReady(true)

	<-ctx.Done()
	logger.Info("Shutting down")
	checker.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.WithError(err).Warn("Failed to stop intake consumer")
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close producer")
		}
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Server shutdown error")
	}
	if err := manager.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Dependency shutdown error")
	}
	_ = tp.Shutdown(shutdownCtx)
	logger.Info("Stopped")
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	if cfg.PrettyLogs {
		zapLogger, _ = zap.NewDevelopment()
	} else {
		zapLogger, _ = zap.NewProduction()
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func mustRegister(logger ectologger.Logger, err error) {
	if err != nil {
		logger.WithError(err).Error("Failed to register dependency")
		os.Exit(1)
	}
}

// consumerHealth keeps the health checker's kafka check nil when the consumer
// is disabled, so a typed nil never masquerades as a live check.
func consumerHealth(c *kafka.Consumer) interface{ Health() bool } {
	if c == nil {
		return nil
	}
	return c
}

// dependency adapts closures to the startup manager.
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string                 { return d.name }
func (d *dependency) DependsOn() []string             { return d.dependsOn }
func (d *dependency) Start(ctx context.Context) error { return d.start(ctx) }
func (d *dependency) Stop(ctx context.Context) error  { return d.stop(ctx) }
