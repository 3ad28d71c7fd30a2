package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/oksasatya/tutorhub-user-service/config"
	"github.com/oksasatya/tutorhub-user-service/internal/container"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/event"
	"github.com/oksasatya/tutorhub-user-service/internal/infrastructure/messaging"
	pginfra "github.com/oksasatya/tutorhub-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/tutorhub-user-service/internal/interface/middleware"
	"github.com/oksasatya/tutorhub-user-service/internal/router"
	"github.com/oksasatya/tutorhub-user-service/pkg/helpers"
	"github.com/oksasatya/tutorhub-user-service/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	container.SetConfig(cfg)
	container.SetLogger(logger)

	// Postgres, unless the in-memory store was selected
	if cfg.UserStore == config.StorePostgres {
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: cfg.DBMaxConnLife,
			AppName:         cfg.AppName,
		})
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		container.SetPGPool(pool)
	} else {
		logger.Warn("using in-memory user store; data is lost on restart")
	}

	// Redis backs the rate limiter and the reputation cache; both degrade when it is down
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()
	if err := helpers.PingRedis(ctx, rdb, 2*time.Second); err != nil {
		logger.WithError(err).Warn("redis unreachable; continuing without cache")
	}
	container.SetRedis(rdb)

	// Domain event bus
	publisher, closer, err := newPublisher(cfg, logger)
	if err != nil {
		log.Fatalf("failed to init event bus: %v", err)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.WithError(err).Warn("close event bus")
		}
	}()
	container.SetPublisher(publisher)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	container.SetRegistry(registry)

	// Elasticsearch
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		log.Fatalf("failed to init elasticsearch client: %v", err)
	}
	container.SetES(es)

	userDeps := router.BuildUserDeps()
	if es != nil {
		esCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := userDeps.Service.EnsureUsersIndex(esCtx); err != nil {
			logger.WithError(err).Warn("ensure users index failed; search may be unavailable")
		}
		cancel()
	}

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RealIP())
	r.Use(middleware.RequestIDMiddleware())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderActorID, middleware.HeaderActorRole, middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) > 0 {
		r.Use(cors.New(corsCfg))
	}
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg, userDeps)
	if pool := container.GetPGPool(); pool != nil {
		reg.Check("postgres", pool.Ping)
	}
	reg.Check("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newPublisher(cfg *config.Config, logger *logrus.Logger) (event.Publisher, io.Closer, error) {
	switch cfg.EventBus {
	case config.BusRabbitMQ:
		p, err := messaging.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQUserEventsQueue, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("queue", cfg.RabbitMQUserEventsQueue).Info("publishing user events to rabbitmq")
		return p, p, nil
	case config.BusKafka:
		p, err := messaging.NewKafkaPublisher(messaging.KafkaConfig{
			Brokers: cfg.KafkaBrokerList(),
			Topic:   cfg.KafkaUserEventsTopic,
			Logger:  logger,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("topic", cfg.KafkaUserEventsTopic).Info("publishing user events to kafka")
		return p, p, nil
	case config.BusNone, "":
		logger.Warn("event bus disabled; domain events are dropped")
		return event.NopPublisher{}, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown EVENT_BUS %q", cfg.EventBus)
	}
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}
