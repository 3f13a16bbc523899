package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/game-hub/internal/api"
	"github.com/annel0/game-hub/internal/auth"
	"github.com/annel0/game-hub/internal/cache"
	"github.com/annel0/game-hub/internal/config"
	"github.com/annel0/game-hub/internal/content"
	"github.com/annel0/game-hub/internal/eventbus"
	"github.com/annel0/game-hub/internal/logging"
	"github.com/annel0/game-hub/internal/observability"
	"github.com/annel0/game-hub/internal/session"
	"github.com/annel0/game-hub/internal/storage"
	"github.com/annel0/game-hub/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	envFile := flag.String("env", ".env", "path to a .env file")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("load %s: %v", *envFile, err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Configure(logging.Options{
		Dir:          cfg.Logging.Dir,
		ConsoleLevel: logging.ParseLevel(cfg.Logging.ConsoleLevel),
		FileLevel:    logging.ParseLevel(cfg.Logging.FileLevel),
	})
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	if err := run(cfg); err != nil {
		logging.Error("server exited: %v", err)
		os.Exit(1)
	}
	logging.Info("server stopped")
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info("starting game-hub %s on %s", version, cfg.Server.Addr())

	shutdownTracing, err := observability.InitTelemetry(ctx, observability.Options{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logging.Warn("tracer flush: %v", err)
		}
	}()

	client, err := storage.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Timeout())
	if err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logging.Warn("mongo disconnect: %v", err)
		}
	}()
	db := client.Database(cfg.Mongo.Database)
	logging.Info("connected to mongo database %s", cfg.Mongo.Database)

	store, err := content.NewMongoStore(ctx, db, cfg.Mongo.Timeout())
	if err != nil {
		return err
	}

	users, err := openUserRepo(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer users.Close()

	sessionStore, err := openSessionStore(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer sessionStore.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if src, ok := sessionStore.(cache.MetricsSource); ok {
		if err := cache.RegisterMetrics(registry, src); err != nil {
			return fmt.Errorf("session metrics: %w", err)
		}
	}

	bus, err := openEventBus(cfg.EventBus)
	if err != nil {
		return err
	}
	defer bus.Close()

	listener, err := eventbus.StartLoggingListener(ctx, bus)
	if err != nil {
		return fmt.Errorf("event listener: %w", err)
	}
	defer listener.Unsubscribe()

	exporter, err := eventbus.NewMetricsExporter(bus, registry, 5*time.Second)
	if err != nil {
		return fmt.Errorf("event metrics: %w", err)
	}
	exporter.Start()
	defer exporter.Stop()

	views, err := web.NewRenderer()
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	serverCfg := api.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Content:     store,
		Users:       auth.NewCredentialStore(users, 0),
		Sessions: session.NewManager(sessionStore, cfg.Session.Secret, session.Options{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL(),
			Secure:     cfg.Session.Secure,
		}),
		Views:  views,
		Events: bus,
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
	}
	if cfg.Server.Metrics {
		serverCfg.Registry = registry
	}
	server, err := api.NewServer(serverCfg)
	if err != nil {
		return err
	}
	if err := server.Start(cfg.Server.Addr()); err != nil {
		return err
	}

	<-ctx.Done()
	logging.Info("shutdown signal received")
	return server.Stop(context.Background())
}

func openUserRepo(ctx context.Context, cfg config.Config, db *mongo.Database) (auth.UserRepository, error) {
	switch cfg.Auth.Backend {
	case "maria":
		m := cfg.Auth.Maria
		repo, err := auth.NewMariaUserRepo(ctx, auth.MariaConfig{
			Host:     m.Host,
			Port:     m.Port,
			Database: m.Database,
			Username: m.Username,
			Password: m.Password,
		})
		if err != nil {
			return nil, err
		}
		logging.Info("users stored in MariaDB %s:%d/%s", m.Host, m.Port, m.Database)
		return repo, nil
	case "memory":
		logging.Warn("users kept in memory; accounts are lost on restart")
		return auth.NewMemoryUserRepo(), nil
	default:
		return auth.NewMongoUserRepo(ctx, db, cfg.Mongo.Timeout())
	}
}

func openSessionStore(ctx context.Context, cfg config.SessionConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "redis":
		store, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			URL:      cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			MaxTTL:   cfg.TTL(),
		})
		if err != nil {
			return nil, fmt.Errorf("redis sessions: %w", err)
		}
		logging.Info("sessions stored in redis at %s", cfg.RedisURL)
		return store, nil
	case "badger":
		store, err := cache.NewBadgerCache(cfg.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("badger sessions: %w", err)
		}
		logging.Info("sessions stored in badger at %s", cfg.BadgerPath)
		return store, nil
	default:
		store := cache.NewMemoryCache()
		store.StartJanitor(cache.DefaultSweepInterval)
		return store, nil
	}
}

func openEventBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		return eventbus.NewMemoryBus(1024), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	logging.Info("content events published to %s (stream %s)", cfg.URL, cfg.Stream)
	return bus, nil
}
