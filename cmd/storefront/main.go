package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fv-bodegones/storefront-service/internal/clients"
	"github.com/fv-bodegones/storefront-service/internal/config"
	"github.com/fv-bodegones/storefront-service/internal/events"
	"github.com/fv-bodegones/storefront-service/internal/exchange"
	"github.com/fv-bodegones/storefront-service/internal/handlers"
	"github.com/fv-bodegones/storefront-service/internal/logging"
	"github.com/fv-bodegones/storefront-service/internal/metrics"
	"github.com/fv-bodegones/storefront-service/internal/repository"
	"github.com/fv-bodegones/storefront-service/internal/server"
	"github.com/fv-bodegones/storefront-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 30 * time.Second

type stores struct {
	orders   repository.OrderRepository
	category repository.CategoryRepository
	products repository.ProductRepository
	settings repository.SettingsRepository
	sponsors repository.SponsorRepository
}

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel)

	logger := logging.NewLogger("storefront-service")

	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", logging.Fields{"error": err.Error()})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	checks := map[string]handlers.ReadinessCheck{}

	st, db, err := initStores(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialise storage", logging.Fields{"error": err.Error()})
	}
	if db != nil {
		defer db.Close()
		checks["database"] = db.PingContext
	}

	var (
		orderCache repository.OrderCache
		rateStore  exchange.RateStore
	)
	if cfg.Redis.Enabled {
		redisClient := repository.NewRedisClient(cfg.Redis)
		defer redisClient.Close()

		orderCache = repository.NewRedisOrderCache(redisClient, cfg.Redis.TTL)
		rateStore = repository.NewRedisRateStore(redisClient, cfg.RateSource.StoreKey)
		checks["redis"] = redisPing(redisClient)
	}

	var eventPublisher events.OrderEventPublisher = events.NoopPublisher{}
	if cfg.Features.EnableOrderEvents {
		eventPublisher = events.NewKafkaPublisher(cfg.Kafka)
	}
	defer eventPublisher.Close()

	rates := exchange.NewRateService(clients.NewDolarAPIClient(cfg.RateSource), rateStore, exchange.Options{
		TTL:             cfg.RateSource.TTL,
		RefreshInterval: cfg.RateSource.RefreshInterval,
		MinInterval:     cfg.RateSource.MinInterval,
		FetchTimeout:    cfg.RateSource.Timeout,
		Metrics:         m,
	})
	if err := rates.Warm(ctx); err != nil {
		logger.Warn("Could not warm exchange rate cache", logging.Fields{"error": err.Error()})
	}
	go rates.Run(ctx)

	orderService := service.NewOrderService(
		st.orders,
		st.products,
		st.settings,
		orderCache,
		rates,
		eventPublisher,
		clients.NewWhatsAppLinker(cfg.Store.WhatsAppBaseURL),
		m,
		cfg,
	)
	catalogService := service.NewCatalogService(st.category, st.products, st.sponsors, st.settings, cfg)

	h := handlers.NewHandlers(orderService, catalogService, rates, cfg, checks)
	srv := server.New(h, cfg, m, reg)

	go func() {
		logger.Info("Server starting", logging.Fields{
			"port":                 cfg.Server.Port,
			"db_driver":            cfg.Database.Driver,
			"redis_enabled":        cfg.Redis.Enabled,
			"enable_order_events":  cfg.Features.EnableOrderEvents,
			"enable_order_caching": cfg.Features.EnableOrderCaching,
		})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}

	logger.Info("Server exited")
}

func initStores(ctx context.Context, cfg *config.Config) (*stores, *sql.DB, error) {
	if cfg.Database.Driver == "memory" {
		mem := repository.NewMemoryStore()
		return &stores{orders: mem, category: mem, products: mem, settings: mem, sponsors: mem}, nil, nil
	}

	db, err := repository.OpenPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	catalog := repository.NewPostgresCatalogRepository(db)
	site := repository.NewPostgresSiteRepository(db)

	return &stores{
		orders:   repository.NewPostgresOrderRepository(db),
		category: catalog,
		products: catalog,
		settings: site,
		sponsors: site,
	}, db, nil
}

func redisPing(client *redis.Client) handlers.ReadinessCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
