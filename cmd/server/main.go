package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	_ "modernc.org/sqlite"

	"github.com/rl1809/storefront/internal/adapter/catalog"
	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/notify"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/logger"
	"github.com/rl1809/storefront/internal/port"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(logger.Options{Service: "storefront", Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("storefront stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize catalog database
	db, err := openCatalogDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("connected to catalog database", zap.String("driver", cfg.CatalogDriver))

	sqlAdapter := storage.NewSQLAdapter(db, cfg.CatalogDriver)
	if err := sqlAdapter.Migrate(); err != nil {
		return err
	}
	seed, err := storage.DefaultSeed()
	if err != nil {
		return err
	}
	seeded, err := sqlAdapter.SeedCatalog(ctx, seed.Products, seed.Stock)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	if seeded {
		log.Info("seeded catalog", zap.Int("products", len(seed.Products)))
	}

	// Initialize cart store, mirroring stock into Redis when available
	var (
		cartStore  port.CartStore
		stockCache port.StockCache = sqlAdapter
		rdb        *redis.Client
	)
	switch cfg.StoreDriver {
	case "memory":
		cartStore = storage.NewMemoryStore()
		log.Warn("using in-memory cart store, the cart will not survive restarts")
	default:
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 20})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

		redisAdapter := storage.NewRedisAdapter(rdb)
		if err := syncStock(ctx, sqlAdapter, redisAdapter); err != nil {
			return err
		}
		cartStore = redisAdapter
		stockCache = redisAdapter
	}

	// Catalog backend
	catalogHandler := handler.NewCatalogHandler(sqlAdapter, stockCache, log.Named("catalog"),
		handler.WithSimulatedLatency(cfg.CatalogLatency),
		handler.WithSimulatedFailures(cfg.CatalogFailureRate, nil),
	)
	catalogServer := &http.Server{Addr: cfg.CatalogAddr, Handler: catalogHandler.Routes()}
	if cfg.CatalogURL == "" {
		go serveHTTP(log, "catalog", catalogServer)
	}

	client := catalog.NewClient(cfg.CatalogBaseURL(), catalog.Options{
		Timeout:         cfg.CatalogTimeout,
		BreakerFailures: uint32(cfg.BreakerFailures),
		BreakerCooldown: cfg.BreakerCooldown,
	}, log.Named("catalog-client"))

	// Initialize services
	messages, err := service.NewMessages(cfg.Locale, cfg.Currency)
	if err != nil {
		return err
	}
	orders := service.NewOrderQueue(cfg.QueueSize, log.Named("orders"))
	cart := service.NewCartService(cartStore, client,
		notify.Fanout{notify.NewLog(log.Named("notify")), notify.Scoped{}},
		service.WithStorageKey(cfg.CartStorageKey),
		service.WithMessages(messages),
		service.WithOrderPublisher(orders),
		service.WithLogger(log.Named("cart")),
	)
	if err := cart.Load(ctx); err != nil {
		return err
	}

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			orders.Work(id, sqlAdapter)
		}(i)
	}
	log.Info("started order workers", zap.Int("count", cfg.WorkerCount))

	// gRPC health
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	health := handler.RegisterHealth(grpcServer)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Storefront API
	httpHandler := handler.NewHTTPHandler(cart, service.NewStorefront(cart, client), log.Named("http"))
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: otelhttp.NewHandler(httpHandler.Routes(), "storefront")}
	go serveHTTP(log, "storefront", httpServer)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	health.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("storefront shutdown", zap.Error(err))
	}
	if cfg.CatalogURL == "" {
		if err := catalogServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("catalog shutdown", zap.Error(err))
		}
	}

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	// Close order queue and wait for workers. A checkout still running past
	// the shutdown timeout has its order dropped.
	orders.Close()
	wg.Wait()
	log.Info("workers stopped")
	return nil
}

func openCatalogDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.CatalogDriver, cfg.CatalogDSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.CatalogDriver, err)
	}
	if cfg.CatalogDriver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.CatalogDriver, err)
	}
	return db, nil
}

// syncStock copies catalog stock into the Redis mirror.
func syncStock(ctx context.Context, from port.CatalogRepository, to port.StockCache) error {
	stocks, err := from.ListStock(ctx)
	if err != nil {
		return fmt.Errorf("read stock: %w", err)
	}
	for _, s := range stocks {
		if err := to.SetStock(ctx, s.ID, s.Amount); err != nil {
			return fmt.Errorf("sync stock %d: %w", s.ID, err)
		}
	}
	return nil
}

func serveHTTP(log *zap.Logger, name string, srv *http.Server) {
	log.Info("HTTP server listening", zap.String("server", name), zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Error("HTTP server error", zap.String("server", name), zap.Error(err))
	}
}
