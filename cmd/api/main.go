package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/shop_api/internal/config"
	"github.com/Skotchmaster/shop_api/internal/events"
	"github.com/Skotchmaster/shop_api/internal/httpserver"
	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/ratelimit"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/search"
	"github.com/Skotchmaster/shop_api/internal/service"
	pkgdb "github.com/Skotchmaster/shop_api/pkg/db"
	"github.com/Skotchmaster/shop_api/pkg/logging"
	"github.com/Skotchmaster/shop_api/pkg/tokens"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)
	baseCtx := logging.IntoContext(context.Background(), logger)

	visibility, err := service.ParseVisibility(cfg.OrderVisibility)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(baseCtx, 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	store := repo.New(db, cfg.StoreTimeout)
	if cfg.DBAutoMigrate {
		if err := store.AutoMigrate(baseCtx, models.All()...); err != nil {
			log.Fatalf("automigrate: %v", err)
		}
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewProducer(cfg.KafkaBrokers)
		logger.Info("kafka_enabled", "brokers", cfg.KafkaBrokers)
	}

	catalog := &service.CatalogService{Repo: store, Events: publisher}
	if cfg.ESURL != "" {
		ctx, cancel := context.WithTimeout(baseCtx, 10*time.Second)
		esClient, err := search.NewClient(ctx, search.Config{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		cancel()
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		catalog.Index = search.NewIndex(esClient, cfg.ESIndex)
	}

	apiPolicy := ratelimit.Policy{Max: cfg.RateLimitAPI, Window: cfg.RateLimitWindow}
	authPolicy := ratelimit.Policy{Max: cfg.RateLimitAuth, Window: cfg.RateLimitWindow}
	var apiStore, authStore echomw.RateLimiterStore
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		apiStore = ratelimit.NewRedisStore(rdb, "api", apiPolicy)
		authStore = ratelimit.NewRedisStore(rdb, "auth", authPolicy)
	} else {
		apiStore = ratelimit.NewMemoryStore(apiPolicy)
		authStore = ratelimit.NewMemoryStore(authPolicy)
	}

	e := httpserver.NewEcho(logger, cfg.CORSOrigins)
	httpserver.Register(e, &httpserver.Deps{
		CatalogHandler: &httpserver.CatalogHTTP{Svc: catalog},
		OrderHandler:   &httpserver.OrderHTTP{Svc: &service.OrderService{Repo: store, Events: publisher, Visibility: visibility}},
		AuthHandler:    &httpserver.AuthHTTP{Svc: &service.AuthService{Repo: store, Issuer: tokens.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)}},
		HealthHandler:  &httpserver.HealthHTTP{DB: db},
		JWTSecret:      cfg.JWTSecret,
		RequireSeller:  cfg.CatalogRequireSeller,
		APILimiter:     ratelimit.Middleware(apiStore, "Too many requests from this IP, please try again later"),
		AuthLimiter:    ratelimit.Middleware(authStore, "Too many login/register attempts from this IP, please try again after 15 minutes"),
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "addr", srv.Addr, "order_visibility", string(visibility))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)

	if err := publisher.Close(); err != nil {
		logger.Warn("kafka_close_failed", "error", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := pkgdb.Close(db); err != nil {
		logger.Warn("db_close_failed", "error", err)
	}

	logger.Info("api_stopped")
}
