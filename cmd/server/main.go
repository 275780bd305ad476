package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/bookcore/internal/config"
	"github.com/iliyamo/bookcore/internal/database"
	"github.com/iliyamo/bookcore/internal/handler"
	"github.com/iliyamo/bookcore/internal/logging"
	"github.com/iliyamo/bookcore/internal/middleware"
	"github.com/iliyamo/bookcore/internal/queue"
	"github.com/iliyamo/bookcore/internal/repository"
	"github.com/iliyamo/bookcore/internal/router"
	"github.com/iliyamo/bookcore/internal/scheduler"
	"github.com/iliyamo/bookcore/internal/service"
	"github.com/iliyamo/bookcore/internal/storage"
)

func main() {
	cfg := config.Load() // Load environment config
	log := logging.New(os.Stdout, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Error(ctx, "open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Error(ctx, "migrate", "err", err)
			os.Exit(1)
		}
	}

	rdb := config.NewRedisClient() // nil when Redis is unreachable
	if rdb == nil {
		log.Warn(ctx, "redis unavailable; cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	store := repository.NewMySQLStore(db)

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.AMQPURL != "" {
		events = queue.NewAMQPPublisher(cfg.AMQPURL)
	}

	loans := service.NewLoanService(store, events, log)
	orders := service.NewOrderService(store, events, log)
	catalog := service.NewCatalogService(store, log)
	users := service.NewUserService(store, loans, events, log, cfg.BcryptCost)

	var uploads handler.Uploader
	if s3cfg := config.LoadS3Config(); s3cfg.Enabled() {
		p, err := storage.NewPresigner(ctx, s3cfg)
		if err != nil {
			log.Error(ctx, "s3 presigner", "err", err)
			os.Exit(1)
		}
		uploads = p
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	cacheCfg := config.LoadCacheConfig()
	cache := middleware.NewRedisCache(cacheCfg, rdb)
	invalidate := middleware.InvalidateCache(cacheCfg, rdb)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, store.Tokens()), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewCatalogHandler(catalog, loans), cache)
	router.RegisterReader(e, handler.NewReaderHandler(loans, orders, users, config.LoadLoanConfig()), cfg.JWTSecret, invalidate)
	router.RegisterAdmin(e, handler.NewAdminHandler(catalog, orders, users, uploads), cfg.JWTSecret, invalidate)

	if cfg.AMQPURL != "" {
		consumer := queue.NewConsumer(cfg.AMQPURL, store.Stats(), cfg.LogDir, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error(ctx, "activity consumer stopped", "err", err)
			}
		}()
	}

	scanner := scheduler.NewOverdueScanner(store.Loans(), store.Books(), events, log)
	cr, err := scanner.Start(ctx, cfg.OverdueCron)
	if err != nil {
		log.Error(ctx, "overdue scheduler", "err", err)
		os.Exit(1)
	}

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Info(ctx, "listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down")
	if cr != nil {
		<-cr.Stop().Done()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "http shutdown", "err", err)
	}
}
