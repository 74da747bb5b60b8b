package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/storefront-api/internal/config"
	"github.com/iliyamo/storefront-api/internal/database"
	"github.com/iliyamo/storefront-api/internal/handler"
	"github.com/iliyamo/storefront-api/internal/job"
	"github.com/iliyamo/storefront-api/internal/logging"
	"github.com/iliyamo/storefront-api/internal/mail"
	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/queue"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/response"
	"github.com/iliyamo/storefront-api/internal/router"
	"github.com/iliyamo/storefront-api/internal/service"
	"github.com/iliyamo/storefront-api/internal/storage"
	"github.com/iliyamo/storefront-api/internal/utils"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Redis is optional: without it rate limiting and caching are skipped.
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn(ctx, "redis_unavailable")
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	sessions := repository.NewSessionRepo(db)
	tokens := repository.NewVerificationTokenRepo(db)
	categories := repository.NewCategoryRepo(db)

	codec := utils.NewTokenCodec(cfg.AccessSecret, cfg.RefreshSecret, cfg.EmailSecret)
	auth := service.NewAuthService(service.Deps{
		Users:    users,
		Roles:    roleRepo,
		Sessions: sessions,
		Tokens:   tokens,
		Mailer:   newMailer(ctx, cfg, logger),
		Codec:    codec,
		Config: service.AuthConfig{
			BcryptCost:    cfg.BcryptCost,
			AccessTTL:     cfg.AccessTTL,
			RefreshTTL:    cfg.RefreshTTL,
			EmailTokenTTL: cfg.EmailTokenTTL,
		},
		Log: logger,
	})

	go job.NewSweeper(tokens, logger, cfg.SweepInterval, cfg.SweepRetention).Run(ctx)

	var uploads handler.ImageUploader
	if cfg.S3.Enabled() {
		up, err := storage.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("s3: %v", err)
		}
		uploads = up
	}

	limits := config.LoadRateLimitConfig()
	limiter, cache := newRedisMiddleware(rdb, limits, config.LoadCacheConfig(), logger)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = response.HTTPErrorHandler(logger)
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendBaseURL},
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(middleware.RequestLogger(logger))

	router.RegisterRoutes(e, router.Deps{
		Codec:      codec,
		Stores:     router.Stores{Users: users, Sessions: sessions},
		RateLimits: limits,
		Limiter:    limiter,
		Cache:      cache,
		DB:         db,
		Auth:       handler.NewAuthHandler(auth, logger, cfg.Production(), cfg.RefreshTTL),
		Categories: handler.NewCategoryHandler(categories, cache, uploads, logger),
		Roles:      handler.NewRoleHandler(roleRepo, logger),
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info(ctx, "server_started", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "server_shutdown_failed", "error", err)
	}
	logger.Info(shutdownCtx, "server_stopped")
}

// newMailer picks the verification mail transport. With the queue
// transport the consumer runs in-process and sends through SMTP.
func newMailer(ctx context.Context, cfg config.Config, logger logging.Logger) service.Mailer {
	m := cfg.Mail
	smtp := mail.NewVerificationMailer(
		mail.NewSMTPSender(m.SMTPHost, m.SMTPPort, m.SMTPUser, m.SMTPPass, m.From), cfg.FrontendBaseURL)

	switch m.Transport {
	case config.MailTransportQueue:
		go queue.NewConsumer(m.RabbitMQURL, smtp, logger).Run(ctx)
		return queue.NewPublisher(m.RabbitMQURL)
	case config.MailTransportLog:
		return mail.NewVerificationMailer(mail.NewLogSender(logger), cfg.FrontendBaseURL)
	default:
		return smtp
	}
}

// newRedisMiddleware returns nil middleware when Redis is down; both
// types pass requests through when nil.
func newRedisMiddleware(rdb *redis.Client, limits config.RateLimitConfig, cacheCfg config.CacheConfig, logger logging.Logger) (*middleware.RateLimiter, *middleware.ResponseCache) {
	if rdb == nil {
		return nil, nil
	}
	return middleware.NewRateLimiter(limits, middleware.NewRedisCounter(rdb), logger),
		middleware.NewResponseCache(cacheCfg, middleware.NewRedisCacheStore(rdb), logger)
}
