package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/oksasatya/authshop/config"
	"github.com/oksasatya/authshop/internal/application"
	"github.com/oksasatya/authshop/internal/container"
	pginfra "github.com/oksasatya/authshop/internal/infrastructure/postgres"
	"github.com/oksasatya/authshop/internal/infrastructure/search"
	"github.com/oksasatya/authshop/internal/infrastructure/storage"
	"github.com/oksasatya/authshop/internal/router"
	"github.com/oksasatya/authshop/pkg/helpers"
	"github.com/oksasatya/authshop/pkg/mailer"
	tpl "github.com/oksasatya/authshop/pkg/mailer/templates"
	"github.com/oksasatya/authshop/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	c := &container.Container{
		Config:   cfg,
		Logger:   logger,
		Accounts: pginfra.NewAccountRepository(pool),
		JWT:      helpers.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL),
		Hasher:   helpers.NewBcryptHasher(cfg.BcryptCost),
		OTP:      helpers.NewOTPService(),
	}

	if cfg.RateLimitEnabled {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		if err := helpers.PingRedis(ctx, rdb); err != nil {
			logger.WithError(err).Warn("redis unreachable; rate limits fail open")
		}
		c.Redis = rdb
	}

	if cfg.MailSendEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer pub.Close()
		c.Notifier = mailer.NewQueueNotifier(pub, tpl.Brand{
			AppName:        cfg.AppName,
			CompanyName:    cfg.CompanyName,
			CompanyAddress: cfg.CompanyAddress,
			SupportURL:     cfg.SupportURL,
		})
	} else {
		logger.Warn("MAIL_SEND_ENABLED=false; OTPs and reset links are written to the log")
		c.Notifier = &mailer.LogNotifier{Logger: logger}
	}

	files, closeFiles, err := buildFileStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init file storage: %v", err)
	}
	defer closeFiles()
	if files != nil {
		c.Files = files
	} else {
		logger.WithField("driver", cfg.StorageDriver).Warn("profile image uploads disabled")
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			log.Fatalf("failed to init elasticsearch client: %v", err)
		}
		idx := search.NewAccountIndex(es, cfg.ESUsersIndex)
		if err := idx.Ensure(ctx); err != nil {
			logger.WithError(err).Warn("elasticsearch index not ready; search disabled")
		} else {
			c.Index = idx
		}
	}

	r := router.New(c)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
		return
	}
	logger.Info("server exited properly")
}

// buildFileStore picks the profile image backend. A nil store disables uploads.
func buildFileStore(ctx context.Context, cfg *config.Config) (application.FileStore, func(), error) {
	noop := func() {}
	switch strings.ToLower(cfg.StorageDriver) {
	case "local":
		s, err := storage.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, noop, errors.New("GCS_BUCKET is required for STORAGE_DRIVER=gcs")
		}
		client, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			return nil, noop, err
		}
		return storage.NewGCSStore(client, cfg.GCSBucket), func() { _ = client.Close() }, nil
	default:
		return nil, noop, nil
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
