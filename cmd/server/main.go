package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/Al0olo/Cloud-Government/internal/config"
	"github.com/Al0olo/Cloud-Government/internal/database"
	"github.com/Al0olo/Cloud-Government/internal/handler"
	"github.com/Al0olo/Cloud-Government/internal/middleware"
	"github.com/Al0olo/Cloud-Government/internal/notify"
	"github.com/Al0olo/Cloud-Government/internal/repository"
	"github.com/Al0olo/Cloud-Government/internal/router"
	"github.com/Al0olo/Cloud-Government/internal/storage"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set env directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := storage.New(ctx, storage.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	})
	cancel()
	if err != nil {
		log.Fatalf("object storage: %v", err)
	}

	// Repositories
	users := repository.NewUserRepo(db)
	apps := repository.NewApplicationRepo(db)
	docs := repository.NewDocumentRepo(db)
	history := repository.NewHistoryRepo(db)
	notifications := repository.NewNotificationRepo(db)

	// Outbound mail and the notification service built on it
	mailer := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	notifier := notify.NewService(notifications, users, mailer)

	h := &router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, users),
		Users:         handler.NewUserHandler(cfg, users),
		Applications:  handler.NewApplicationHandler(apps, docs, history, store, notifier),
		Documents:     handler.NewDocumentHandler(apps, docs, store, notifier),
		Notifications: handler.NewNotificationHandler(notifications),
		Admin:         handler.NewAdminHandler(users, apps),
	}

	e := echo.New()

	// Distributed rate limiting; degrades to a no-op when Redis is down.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterPublic(e, h)
	router.RegisterCitizen(e, h, cfg.JWTSecret)
	router.RegisterStaff(e, h, cfg.JWTSecret)
	router.RegisterAdmin(e, h, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
