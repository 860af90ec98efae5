package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/devteria/identity_service/internal/config"
	"github.com/devteria/identity_service/internal/db"
	"github.com/devteria/identity_service/internal/events"
	"github.com/devteria/identity_service/internal/httpserver"
	"github.com/devteria/identity_service/internal/logging"
	"github.com/devteria/identity_service/internal/mail"
	"github.com/devteria/identity_service/internal/repo"
	"github.com/devteria/identity_service/internal/service"
	"github.com/devteria/identity_service/internal/tokens"
)

func main() {
	cfg := config.Load()
	config.MustNonEmptyBytes(cfg.JWTSignerKey, "JWT_SIGNER_KEY")
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")

	logger := logging.New(cfg.ServiceName, cfg.LogLevel)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}
	if err := db.SeedRoles(gdb); err != nil {
		log.Fatalf("db seed error: %v", err)
	}

	var sender mail.Sender = mail.LogSender{}
	if cfg.SMTPHost != "" {
		sender = &mail.SMTPSender{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.MailFrom,
		}
	}

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	gormRepo := &repo.GormRepo{DB: gdb}
	authSvc := &service.AuthService{
		Repo:                gormRepo,
		Codec:               &tokens.Codec{Key: cfg.JWTSignerKey},
		ValidDuration:       cfg.ValidDuration,
		RefreshableDuration: cfg.RefreshableDuration,
		Producer:            producer,
	}
	accountSvc := &service.AccountService{
		Repo:     gormRepo,
		Auth:     authSvc,
		Mail:     sender,
		Producer: producer,
	}
	userSvc := &service.UserService{Repo: gormRepo}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := logging.IntoContext(req.Context(), logger)
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	})

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Auth: authSvc, Account: accountSvc},
		UserHandler: &httpserver.UserHTTP{Users: userSvc},
		Middleware:  &httpserver.AuthMiddleware{Auth: authSvc},
	})

	go func() {
		if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
