package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/vkoshelev/identityd/internal/api/http/httpctx"
	"github.com/vkoshelev/identityd/internal/api/http/router"
	httpServer "github.com/vkoshelev/identityd/internal/api/http/server"
	"github.com/vkoshelev/identityd/internal/config"
	"github.com/vkoshelev/identityd/internal/logger"
	"github.com/vkoshelev/identityd/internal/mail"
	"github.com/vkoshelev/identityd/internal/model"
	"github.com/vkoshelev/identityd/internal/repository/postgres"
	"github.com/vkoshelev/identityd/internal/revocation"
	"github.com/vkoshelev/identityd/internal/service"
	"github.com/vkoshelev/identityd/internal/token"
	"github.com/vkoshelev/identityd/internal/validate"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	userRepo := postgres.NewUserRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	confirmationRepo := postgres.NewConfirmationTokenRepository(db)

	tokenManager := token.NewJWT(cfg.Token.Secret)
	revocations := revocation.NewRedis(redisClient, cfg.Redis.FailClosed, logger.Component("revocation"))

	var mailSender model.MailSender
	if cfg.Mail.Host != "" {
		mailSender = mail.NewSMTPSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.From, logger.Component("mail"))
	} else {
		mailSender = mail.NewLogSender(logger.Component("mail"))
	}

	authService := service.NewAuth(
		userRepo, refreshTokenRepo, confirmationRepo, revocations,
		tokenManager, mailSender,
		service.Config{
			SecretKey:           cfg.Token.Secret,
			AccessTTL:           cfg.Token.AccessTTL(),
			RefreshTTL:          cfg.Token.RefreshTTL(),
			ConfirmationTTL:     cfg.Token.ConfirmationTTL(),
			ConfirmationBaseURL: cfg.Mail.BaseURL,
		},
		logger,
	)
	userService := service.NewUser(userRepo, logger)
	sweeper := service.NewSweeper(refreshTokenRepo, confirmationRepo, cfg.Sweep.Interval(), logger.Component("sweeper"))

	ctxMgr := httpctx.NewManager()
	emailValidator := validate.NewEmailValidator(cfg.Register.AllowedEmailDomains)

	r := router.New(authService, userService, tokenManager, revocations, ctxMgr, emailValidator, logger)
	server := httpServer.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = httpServer.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = httpServer.NewPlainListener()
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(server)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", server.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
