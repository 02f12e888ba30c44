package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/citizen-services/auth-api/internal/cleanup"
	"github.com/citizen-services/auth-api/internal/config"
	"github.com/citizen-services/auth-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/citizen-services/auth-api/internal/infrastructure/jwt"
	"github.com/citizen-services/auth-api/internal/infrastructure/smtp"
	"github.com/citizen-services/auth-api/internal/infrastructure/sns"
	transporthttp "github.com/citizen-services/auth-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback, codes are still persisted).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	accountRepo := dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts)
	captchaRepo := dynamo.NewCaptchaRepo(dynamoClient, cfg.DynamoTables.Captchas)
	otpRepo := dynamo.NewOTPRepo(dynamoClient, cfg.DynamoTables.OTPs)

	deps := &transporthttp.Deps{
		AccountRepo: accountRepo,
		CaptchaRepo: captchaRepo,
		OTPRepo:     otpRepo,
		Mailer:      mailer,
		SMSSender:   smsSender,
		JWTProvider: jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	// Background reclamation of expired captcha and passcode rows; stops on
	// shutdown via context cancellation.
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	sweeper := cleanup.NewSweeper(cfg.CleanupInterval, map[string]cleanup.Reclaimer{
		"captchas": cleanup.ReclaimerFunc(func(ctx context.Context, now time.Time) (int, error) {
			return captchaRepo.DeleteExpired(ctx, now.Unix())
		}),
		"otps": cleanup.ReclaimerFunc(func(ctx context.Context, now time.Time) (int, error) {
			return otpRepo.DeleteExpired(ctx, now.Unix())
		}),
	})
	sweeper.Start(sweepCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSweeper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
