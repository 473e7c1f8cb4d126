package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-like-relay/internal/application/intake"
	"github.com/go-like-relay/internal/application/ratelimit"
	"github.com/go-like-relay/internal/application/reconcile"
	"github.com/go-like-relay/internal/config"
	"github.com/go-like-relay/internal/infrastructure/dynamo"
	"github.com/go-like-relay/internal/infrastructure/grantapi"
	jwtinfra "github.com/go-like-relay/internal/infrastructure/jwt"
	s3infra "github.com/go-like-relay/internal/infrastructure/s3"
	"github.com/go-like-relay/internal/infrastructure/shortener"
	"github.com/go-like-relay/internal/infrastructure/sns"
	"github.com/go-like-relay/internal/infrastructure/webhook"
	transporthttp "github.com/go-like-relay/internal/transport/http"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(cfg)
	if err != nil {
		log.Fatalf("dynamodb client: %v", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
	requestRepo := dynamo.NewRequestRepo(dynamoClient, cfg.DynamoTables.Requests)
	profileRepo := dynamo.NewProfileRepo(dynamoClient, cfg.DynamoTables.Profiles)

	// JWT provider (optional, authenticated routes reject everything without it).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	grants := grantapi.New(grantapi.Options{
		GrantURL:      cfg.GrantAPIURL,
		LookupURL:     cfg.PlayerInfoAPIURL,
		GrantTimeout:  cfg.GrantTimeout,
		LookupTimeout: cfg.LookupTimeout,
	})

	var links intake.LinkShortener
	if cfg.ShortenerAPIURL != "" {
		links = shortener.New(cfg.ShortenerAPIURL, cfg.ShortenerAPIKey)
	}

	notifier, err := newNotifier(cfg)
	if err != nil {
		log.Fatalf("notifier: %v", err)
	}

	// Receipt archive (optional).
	var archive reconcile.Archive
	if cfg.ReceiptsBucket != "" {
		s3Client, err := s3infra.NewClient(cfg)
		if err != nil {
			log.Fatalf("s3 client: %v", err)
		}
		archive = s3infra.NewReceiptArchive(s3Client, cfg.ReceiptsBucket)
	}

	var pacer *rate.Limiter
	if cfg.GrantRPS > 0 {
		pacer = rate.NewLimiter(rate.Limit(cfg.GrantRPS), 1)
	}

	reconciler := reconcile.New(reconcile.Deps{
		Requests:       requestRepo,
		Profiles:       profileRepo,
		Fulfiller:      grants,
		Notifier:       notifier,
		Archive:        archive,
		Policy:         ratelimit.NewPolicy(cfg.RateLimitWindow),
		Pacer:          pacer,
		PollInterval:   cfg.PollInterval,
		RequestTimeout: cfg.RequestTimeout,
		Concurrency:    cfg.WorkerConcurrency,
	})
	reconcilerDone := make(chan struct{})
	go func() {
		defer close(reconcilerDone)
		reconciler.Run(ctx)
	}()

	deps := &transporthttp.Deps{
		RequestRepo: requestRepo,
		ProfileRepo: profileRepo,
		Lookup:      grants,
		Shortener:   links,
		JWTProvider: jwtProvider,
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	<-reconcilerDone
	log.Println("Server stopped")
}

func newNotifier(cfg *config.Config) (reconcile.Notifier, error) {
	switch cfg.NotifyDriver {
	case config.NotifyDriverSNS:
		client, err := sns.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return sns.NewTopicNotifier(client, cfg.SNSTopicARN), nil
	default:
		return webhook.NewNotifier(cfg.NotifyWebhookURL, cfg.BotToken), nil
	}
}
