package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kudupay/kuduq-backend/pkg/api"
	"github.com/kudupay/kuduq-backend/pkg/auth"
	"github.com/kudupay/kuduq-backend/pkg/config"
	"github.com/kudupay/kuduq-backend/pkg/dispatch"
	"github.com/kudupay/kuduq-backend/pkg/events"
	"github.com/kudupay/kuduq-backend/pkg/mailer"
	"github.com/kudupay/kuduq-backend/pkg/obs"
	"github.com/kudupay/kuduq-backend/pkg/payments"
	"github.com/kudupay/kuduq-backend/pkg/rapyd"
	"github.com/kudupay/kuduq-backend/pkg/store"
)

func main() {
	configPath := flag.String("config", "configs/default.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	o := obs.MustInit(ctx, cfg.Obs)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintln(os.Stderr, "observability shutdown:", err)
		}
	}()

	redisClient, err := store.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()
	kv := store.New(redisClient)

	mail := mailer.New(mailer.Config{
		Server:      cfg.SMTPServer,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUsername,
		Password:    cfg.SMTPPassword,
		Secure:      cfg.SMTPSecure,
		From:        cfg.SMTPFrom,
		FrontendURL: cfg.FrontendURL,
	})

	provider := rapyd.NewClient(rapyd.Config{
		APIToken:    cfg.RapydAPIToken,
		BaseURL:     cfg.RapydBaseURL,
		Timeout:     cfg.RapydTimeout,
		LongTimeout: cfg.RapydLongTimeout,
	})

	orchestrator := payments.NewService(provider)
	dispatcher := dispatch.New(mail, provider, kv)

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, dispatcher)
	defer consumer.Close()

	var metricsHandler http.Handler
	if mp := o.MetricsProvider(); mp != nil {
		metricsHandler = mp.HTTPHandler()
	}

	handler := api.NewHandler(orchestrator)
	var jwtConfig *auth.JWTConfig
	if cfg.JWTSecret != "" {
		jwtConfig = auth.DefaultJWTConfig(cfg.JWTSecret)
	}
	router := api.NewRouter(handler, jwtConfig, metricsHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		obs.Info(ctx, "http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		obs.Info(ctx, "queue consumer started",
			"topic", cfg.KafkaTopic, "group_id", cfg.KafkaGroupID)
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		obs.Info(ctx, "shutdown signal received")
	case err := <-errCh:
		stop()
		obs.Error(ctx, "component failed, shutting down", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
