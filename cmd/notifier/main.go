package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/avelichko/storefront/internal/config"
	"github.com/avelichko/storefront/internal/notifier"
	"github.com/avelichko/storefront/pkg/bootstrap"
	"github.com/avelichko/storefront/pkg/config/configloader"
	pubnats "github.com/avelichko/storefront/pkg/nats"
)

const serviceName = "notifier"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run initializes the notifier and consumes order creation events until cancelled.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.NotifierConfig](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	nc, err := pubnats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()
	js, err := pubnats.NewJetStreamContext(nc)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	logger.Info("Notifier started", slog.String("stream", cfg.Subscriber.Stream), slog.String("subject", cfg.Subscriber.Subject))
	if err := notifier.Start(ctx, js, cfg.Subscriber, logger); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("subscriber failed: %w", err)
	}
	return nil
}
