package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/referral-workflow/internal/application/service"
	"github.com/garyjia/referral-workflow/internal/config"
	"github.com/garyjia/referral-workflow/internal/container"
	"github.com/garyjia/referral-workflow/pkg/utils"
)

// Isolated test for notification delivery.
// Sends one message through the configured channel without starting the service.

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	to := flag.String("to", "", "recipient email address")
	subject := flag.String("subject", "", "message subject (optional)")
	body := flag.String("body", "", "message body (optional)")
	channel := flag.String("channel", "", "override notifier channel: smtp, lark or log")
	flag.Parse()

	fmt.Println("=== Referral Notification Test ===")
	fmt.Println()

	if *to == "" {
		log.Fatal("-to is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *channel != "" {
		cfg.Notifier.Channel = *channel
	}

	logger, err := utils.NewDevelopmentLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	fmt.Printf("Channel: %s\n", cfg.Notifier.Channel)
	fmt.Printf("Host:    %s:%d (tls=%v)\n", cfg.Notifier.Host, cfg.Notifier.Port, cfg.Notifier.UseTLS)
	fmt.Printf("To:      %s\n", *to)

	n, err := container.ProvideNotifier(&cfg.ToContainerConfig().Notifier, logger)
	if err != nil {
		log.Fatalf("Failed to create notifier: %v", err)
	}

	svc := service.NewNotificationService(n, utils.NewKeyValueLogger(logger))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("\nSending...")
	if err := svc.SendTest(ctx, *to, *subject, *body); err != nil {
		logger.Error("Test notification failed", zap.Error(err))
		log.Fatalf("✗ Send failed: %v", err)
	}

	fmt.Println("✓ Test notification sent")
}
