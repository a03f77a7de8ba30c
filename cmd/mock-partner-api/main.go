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

	"github.com/rs/zerolog"

	"github.com/OpenMoove/partnerapi/internal/mockserver"
)

func main() {
	addr := flag.String("addr", ":8091", "Listen address")
	apiKey := flag.String("api-key", "test-key", "API key the mock accepts")
	rateLimit := flag.Int("rate-limit", 0, "Requests per minute (0 = unlimited)")
	webhookURL := flag.String("webhook-url", os.Getenv("MOCK_WEBHOOK_URL"), "Deliver signed events to this URL")
	webhookSecret := flag.String("webhook-secret", os.Getenv("OPENMOOVE_WEBHOOK_SECRET"), "Webhook signing secret")
	seed := flag.Bool("seed", true, "Preload demo data")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "mock-partner-api").Logger()

	srv := mockserver.New(mockserver.Config{
		APIKey:        *apiKey,
		RateLimit:     *rateLimit,
		WebhookURL:    *webhookURL,
		WebhookSecret: *webhookSecret,
		SeedDemoData:  *seed,
	}, logger)

	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", *addr).Msg("starting mock partner API")
		fmt.Printf("Mock Partner API listening on %s (API key: %s)\n", *addr, *apiKey)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
}
