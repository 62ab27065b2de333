// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/config"
	"github.com/codr1/Courtside/internal/db"
	"github.com/codr1/Courtside/internal/email"
	"github.com/codr1/Courtside/internal/payments"
	"github.com/codr1/Courtside/internal/scheduler"
)

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	var notifier email.Sender
	if cfg.Email.Enabled {
		sesClient, err := email.NewSESClient(
			cfg.Email.AccessKeyID,
			cfg.Email.SecretAccessKey,
			cfg.Email.Region,
			cfg.Email.Sender,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize SES client")
		}
		notifier = sesClient
	}

	engine := booking.NewService(database,
		booking.WithOperatingHours(cfg.Booking.OpenHour, cfg.Booking.CloseHour),
		booking.WithGuestResolver(booking.NewHeuristicGuestResolver(cfg.Booking.PhoneRegion)),
		booking.WithNotifier(notifier),
	)

	var gatewayClient payments.Client
	if cfg.Gateway.BaseURL != "" {
		gatewayClient = payments.NewHTTPClient(
			cfg.Gateway.BaseURL,
			cfg.Gateway.SecretKey,
			cfg.Gateway.RequestTimeout,
			cfg.Gateway.MaxRetries,
		)
	}
	webhookResolver := payments.NewResolver(database, engine, gatewayClient)

	sched, err := scheduler.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	if err := scheduler.RegisterPaymentExpiryJob(sched, database, cfg.Booking.PendingTTL); err != nil {
		log.Fatal().Err(err).Msg("Failed to register payment expiry job")
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
	}()

	server := newServer(cfg, database, engine, webhookResolver, gatewayClient)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Run server
	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
