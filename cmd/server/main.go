package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shiftlane/backend/internal/config"
	"github.com/shiftlane/backend/internal/db"
	"github.com/shiftlane/backend/internal/escrow"
	httpapi "github.com/shiftlane/backend/internal/http"
	"github.com/shiftlane/backend/internal/notify"
	"github.com/shiftlane/backend/internal/pricing"
	"github.com/shiftlane/backend/internal/service"
	"github.com/shiftlane/backend/internal/verify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "shiftlane-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	var gateway escrow.Gateway
	if cfg.EscrowURL == "" {
		gateway = &escrow.MockGateway{}
		logger.Info().Msg("using mock escrow gateway")
	} else {
		gateway = &escrow.HTTPGateway{BaseURL: cfg.EscrowURL, APIKey: cfg.EscrowAPIKey}
	}

	var verifier verify.Verifier
	if cfg.VerifierURL == "" {
		verifier = verify.MockVerifier{SupervisorCode: cfg.SupervisorCode}
		logger.Info().Msg("using mock identity verifier")
	} else {
		verifier = &verify.HTTPVerifier{BaseURL: cfg.VerifierURL, APIKey: cfg.VerifierAPIKey}
	}

	sink := notify.LogSink{Logger: logger.With().Str("component", "audit").Logger()}

	coordinator := &service.Coordinator{
		Store:   store,
		Escrow:  gateway,
		Notify:  sink,
		Pricing: pricing.DefaultConfig(),
		Logger:  logger,
	}

	trackingCfg := service.DefaultTrackingConfig()
	trackingCfg.GeofenceRadiusM = cfg.GeofenceRadiusM
	trackingCfg.ClockInEarlyTolerance = cfg.ClockInEarlyTolerance
	trackingCfg.ClockInLateTolerance = cfg.ClockInLateTolerance
	trackingCfg.MandatoryBreakMinutes = cfg.MandatoryBreakMinutes
	trackingCfg.MandatoryBreakShiftHours = cfg.MandatoryBreakShiftHours

	tracker := &service.Tracker{
		Store:    store,
		Verifier: verifier,
		Notify:   sink,
		Config:   trackingCfg,
		Logger:   logger,
	}

	router := httpapi.Router(cfg, store, coordinator, tracker, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
