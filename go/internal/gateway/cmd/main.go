package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wheelraffle/go/internal/config"
	"github.com/mcdev12/wheelraffle/go/internal/gateway"
	"github.com/mcdev12/wheelraffle/go/internal/raffle"
)

// Standalone overlay gateway: relays raffle events from JetStream and asks the
// raffle server for snapshots when an overlay connects.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.Load(getEnv("RAFFLE_CONFIG", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	port := getEnv("GATEWAY_PORT", "8081")

	var snapshots gateway.SnapshotProvider
	if cfg.Gateway.RaffleAPIURL != "" {
		snapshots = raffle.NewSnapshotClient(&http.Client{Timeout: 5 * time.Second}, cfg.Gateway.RaffleAPIURL)
	} else {
		log.Warn().Msg("RAFFLE_API_URL not set, overlays will not receive a snapshot on connect")
	}

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.ConsumeFromBus = true
	gatewayConfig.ConsumerConfig.Bus = cfg.NATS.Bus()
	if cfg.Gateway.ConsumerName != "" {
		gatewayConfig.ConsumerConfig.ConsumerName = cfg.Gateway.ConsumerName
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info().
		Str("nats_url", cfg.NATS.URL).
		Str("raffle_api_url", cfg.Gateway.RaffleAPIURL).
		Str("port", port).
		Msg("starting raffle gateway")

	gatewayService, err := gateway.NewService(ctx, gatewayConfig, snapshots)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}

	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"service":     "raffle-gateway",
			"connections": gatewayService.Stats().TotalConnections,
		})
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()

	log.Info().Msg("raffle gateway shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
