package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wheelraffle/go/internal/config"
	"github.com/mcdev12/wheelraffle/go/internal/gateway"
	"github.com/mcdev12/wheelraffle/go/internal/metrics"
	"github.com/mcdev12/wheelraffle/go/internal/natsbus"
	"github.com/mcdev12/wheelraffle/go/internal/participants"
	participantsdb "github.com/mcdev12/wheelraffle/go/internal/participants/db"
	"github.com/mcdev12/wheelraffle/go/internal/raffle"
	"github.com/mcdev12/wheelraffle/go/internal/winners"
	winnersdb "github.com/mcdev12/wheelraffle/go/internal/winners/db"
)

type Services struct {
	Participants *participants.Service
	Raffle       *raffle.Service
	Gateway      *gateway.Service
	Metrics      *metrics.VMCollector

	raffleApp *raffle.App
	busSink   *raffle.AsyncSink
	publisher *natsbus.Publisher
}

func setupServices(ctx context.Context, cfg *config.Config, database *sql.DB) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer
	collector := metrics.NewVMCollector()

	var (
		participantRepo participants.ParticipantsRepository
		winnerStore     raffle.WinnerStore
	)
	switch cfg.Store.Kind {
	case "postgres":
		participantRepo = participants.NewRepository(participantsdb.New(database), database)
		winnerStore = winners.NewRepository(winnersdb.New(database))
	default:
		participantRepo = participants.NewMemoryStore(nil)
		winnerStore = winners.NewMemoryStore()
	}

	// Participants
	participantApp := participants.NewApp(participantRepo)
	if cfg.Store.SeedFile != "" {
		reqs, err := participants.LoadFile(cfg.Store.SeedFile)
		if err != nil {
			return nil, err
		}
		n, err := participantApp.ImportParticipants(ctx, reqs)
		if err != nil {
			return nil, fmt.Errorf("failed to seed participants: %w", err)
		}
		log.Info().Int("count", n).Str("file", cfg.Store.SeedFile).Msg("seeded participants")
	}

	// Raffle; the sink is attached once the gateway exists
	raffleApp := raffle.NewApp(participantApp, winnerStore, nil,
		raffle.WithSettings(cfg.Raffle.Settings()),
		raffle.WithMetrics(collector),
	)

	// Gateway, fed in-process
	gatewayConfig := gateway.DefaultConfig()
	gatewayService, err := gateway.NewService(ctx, gatewayConfig, raffleApp)
	if err != nil {
		return nil, err
	}

	sinks := raffle.MultiSink{raffle.NewInstrumentedSink("overlay", gatewayService, collector)}

	var (
		publisher *natsbus.Publisher
		busSink   *raffle.AsyncSink
	)
	if cfg.NATS.Enabled {
		publisher, err = natsbus.NewPublisher(ctx, cfg.NATS.Bus(), collector)
		if err != nil {
			return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
		}
		// publish retries run on the sink worker, never on the RPC or timer goroutine
		busSink = raffle.NewAsyncSink("nats", raffle.NewInstrumentedSink("nats", publisher, collector), 256, 30*time.Second)
		sinks = append(sinks, busSink)
	}
	raffleApp.SetSink(sinks)

	return &Services{
		Participants: participants.NewService(participantApp),
		Raffle:       raffle.NewService(raffleApp),
		Gateway:      gatewayService,
		Metrics:      collector,
		raffleApp:    raffleApp,
		busSink:      busSink,
		publisher:    publisher,
	}, nil
}

// Close cancels open raffles, drains queued bus events, then releases the bus connection.
func (s *Services) Close(ctx context.Context) {
	s.raffleApp.Close()
	if s.busSink != nil {
		if err := s.busSink.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("bus events still queued at shutdown")
		}
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
}
