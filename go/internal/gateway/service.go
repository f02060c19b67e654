package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wheelraffle/go/internal/raffle/events"
)

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	ConsumerConfig   ConsumerConfig
	// ConsumeFromBus relays events from JetStream instead of receiving them in-process.
	ConsumeFromBus bool
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		ConsumerConfig:   DefaultConsumerConfig(),
	}
}

// Service ties overlay connections to an event source. In-process it is an
// EventSink for the raffle app; standalone it reads events off the bus.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
}

// NewService creates the gateway. snapshots may be nil.
func NewService(ctx context.Context, config Config, snapshots SnapshotProvider) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig, snapshots)

	s := &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
	}

	if config.ConsumeFromBus {
		consumer, err := NewEventConsumer(ctx, connectionManager, config.ConsumerConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.eventConsumer = consumer
	}

	return s, nil
}

// Start runs until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("consume_from_bus", s.eventConsumer != nil).Msg("starting raffle gateway")

	go s.connectionManager.Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()

	log.Info().Msg("raffle gateway shutting down")
	return s.Stop()
}

// Stop releases the bus connection; overlays are closed by the connection manager.
func (s *Service) Stop() error {
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event consumer")
		}
	}
	return nil
}

// Publish forwards an event to the channel's overlays.
func (s *Service) Publish(ctx context.Context, event *events.Event) error {
	return s.connectionManager.Publish(ctx, event)
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("raffle gateway routes registered")
}

// Stats returns statistics about connected overlays
func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
