package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wheelraffle/go/internal/natsbus"
	"github.com/mcdev12/wheelraffle/go/internal/raffle/events"
)

var errMalformedEvent = errors.New("malformed raffle event")

// ConsumerConfig holds configuration for the JetStream consumer
type ConsumerConfig struct {
	Bus           natsbus.Config
	ConsumerName  string
	MaxDeliver    int           // Max delivery attempts
	AckWait       time.Duration // How long to wait for ack
	MaxAckPending int           // Max messages pending ack
}

// DefaultConsumerConfig returns default JetStream consumer configuration
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Bus:           natsbus.DefaultConfig(),
		ConsumerName:  "raffle-gateway",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
	}
}

// EventConsumer relays raffle events from JetStream to connected overlays
type EventConsumer struct {
	connectionManager *ConnectionManager
	nc                *nats.Conn
	consumer          jetstream.Consumer
	config            ConsumerConfig
}

// NewEventConsumer connects to NATS and creates or reuses the durable consumer
func NewEventConsumer(ctx context.Context, cm *ConnectionManager, config ConsumerConfig) (*EventConsumer, error) {
	nc, js, err := natsbus.Connect(config.Bus)
	if err != nil {
		return nil, err
	}

	ec := &EventConsumer{
		connectionManager: cm,
		nc:                nc,
		config:            config,
	}

	if err := ec.ensureConsumer(ctx, js); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}

	return ec, nil
}

func (ec *EventConsumer) ensureConsumer(ctx context.Context, js jetstream.JetStream) error {
	if err := natsbus.EnsureStream(ctx, js, ec.config.Bus); err != nil {
		return err
	}

	// overlays get a snapshot on connect, so only new events matter
	consumer, err := js.CreateOrUpdateConsumer(ctx, ec.config.Bus.StreamName, jetstream.ConsumerConfig{
		Durable:       ec.config.ConsumerName,
		Description:   "Raffle gateway WebSocket relay",
		FilterSubject: ec.config.Bus.SubjectFilter(),
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    ec.config.MaxDeliver,
		AckWait:       ec.config.AckWait,
		MaxAckPending: ec.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.Bus.StreamName).
		Msg("JetStream consumer ready")

	ec.consumer = consumer
	return nil
}

// Start consumes until ctx is done
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Msg("starting JetStream event consumer")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			ec.processMessage(ctx, msg)
		}
	}
}

func (ec *EventConsumer) processMessage(ctx context.Context, msg jetstream.Msg) {
	err := relayEvent(ctx, ec.connectionManager, msg.Data())
	switch {
	case err == nil:
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ACK message")
		}
	case errors.Is(err, errMalformedEvent):
		// redelivery cannot fix a bad payload
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("dropping malformed event")
		if termErr := msg.Term(); termErr != nil {
			log.Error().Err(termErr).Msg("failed to TERM message")
		}
	default:
		log.Warn().Err(err).Str("subject", msg.Subject()).Msg("failed to relay event")
		if nakErr := msg.Nak(); nakErr != nil {
			log.Error().Err(nakErr).Msg("failed to NAK message")
		}
	}
}

// Stop closes the NATS connection
func (ec *EventConsumer) Stop() error {
	if ec.nc != nil {
		ec.nc.Close()
	}
	return nil
}

// relayEvent decodes a bus message and queues it for the channel's overlays.
func relayEvent(ctx context.Context, cm *ConnectionManager, data []byte) error {
	event, err := decodeEvent(data)
	if err != nil {
		return err
	}
	return cm.Publish(ctx, event)
}

func decodeEvent(data []byte) (*events.Event, error) {
	var event events.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if event.ID == "" || event.ChannelID == "" || event.Type == "" {
		return nil, fmt.Errorf("%w: missing id, channel_id or type", errMalformedEvent)
	}
	return &event, nil
}
