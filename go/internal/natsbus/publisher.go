package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wheelraffle/go/internal/metrics"
	"github.com/mcdev12/wheelraffle/go/internal/raffle/events"
)

// MsgPublisher is the part of jetstream.JetStream the publisher uses.
type MsgPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher sends raffle events to JetStream. It satisfies raffle.EventSink.
type Publisher struct {
	nc      *nats.Conn
	js      MsgPublisher
	config  Config
	metrics metrics.Collector
}

// NewPublisher connects to NATS and makes sure the stream exists.
func NewPublisher(ctx context.Context, cfg Config, collector metrics.Collector) (*Publisher, error) {
	nc, js, err := Connect(cfg)
	if err != nil {
		return nil, err
	}

	if err := EnsureStream(ctx, js, cfg); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	p := NewPublisherWithStream(js, cfg, collector)
	p.nc = nc
	return p, nil
}

// NewPublisherWithStream builds a publisher over an existing JetStream handle.
func NewPublisherWithStream(js MsgPublisher, cfg Config, collector metrics.Collector) *Publisher {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &Publisher{js: js, config: cfg, metrics: collector}
}

// Publish sends one event, retrying with a linearly growing delay.
func (p *Publisher) Publish(ctx context.Context, event *events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &nats.Msg{
		Subject: p.config.Subject(event.Type),
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{string(event.Type)},
			"Channel-ID": []string{event.ChannelID},
			"Event-ID":   []string{event.ID},
		},
	}

	return p.publishWithRetry(ctx, msg, event.ID)
}

// publishWithRetry attempts to publish with the configured retry delay and max retries.
func (p *Publisher) publishWithRetry(ctx context.Context, msg *nats.Msg, eventID string) error {
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.config.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		ack, err := p.js.PublishMsg(ctx, msg,
			jetstream.WithMsgID(eventID),
			jetstream.WithExpectStream(p.config.StreamName),
		)
		p.metrics.RecordPublishAttempt("nats", attempt+1, err == nil)
		if err != nil {
			lastErr = err
			log.Error().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", eventID).
				Msg("failed to publish, retrying")
			continue
		}

		log.Debug().
			Str("subject", msg.Subject).
			Str("event_id", eventID).
			Uint64("sequence", ack.Sequence).
			Str("stream", ack.Stream).
			Msg("published to JetStream")
		return nil
	}

	return fmt.Errorf("publish to JetStream after %d attempts: %w", p.config.MaxRetries+1, lastErr)
}

// Close closes the NATS connection if the publisher opened it.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
