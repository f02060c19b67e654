package raffle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wheelraffle/go/internal/metrics"
	"github.com/mcdev12/wheelraffle/go/internal/raffle/events"
)

// EventSink receives every raffle event. Implementations must be safe for concurrent use.
type EventSink interface {
	Publish(ctx context.Context, event *events.Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event *events.Event) error

func (f EventSinkFunc) Publish(ctx context.Context, event *events.Event) error {
	return f(ctx, event)
}

var (
	ErrSinkQueueFull = errors.New("raffle: sink queue full")
	ErrSinkClosed    = errors.New("raffle: sink closed")
)

// MultiSink fans an event out to all sinks concurrently and returns once every sink has.
// Wrap slow sinks in an AsyncSink to keep them off the caller's path.
type MultiSink []EventSink

func (m MultiSink) Publish(ctx context.Context, event *events.Event) error {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result *multierror.Error
	)
	for _, sink := range m {
		if sink == nil {
			continue
		}
		wg.Add(1)
		go func(s EventSink) {
			defer wg.Done()
			if err := s.Publish(ctx, event); err != nil {
				mu.Lock()
				result = multierror.Append(result, err)
				mu.Unlock()
			}
		}(sink)
	}
	wg.Wait()
	return result.ErrorOrNil()
}

// InstrumentedSink wraps an EventSink with metrics collection
type InstrumentedSink struct {
	name    string
	sink    EventSink
	metrics metrics.Collector
}

func NewInstrumentedSink(name string, sink EventSink, collector metrics.Collector) *InstrumentedSink {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &InstrumentedSink{
		name:    name,
		sink:    sink,
		metrics: collector,
	}
}

func (s *InstrumentedSink) Publish(ctx context.Context, event *events.Event) error {
	start := time.Now()

	err := s.sink.Publish(ctx, event)

	s.metrics.RecordEventPublished(s.name, string(event.Type), err == nil, time.Since(start))
	return err
}

// AsyncSink hands events to a background worker so Publish never waits on the
// wrapped sink. Events are delivered in the order they were queued.
type AsyncSink struct {
	name    string
	sink    EventSink
	timeout time.Duration
	queue   chan *events.Event
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsyncSink starts the worker. Each delivery gets its own timeout, detached from the caller.
func NewAsyncSink(name string, sink EventSink, buffer int, timeout time.Duration) *AsyncSink {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &AsyncSink{
		name:    name,
		sink:    sink,
		timeout: timeout,
		queue:   make(chan *events.Event, buffer),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) Publish(ctx context.Context, event *events.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}

	select {
	case s.queue <- event:
		return nil
	default:
		return ErrSinkQueueFull
	}
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for event := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := s.sink.Publish(ctx, event); err != nil {
			log.Warn().Err(err).
				Str("sink", s.name).
				Str("channel_id", event.ChannelID).
				Str("event_type", string(event.Type)).
				Str("event_id", event.ID).
				Msg("async publish failed")
		}
		cancel()
	}
}

// Close stops accepting events and waits for the queued ones to be delivered or ctx to end.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
