package natsbus

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mcdev12/wheelraffle/go/internal/raffle/events"
)

// Config holds the JetStream connection and stream settings
type Config struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration // How long to keep messages
	MaxMsgs         int64         // Max number of messages to keep
	Replicas        int
	DuplicateWindow time.Duration
	MaxRetries      int           // publish retries after the first attempt
	RetryDelay      time.Duration // multiplied by the attempt number
}

func DefaultConfig() Config {
	return Config{
		URL:             nats.DefaultURL,
		StreamName:      "RAFFLE_EVENTS",
		SubjectPrefix:   "raffle.events",
		MaxReconnects:   -1, // Infinite
		ReconnectWait:   2 * time.Second,
		MaxAge:          24 * time.Hour,
		MaxMsgs:         -1, // No limit
		Replicas:        1,
		DuplicateWindow: 2 * time.Minute,
		MaxRetries:      3,
		RetryDelay:      200 * time.Millisecond,
	}
}

// Subject is where events of type t are published, e.g. raffle.events.RaffleWon.
func (c Config) Subject(t events.EventType) string {
	return fmt.Sprintf("%s.%s", c.SubjectPrefix, t)
}

// SubjectFilter matches every raffle event subject.
func (c Config) SubjectFilter() string {
	return fmt.Sprintf("%s.>", c.SubjectPrefix)
}
