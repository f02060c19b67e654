package metrics

import (
	"fmt"
	"io"
	"net/http"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
)

// Collector defines the interface for collecting raffle metrics
type Collector interface {
	RecordRaffleStarted(poolSize int)
	RecordRaffleClosed(reason string)
	RecordNoEligible()
	RecordEventPublished(sink, eventType string, success bool, duration time.Duration)
	RecordPublishAttempt(sink string, attempt int, success bool)
}

// NoOpCollector is a no-op implementation for when metrics aren't needed
type NoOpCollector struct{}

func (NoOpCollector) RecordRaffleStarted(poolSize int) {}
func (NoOpCollector) RecordRaffleClosed(reason string) {}
func (NoOpCollector) RecordNoEligible() {}
func (NoOpCollector) RecordEventPublished(sink, eventType string, success bool, duration time.Duration) {}
func (NoOpCollector) RecordPublishAttempt(sink string, attempt int, success bool) {}

// VMCollector implements Collector on a VictoriaMetrics set
type VMCollector struct {
	set *vm.Set
}

func NewVMCollector() *VMCollector {
	return &VMCollector{set: vm.NewSet()}
}

func (c *VMCollector) RecordRaffleStarted(poolSize int) {
	c.set.GetOrCreateCounter("raffle_started_total").Inc()
	c.set.GetOrCreateHistogram("raffle_pool_size").Update(float64(poolSize))
}

func (c *VMCollector) RecordRaffleClosed(reason string) {
	c.set.GetOrCreateCounter(fmt.Sprintf(`raffle_closed_total{reason=%q}`, reason)).Inc()
}

func (c *VMCollector) RecordNoEligible() {
	c.set.GetOrCreateCounter("raffle_no_eligible_total").Inc()
}

func (c *VMCollector) RecordEventPublished(sink, eventType string, success bool, duration time.Duration) {
	c.set.GetOrCreateCounter(fmt.Sprintf(`raffle_events_published_total{sink=%q,type=%q,status=%q}`,
		sink, eventType, status(success))).Inc()
	c.set.GetOrCreateHistogram(fmt.Sprintf(`raffle_event_publish_duration_seconds{sink=%q}`, sink)).
		Update(duration.Seconds())
}

func (c *VMCollector) RecordPublishAttempt(sink string, attempt int, success bool) {
	c.set.GetOrCreateCounter(fmt.Sprintf(`raffle_publish_attempts_total{sink=%q,attempt="%d",status=%q}`,
		sink, attempt, status(success))).Inc()
}

// WritePrometheus writes the collected metrics in Prometheus text format.
func (c *VMCollector) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}

// Handler serves the metrics at /metrics.
func (c *VMCollector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		c.WritePrometheus(w)
		vm.WriteProcessMetrics(w)
	})
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
