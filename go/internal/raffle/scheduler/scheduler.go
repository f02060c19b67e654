package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wheelraffle/go/internal/models"
)

// AnnounceBuffer gives the CSS transition time to settle before the winner is announced.
const AnnounceBuffer = time.Second

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// State is the lifecycle of an armed announcement.
type State int32

const (
	StateIdle State = iota
	StateArmed
	StateFired
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateFired:
		return "fired"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// AnnounceDelay is how long after arming the winner callback fires.
func AnnounceDelay(duration float64) time.Duration {
	return time.Duration(duration*float64(time.Second)) + AnnounceBuffer
}

// Scheduler arms one-shot winner announcements.
type Scheduler struct {
	clock Clock
}

// New creates a Scheduler. A nil clock means the real clock.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{clock: clock}
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Handle owns one armed timer. It leaves StateArmed exactly once.
type Handle struct {
	id       uuid.UUID
	winnerID string
	deadline time.Time

	mu    sync.Mutex
	state State
	timer clockwork.Timer
	stop  chan struct{}
	done  chan struct{}
}

// Arm schedules onWin(winner.ID) to run once after AnnounceDelay(duration).
// onWin runs on the timer goroutine and must not be nil.
func (s *Scheduler) Arm(onWin func(winnerID string), winner models.Participant, duration float64) *Handle {
	delay := AnnounceDelay(duration)

	h := &Handle{
		id:       uuid.New(),
		winnerID: winner.ID,
		deadline: s.clock.Now().Add(delay),
		state:    StateIdle,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	h.timer = s.clock.NewTimer(delay)
	h.state = StateArmed
	h.mu.Unlock()

	go h.wait(onWin)

	log.Debug().
		Str("handle_id", h.id.String()).
		Str("winner_id", winner.ID).
		Time("deadline", h.deadline).
		Dur("delay", delay).
		Msg("armed winner announcement")

	return h
}

// Cancel stops a pending announcement. Cancelling twice, a nil handle, or after the
// announcement fired is a no-op.
func (s *Scheduler) Cancel(h *Handle) {
	h.Cancel()
}

func (h *Handle) wait(onWin func(string)) {
	defer close(h.done)

	select {
	case <-h.timer.Chan():
		if !h.transition(StateFired) {
			// lost the race against Cancel
			log.Debug().Str("handle_id", h.id.String()).Msg("timer fired after cancel - dropped")
			return
		}
		log.Debug().Str("handle_id", h.id.String()).Str("winner_id", h.winnerID).Msg("announcement fired")
		onWin(h.winnerID)
	case <-h.stop:
		stopAndDrainTimer(h.timer)
		log.Debug().Str("handle_id", h.id.String()).Msg("announcement cancelled")
	}
}

// transition moves an armed handle to a terminal state. Only the first caller wins.
func (h *Handle) transition(to State) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateArmed {
		return false
	}
	h.state = to
	return true
}

// Cancel prevents the announcement from firing if it has not fired yet.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	if !h.transition(StateCancelled) {
		return
	}
	close(h.stop)
}

// State reports where the handle is in its lifecycle.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// ID identifies the handle in logs.
func (h *Handle) ID() uuid.UUID {
	return h.id
}

// Deadline is when the announcement is due.
func (h *Handle) Deadline() time.Time {
	return h.deadline
}

// Done is closed once the timer goroutine has exited, after onWin returned or the
// cancel was observed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// stopAndDrainTimer safely stops a timer and drains its channel to prevent goroutine leaks.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
