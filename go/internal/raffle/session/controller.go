package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wheelraffle/go/internal/models"
	"github.com/mcdev12/wheelraffle/go/internal/raffle/scheduler"
	"github.com/mcdev12/wheelraffle/go/internal/raffle/selector"
)

// ErrMissingCallback is returned when Open is called without onWin or onClose.
var ErrMissingCallback = errors.New("session: onWin and onClose callbacks are required")

// Controller opens raffle sessions: one selection and one armed announcement each.
type Controller struct {
	rng       selector.RandomSource
	scheduler *scheduler.Scheduler
}

// NewController creates a Controller. rng is wrapped so sessions may open concurrently.
func NewController(rng selector.RandomSource, sched *scheduler.Scheduler) *Controller {
	return &Controller{
		rng:       selector.Locked(rng),
		scheduler: sched,
	}
}

// Session is one open-to-close lifecycle of a raffle dialog.
type Session struct {
	ID              uuid.UUID
	Result          selector.SelectionResult
	DurationSeconds float64
	OpenedAt        time.Time

	handle  *scheduler.Handle
	onClose func()

	mu       sync.Mutex
	closed   bool
	done     chan struct{}
	doneOnce sync.Once
}

// Open selects a winner from pool and arms the announcement for it.
// pool must be non-empty; callers check before opening the dialog.
func (c *Controller) Open(pool []models.Participant, duration float64, onWin func(winnerID string), onClose func()) (*Session, error) {
	if onWin == nil || onClose == nil {
		return nil, ErrMissingCallback
	}

	result, err := selector.Select(pool, duration, c.rng)
	if err != nil {
		return nil, fmt.Errorf("select winner: %w", err)
	}

	s := &Session{
		ID:              uuid.New(),
		Result:          result,
		DurationSeconds: duration,
		OpenedAt:        c.scheduler.Now(),
		onClose:         onClose,
		done:            make(chan struct{}),
	}

	// the timer goroutine may call back into s before Arm returns
	s.mu.Lock()
	s.handle = c.scheduler.Arm(func(winnerID string) {
		onWin(winnerID)
		s.finish()
	}, result.Winner, duration)
	s.mu.Unlock()

	log.Info().
		Str("session_id", s.ID.String()).
		Int("pool_size", len(pool)).
		Int("winner_index", result.WinnerIndex).
		Str("winner_id", result.Winner.ID).
		Int("rotation", result.RotationTargetDegrees).
		Float64("duration_sec", duration).
		Msg("raffle session opened")

	return s, nil
}

// CloseImmediately tears the session down at the user's request.
// The pending announcement is cancelled before onClose runs, so onWin cannot fire
// once this has been called. If onWin already started, onClose runs after it returns.
// Only the first call invokes onClose. It must not be called from inside onWin.
func (c *Controller) CloseImmediately(s *Session) {
	if s == nil {
		return
	}
	s.closeImmediately()
}

func (s *Session) closeImmediately() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	h := s.handle
	h.Cancel()
	s.mu.Unlock()

	if h.State() == scheduler.StateFired {
		<-h.Done()
	}

	log.Info().
		Str("session_id", s.ID.String()).
		Str("outcome", s.Outcome().String()).
		Msg("raffle session closed")

	s.onClose()
	s.finish()
}

func (s *Session) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

// Outcome reports the announcement state: armed, fired or cancelled.
func (s *Session) Outcome() scheduler.State {
	return s.pending().State()
}

// Closed reports whether CloseImmediately has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// AnnounceAt is when the winner is due to be announced.
func (s *Session) AnnounceAt() time.Time {
	return s.pending().Deadline()
}

func (s *Session) pending() *scheduler.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Winner is the pre-selected winner of this session.
func (s *Session) Winner() models.Participant {
	return s.Result.Winner
}

// Done is closed when the winner has been announced or the session was closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
