package raffle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wheelraffle/go/internal/metrics"
	"github.com/mcdev12/wheelraffle/go/internal/models"
	"github.com/mcdev12/wheelraffle/go/internal/raffle/events"
	"github.com/mcdev12/wheelraffle/go/internal/raffle/scheduler"
	"github.com/mcdev12/wheelraffle/go/internal/raffle/selector"
	"github.com/mcdev12/wheelraffle/go/internal/raffle/session"
)

var (
	ErrMissingChannel          = errors.New("raffle: channel id is required")
	ErrDurationTooShort        = errors.New("raffle: duration below minimum")
	ErrRaffleInProgress        = errors.New("raffle: a raffle is already open for this channel")
	ErrNoEligibleParticipants  = errors.New("raffle: no eligible participants")
	ErrNoticeActive            = errors.New("raffle: no-eligible notice is still showing")
	ErrNoOpenRaffle            = errors.New("raffle: no open raffle for this channel")
	ErrParticipantsUnavailable = errors.New("raffle: participant source unavailable")
	ErrAppClosed               = errors.New("raffle: app is shut down")
)

// ParticipantSource yields the full participant snapshot, eligible or not.
type ParticipantSource interface {
	ListParticipants(ctx context.Context) ([]models.Participant, error)
}

// WinnerStore persists announced winners.
type WinnerStore interface {
	Record(ctx context.Context, w models.Winner) (*models.Winner, error)
	ListRecent(ctx context.Context, channelID string, limit int) ([]models.Winner, error)
}

// Settings tunes the host-side dialog behaviour.
type Settings struct {
	DefaultDuration float64       // seconds, used when a start request carries none
	MinDuration     float64       // seconds
	NoticeWindow    time.Duration // how long the "no eligible participants" notice shows
	HistoryLimit    int           // default page size for RecentWinners
	MaxHistoryLimit int
	RecordTimeout   time.Duration // bound on each background winner write
}

// DefaultSettings mirrors the overlay defaults: 7s spin, 1s minimum, 3s notice.
func DefaultSettings() Settings {
	return Settings{
		DefaultDuration: 7,
		MinDuration:     1,
		NoticeWindow:    3 * time.Second,
		HistoryLimit:    10,
		MaxHistoryLimit: 100,
		RecordTimeout:   5 * time.Second,
	}
}

// dialog is the per-channel raffle window. A dialog with a nil session is still starting.
type dialog struct {
	channelID string
	session   *session.Session
	started   events.RaffleStartedPayload
	winner    *models.Participant
}

// App runs at most one raffle dialog per channel.
type App struct {
	source     ParticipantSource
	winners    WinnerStore
	sink       EventSink
	controller *session.Controller
	rng        selector.RandomSource
	clock      clockwork.Clock
	metrics    metrics.Collector
	settings   Settings

	mu      sync.Mutex
	dialogs map[string]*dialog
	notices map[string]time.Time
	closed  bool

	recording sync.WaitGroup
}

// Option configures an App.
type Option func(*App)

// WithClock injects the clock used for timers and timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(a *App) { a.clock = clock }
}

// WithRandomSource injects the random source used for selection.
func WithRandomSource(rng selector.RandomSource) Option {
	return func(a *App) { a.rng = rng }
}

func WithSettings(s Settings) Option {
	return func(a *App) { a.settings = s }
}

func WithMetrics(c metrics.Collector) Option {
	return func(a *App) { a.metrics = c }
}

// NewApp creates an App. sink may be nil when nothing listens for events.
func NewApp(source ParticipantSource, winners WinnerStore, sink EventSink, opts ...Option) *App {
	a := &App{
		source:   source,
		winners:  winners,
		sink:     sink,
		clock:    clockwork.NewRealClock(),
		metrics:  metrics.NoOpCollector{},
		settings: DefaultSettings(),
		dialogs:  make(map[string]*dialog),
		notices:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = selector.NewRandomSource()
	}
	a.controller = session.NewController(a.rng, scheduler.New(a.clock))
	if a.sink == nil {
		a.sink = MultiSink{}
	}
	return a
}

// SetSink replaces the event sink. Call it before the first StartRaffle.
func (a *App) SetSink(sink EventSink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sink = sink
}

// StartRaffle opens the dialog for channelID and spins the wheel.
// duration <= 0 means the default duration.
func (a *App) StartRaffle(ctx context.Context, channelID string, duration float64) (*events.RaffleStartedPayload, error) {
	if channelID == "" {
		return nil, ErrMissingChannel
	}
	duration, err := a.resolveDuration(duration)
	if err != nil {
		return nil, err
	}

	placeholder, err := a.reserve(channelID)
	if err != nil {
		return nil, err
	}

	all, err := a.source.ListParticipants(ctx)
	if err != nil {
		a.release(placeholder)
		return nil, fmt.Errorf("%w: %w", ErrParticipantsUnavailable, err)
	}

	eligible := models.FilterEligible(all)
	if len(eligible) == 0 {
		until := a.openNotice(placeholder)
		a.metrics.RecordNoEligible()
		a.emit(ctx, channelID, events.EventTypeNoEligibleParticipants, events.NoEligibleParticipantsPayload{
			NoticeUntil: until,
		})
		log.Info().Str("channel_id", channelID).Time("notice_until", until).Msg("no eligible participants")
		return nil, ErrNoEligibleParticipants
	}

	d := &dialog{channelID: channelID}
	s, err := a.controller.Open(eligible, duration,
		func(string) { a.handleWin(d) },
		func() { a.handleClose(d) },
	)
	if err != nil {
		a.release(placeholder)
		return nil, fmt.Errorf("failed to open raffle: %w", err)
	}

	started := startedPayload(s)

	a.mu.Lock()
	d.session = s
	d.started = started
	if a.closed {
		delete(a.dialogs, channelID)
		a.mu.Unlock()
		a.controller.CloseImmediately(s)
		return nil, ErrAppClosed
	}
	a.dialogs[channelID] = d
	a.mu.Unlock()

	a.metrics.RecordRaffleStarted(len(eligible))
	a.emit(ctx, channelID, events.EventTypeRaffleStarted, started)

	log.Info().
		Str("channel_id", channelID).
		Str("session_id", s.ID.String()).
		Int("eligible", len(eligible)).
		Int("total", len(all)).
		Msg("raffle started")

	return &started, nil
}

// CloseRaffle tears down the open dialog for channelID. The winner is not announced
// if the spin has not finished yet.
func (a *App) CloseRaffle(ctx context.Context, channelID string) error {
	if channelID == "" {
		return ErrMissingChannel
	}

	a.mu.Lock()
	d, ok := a.dialogs[channelID]
	if !ok || d.session == nil {
		a.mu.Unlock()
		return ErrNoOpenRaffle
	}
	s := d.session
	a.mu.Unlock()

	a.controller.CloseImmediately(s)
	return nil
}

// Snapshot describes the channel's dialog for an overlay that just connected.
func (a *App) Snapshot(channelID string) events.RaffleSnapshotPayload {
	now := a.clock.Now()

	a.mu.Lock()
	defer a.mu.Unlock()

	var snap events.RaffleSnapshotPayload
	if d, ok := a.dialogs[channelID]; ok && d.session != nil {
		started := d.started
		snap.Open = true
		snap.Started = &started
		if d.winner != nil {
			w := *d.winner
			snap.Winner = &w
		}
	}
	if until, ok := a.notices[channelID]; ok && now.Before(until) {
		snap.NoticeUntil = &until
	}
	return snap
}

// SnapshotEvent wraps Snapshot in an event envelope.
func (a *App) SnapshotEvent(ctx context.Context, channelID string) (*events.Event, error) {
	return events.New(channelID, events.EventTypeRaffleSnapshot, a.clock.Now(), a.Snapshot(channelID))
}

// RecentWinners lists the channel's winner history, newest first.
func (a *App) RecentWinners(ctx context.Context, channelID string, limit int) ([]models.Winner, error) {
	if channelID == "" {
		return nil, ErrMissingChannel
	}
	if limit <= 0 {
		limit = a.settings.HistoryLimit
	}
	if a.settings.MaxHistoryLimit > 0 && limit > a.settings.MaxHistoryLimit {
		limit = a.settings.MaxHistoryLimit
	}

	list, err := a.winners.ListRecent(ctx, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list winners: %w", err)
	}
	return list, nil
}

// Settings returns the active settings.
func (a *App) Settings() Settings {
	return a.settings
}

// Close cancels every open raffle, refuses new ones and waits for pending winner writes.
func (a *App) Close() {
	a.mu.Lock()
	a.closed = true
	open := make([]*session.Session, 0, len(a.dialogs))
	for _, d := range a.dialogs {
		if d.session != nil {
			open = append(open, d.session)
		}
	}
	a.mu.Unlock()

	for _, s := range open {
		a.controller.CloseImmediately(s)
	}
	a.recording.Wait()
	log.Info().Int("closed", len(open)).Msg("raffle app shut down")
}

func (a *App) resolveDuration(duration float64) (float64, error) {
	if math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 0, fmt.Errorf("%w: %v", ErrDurationTooShort, duration)
	}
	if duration <= 0 {
		return a.settings.DefaultDuration, nil
	}
	if duration < a.settings.MinDuration {
		return 0, fmt.Errorf("%w: %.2fs < %.2fs", ErrDurationTooShort, duration, a.settings.MinDuration)
	}
	return duration, nil
}

// reserve claims the channel so concurrent starts cannot both read the pool and open.
func (a *App) reserve(channelID string) (*dialog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrAppClosed
	}
	if _, ok := a.dialogs[channelID]; ok {
		return nil, ErrRaffleInProgress
	}
	if until, ok := a.notices[channelID]; ok {
		if a.clock.Now().Before(until) {
			return nil, ErrNoticeActive
		}
		delete(a.notices, channelID)
	}

	d := &dialog{channelID: channelID}
	a.dialogs[channelID] = d
	return d, nil
}

func (a *App) release(d *dialog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dialogs[d.channelID] == d {
		delete(a.dialogs, d.channelID)
	}
}

func (a *App) openNotice(d *dialog) time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dialogs[d.channelID] == d {
		delete(a.dialogs, d.channelID)
	}
	until := a.clock.Now().Add(a.settings.NoticeWindow)
	a.notices[d.channelID] = until
	return until
}

// handleWin runs on the scheduler goroutine once the spin has visually finished.
// The overlay hears about the winner first; the history write happens in the background.
func (a *App) handleWin(d *dialog) {
	now := a.clock.Now()

	a.mu.Lock()
	s := d.session
	started := d.started
	a.mu.Unlock()
	if s == nil {
		log.Error().Str("channel_id", d.channelID).Msg("winner announced for a dialog that never opened")
		return
	}

	winner := s.Winner()

	a.mu.Lock()
	d.winner = &winner
	a.mu.Unlock()

	a.emit(context.Background(), d.channelID, events.EventTypeRaffleWon, events.RaffleWonPayload{
		SessionID: s.ID.String(),
		Winner:    winner,
		WonAt:     now,
	})

	log.Info().
		Str("channel_id", d.channelID).
		Str("session_id", s.ID.String()).
		Str("winner_id", winner.ID).
		Msg("raffle winner announced")

	details, err := json.Marshal(selectionDetailsOf(started))
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal winner details")
	}
	record := models.Winner{
		ChannelID:       d.channelID,
		SessionID:       s.ID,
		ParticipantID:   winner.ID,
		Title:           winner.Title,
		ImageURL:        winner.ImageURL,
		DurationSeconds: s.DurationSeconds,
		Details:         details,
		WonAt:           now,
	}

	a.recording.Add(1)
	go func() {
		defer a.recording.Done()
		a.recordWinner(record)
	}()
}

func (a *App) recordWinner(w models.Winner) {
	ctx, cancel := context.WithTimeout(context.Background(), a.settings.RecordTimeout)
	defer cancel()

	if _, err := a.winners.Record(ctx, w); err != nil {
		log.Error().Err(err).
			Str("channel_id", w.ChannelID).
			Str("winner_id", w.ParticipantID).
			Msg("failed to record winner")
	}
}

// handleClose runs synchronously inside CloseImmediately.
func (a *App) handleClose(d *dialog) {
	a.mu.Lock()
	if a.dialogs[d.channelID] == d {
		delete(a.dialogs, d.channelID)
	}
	s := d.session
	a.mu.Unlock()

	reason := events.CloseReasonCancelled
	sessionID := ""
	if s != nil {
		sessionID = s.ID.String()
		if s.Outcome() == scheduler.StateFired {
			reason = events.CloseReasonCompleted
		}
	}

	a.metrics.RecordRaffleClosed(reason)
	a.emit(context.Background(), d.channelID, events.EventTypeRaffleClosed, events.RaffleClosedPayload{
		SessionID: sessionID,
		Reason:    reason,
		ClosedAt:  a.clock.Now(),
	})

	log.Info().Str("channel_id", d.channelID).Str("session_id", sessionID).Str("reason", reason).Msg("raffle closed")
}

func (a *App) emit(ctx context.Context, channelID string, eventType events.EventType, payload interface{}) {
	ev, err := events.New(channelID, eventType, a.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}

	a.mu.Lock()
	sink := a.sink
	a.mu.Unlock()

	if err := sink.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).
			Str("channel_id", channelID).
			Str("event_type", string(eventType)).
			Str("event_id", ev.ID).
			Msg("failed to publish event")
	}
}

func startedPayload(s *session.Session) events.RaffleStartedPayload {
	r := s.Result
	return events.RaffleStartedPayload{
		SessionID:             s.ID.String(),
		DisplaySequence:       append([]models.Participant(nil), r.DisplaySequence[:]...),
		WinnerIndex:           r.WinnerIndex,
		RotationTargetDegrees: r.RotationTargetDegrees,
		DurationSec:           s.DurationSeconds,
		SpinMillis:            selector.SpinDuration(s.DurationSeconds).Milliseconds(),
		RevealDelayMillis:     selector.RevealDelay(s.DurationSeconds).Milliseconds(),
		WheelLayout:           selector.WheelLayout(),
		StartedAt:             s.OpenedAt,
		AnnounceAt:            s.AnnounceAt(),
	}
}

type selectionDetails struct {
	DisplaySequence       []string `json:"display_sequence"`
	WinnerIndex           int      `json:"winner_index"`
	RotationTargetDegrees int      `json:"rotation_target_degrees"`
}

func selectionDetailsOf(p events.RaffleStartedPayload) selectionDetails {
	ids := make([]string, len(p.DisplaySequence))
	for i, item := range p.DisplaySequence {
		ids[i] = item.ID
	}
	return selectionDetails{
		DisplaySequence:       ids,
		WinnerIndex:           p.WinnerIndex,
		RotationTargetDegrees: p.RotationTargetDegrees,
	}
}
