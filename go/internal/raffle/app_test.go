package raffle_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/wheelraffle/go/internal/metrics"
	"github.com/mcdev12/wheelraffle/go/internal/models"
	"github.com/mcdev12/wheelraffle/go/internal/raffle"
	"github.com/mcdev12/wheelraffle/go/internal/raffle/events"
	"github.com/mcdev12/wheelraffle/go/internal/winners"
)

type fakeSource struct {
	mu   sync.Mutex
	rows []models.Participant
	err  error
}

func (f *fakeSource) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Participant(nil), f.rows...), nil
}

func (f *fakeSource) set(rows ...models.Participant) {
	f.mu.Lock()
	f.rows = rows
	f.mu.Unlock()
}

type recordingSink struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recordingSink) Publish(ctx context.Context, ev *events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recordingSink) ofType(t events.EventType) []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recordingSink) waitFor(t *testing.T, typ events.EventType, n int) []*events.Event {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.ofType(typ)) >= n }, 2*time.Second, 5*time.Millisecond,
		"expected %d %s events", n, typ)
	return r.ofType(typ)
}

type fixture struct {
	app     *raffle.App
	clock   *clockwork.FakeClock
	source  *fakeSource
	sink    *recordingSink
	winners *winners.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:   clockwork.NewFakeClock(),
		source:  &fakeSource{},
		sink:    &recordingSink{},
		winners: winners.NewMemoryStore(),
	}
	f.source.set(
		models.Participant{ID: "a", Title: "Alice", IsEligible: true},
		models.Participant{ID: "b", Title: "Bob", IsEligible: false},
		models.Participant{ID: "c", Title: "Carol", IsEligible: true},
	)
	f.app = raffle.NewApp(f.source, f.winners, f.sink, raffle.WithClock(f.clock))
	t.Cleanup(f.app.Close)
	return f
}

func closedReason(t *testing.T, ev *events.Event) string {
	t.Helper()
	var p events.RaffleClosedPayload
	require.NoError(t, json.Unmarshal(ev.Data, &p))
	return p.Reason
}

func TestStartRaffle_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.app.StartRaffle(ctx, "chan-1", 7)
	require.NoError(t, err)

	require.Len(t, started.DisplaySequence, 10)
	for _, p := range started.DisplaySequence {
		assert.Contains(t, []string{"a", "c"}, p.ID, "ineligible participant on the wheel")
	}
	assert.Equal(t, int64(7000), started.SpinMillis)
	assert.Equal(t, int64(7100), started.RevealDelayMillis)
	assert.Equal(t, f.clock.Now().Add(8*time.Second), started.AnnounceAt)
	assert.Len(t, started.WheelLayout, 10)

	evs := f.sink.ofType(events.EventTypeRaffleStarted)
	require.Len(t, evs, 1)
	assert.Equal(t, "chan-1", evs[0].ChannelID)

	snap := f.app.Snapshot("chan-1")
	assert.True(t, snap.Open)
	assert.Nil(t, snap.Winner)

	f.clock.Advance(8 * time.Second)
	won := f.sink.waitFor(t, events.EventTypeRaffleWon, 1)

	var wp events.RaffleWonPayload
	require.NoError(t, json.Unmarshal(won[0].Data, &wp))
	expected := started.DisplaySequence[started.WinnerIndex]
	assert.Equal(t, expected.ID, wp.Winner.ID)
	assert.Equal(t, started.SessionID, wp.SessionID)

	var history []models.Winner
	require.Eventually(t, func() bool {
		history, err = f.app.RecentWinners(ctx, "chan-1", 0)
		return err == nil && len(history) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, expected.ID, history[0].ParticipantID)
	assert.Equal(t, float64(7), history[0].DurationSeconds)
	assert.Contains(t, string(history[0].Details), `"winner_index"`)

	// the dialog stays open showing the winner until the host closes it
	snap = f.app.Snapshot("chan-1")
	assert.True(t, snap.Open)
	require.NotNil(t, snap.Winner)
	assert.Equal(t, expected.ID, snap.Winner.ID)

	require.NoError(t, f.app.CloseRaffle(ctx, "chan-1"))
	closed := f.sink.ofType(events.EventTypeRaffleClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, events.CloseReasonCompleted, closedReason(t, closed[0]))
	assert.False(t, f.app.Snapshot("chan-1").Open)
}

func TestCloseRaffle_BeforeAnnouncementSuppressesWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.app.StartRaffle(ctx, "chan-1", 7)
	require.NoError(t, err)

	f.clock.Advance(7500 * time.Millisecond)
	require.NoError(t, f.app.CloseRaffle(ctx, "chan-1"))

	closed := f.sink.ofType(events.EventTypeRaffleClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, events.CloseReasonCancelled, closedReason(t, closed[0]))

	f.clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.sink.ofType(events.EventTypeRaffleWon))

	history, err := f.app.RecentWinners(ctx, "chan-1", 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.ErrorIs(t, f.app.CloseRaffle(ctx, "chan-1"), raffle.ErrNoOpenRaffle)
}

func TestStartRaffle_OnePerChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.app.StartRaffle(ctx, "chan-1", 3)
	require.NoError(t, err)

	_, err = f.app.StartRaffle(ctx, "chan-1", 3)
	assert.ErrorIs(t, err, raffle.ErrRaffleInProgress)

	_, err = f.app.StartRaffle(ctx, "chan-2", 3)
	assert.NoError(t, err)

	require.NoError(t, f.app.CloseRaffle(ctx, "chan-1"))
	_, err = f.app.StartRaffle(ctx, "chan-1", 3)
	assert.NoError(t, err)
}

func TestStartRaffle_ConcurrentStartsOpenOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, busy int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.app.StartRaffle(ctx, "chan-1", 3)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, raffle.ErrRaffleInProgress):
				busy++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 19, busy)
	assert.Len(t, f.sink.ofType(events.EventTypeRaffleStarted), 1)
}

func TestStartRaffle_NoEligibleOpensNotice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.set(models.Participant{ID: "b", Title: "Bob", IsEligible: false})

	_, err := f.app.StartRaffle(ctx, "chan-1", 7)
	assert.ErrorIs(t, err, raffle.ErrNoEligibleParticipants)

	notices := f.sink.ofType(events.EventTypeNoEligibleParticipants)
	require.Len(t, notices, 1)
	var np events.NoEligibleParticipantsPayload
	require.NoError(t, json.Unmarshal(notices[0].Data, &np))
	assert.True(t, f.clock.Now().Add(3*time.Second).Equal(np.NoticeUntil))

	snap := f.app.Snapshot("chan-1")
	assert.False(t, snap.Open)
	require.NotNil(t, snap.NoticeUntil)

	_, err = f.app.StartRaffle(ctx, "chan-1", 7)
	assert.ErrorIs(t, err, raffle.ErrNoticeActive)

	// other channels are unaffected
	_, err = f.app.StartRaffle(ctx, "chan-2", 7)
	assert.ErrorIs(t, err, raffle.ErrNoEligibleParticipants)

	f.clock.Advance(3 * time.Second)
	assert.Nil(t, f.app.Snapshot("chan-1").NoticeUntil)

	f.source.set(models.Participant{ID: "b", Title: "Bob", IsEligible: true})
	_, err = f.app.StartRaffle(ctx, "chan-1", 7)
	assert.NoError(t, err)
	assert.Empty(t, f.sink.ofType(events.EventTypeRaffleClosed))
}

func TestStartRaffle_Durations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.app.StartRaffle(ctx, "default", 0)
	require.NoError(t, err)
	assert.Equal(t, float64(7), started.DurationSec)

	started, err = f.app.StartRaffle(ctx, "minimum", 1)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(2*time.Second), started.AnnounceAt)

	_, err = f.app.StartRaffle(ctx, "short", 0.5)
	assert.ErrorIs(t, err, raffle.ErrDurationTooShort)

	_, err = f.app.StartRaffle(ctx, "nan", math.NaN())
	assert.ErrorIs(t, err, raffle.ErrDurationTooShort)

	// a rejected duration does not claim the channel
	_, err = f.app.StartRaffle(ctx, "short", 2)
	assert.NoError(t, err)
}

func TestStartRaffle_SourceFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := errors.New("db down")
	f.source.err = boom

	_, err := f.app.StartRaffle(ctx, "chan-1", 7)
	assert.ErrorIs(t, err, raffle.ErrParticipantsUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.sink.ofType(events.EventTypeNoEligibleParticipants))
	assert.False(t, f.app.Snapshot("chan-1").Open)

	f.source.mu.Lock()
	f.source.err = nil
	f.source.mu.Unlock()
	_, err = f.app.StartRaffle(ctx, "chan-1", 7)
	assert.NoError(t, err)
}

func TestMissingChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.app.StartRaffle(ctx, "", 7)
	assert.ErrorIs(t, err, raffle.ErrMissingChannel)
	assert.ErrorIs(t, f.app.CloseRaffle(ctx, ""), raffle.ErrMissingChannel)
	_, err = f.app.RecentWinners(ctx, "", 5)
	assert.ErrorIs(t, err, raffle.ErrMissingChannel)
}

func TestClose_CancelsAllAndRefusesNew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.app.StartRaffle(ctx, "chan-1", 7)
	require.NoError(t, err)
	_, err = f.app.StartRaffle(ctx, "chan-2", 7)
	require.NoError(t, err)

	f.app.Close()

	closed := f.sink.ofType(events.EventTypeRaffleClosed)
	require.Len(t, closed, 2)
	for _, ev := range closed {
		assert.Equal(t, events.CloseReasonCancelled, closedReason(t, ev))
	}

	_, err = f.app.StartRaffle(ctx, "chan-3", 7)
	assert.ErrorIs(t, err, raffle.ErrAppClosed)

	f.clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.sink.ofType(events.EventTypeRaffleWon))
}

func TestSnapshotEvent(t *testing.T) {
	f := newFixture(t)

	ev, err := f.app.SnapshotEvent(context.Background(), "chan-1")
	require.NoError(t, err)
	assert.Equal(t, events.EventTypeRaffleSnapshot, ev.Type)

	payload, err := events.ParsePayload(ev)
	require.NoError(t, err)
	snap, ok := payload.(events.RaffleSnapshotPayload)
	require.True(t, ok)
	assert.False(t, snap.Open)
}

func TestRecentWinners_LimitIsCapped(t *testing.T) {
	store := &limitSpy{}
	app := raffle.NewApp(&fakeSource{}, store, nil)

	_, err := app.RecentWinners(context.Background(), "chan-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 10, store.limit)

	_, err = app.RecentWinners(context.Background(), "chan-1", 1000)
	require.NoError(t, err)
	assert.Equal(t, 100, store.limit)
}

type limitSpy struct{ limit int }

func (s *limitSpy) Record(ctx context.Context, w models.Winner) (*models.Winner, error) {
	return &w, nil
}

func (s *limitSpy) ListRecent(ctx context.Context, channelID string, limit int) ([]models.Winner, error) {
	s.limit = limit
	return nil, nil
}

func TestStartRaffle_RecordsMetrics(t *testing.T) {
	collector := metrics.NewVMCollector()
	source := &fakeSource{}
	app := raffle.NewApp(source, winners.NewMemoryStore(), nil,
		raffle.WithClock(clockwork.NewFakeClock()), raffle.WithMetrics(collector))
	t.Cleanup(app.Close)

	_, err := app.StartRaffle(context.Background(), "chan-1", 7)
	assert.ErrorIs(t, err, raffle.ErrNoEligibleParticipants)

	var buf bytes.Buffer
	collector.WritePrometheus(&buf)
	assert.Contains(t, buf.String(), "raffle_no_eligible_total 1")
}

// blockingStore holds every Record call until release is closed.
type blockingStore struct {
	*winners.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Record(ctx context.Context, w models.Winner) (*models.Winner, error) {
	s.entered <- struct{}{}
	<-s.release
	return s.MemoryStore.Record(ctx, w)
}

func eventTypes(r *recordingSink) []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func TestRaffleWon_AnnouncedBeforeSlowHistoryWrite(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := &fakeSource{}
	source.set(models.Participant{ID: "a", Title: "Alice", IsEligible: true})
	store := &blockingStore{
		MemoryStore: winners.NewMemoryStore(),
		entered:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
	sink := &recordingSink{}
	app := raffle.NewApp(source, store, sink, raffle.WithClock(clock))
	t.Cleanup(app.Close)
	var releaseOnce sync.Once
	t.Cleanup(func() { releaseOnce.Do(func() { close(store.release) }) })

	ctx := context.Background()
	_, err := app.StartRaffle(ctx, "chan-1", 1)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	select {
	case <-store.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("winner was never recorded")
	}

	// the write is still blocked but the overlay already has the winner
	require.Len(t, sink.ofType(events.EventTypeRaffleWon), 1)

	require.NoError(t, app.CloseRaffle(ctx, "chan-1"))
	assert.Equal(t, []events.EventType{
		events.EventTypeRaffleStarted,
		events.EventTypeRaffleWon,
		events.EventTypeRaffleClosed,
	}, eventTypes(sink))
	assert.Equal(t, events.CloseReasonCompleted, closedReason(t, sink.ofType(events.EventTypeRaffleClosed)[0]))

	releaseOnce.Do(func() { close(store.release) })
	require.Eventually(t, func() bool {
		history, err := app.RecentWinners(ctx, "chan-1", 0)
		return err == nil && len(history) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

// blockingSink stalls the RaffleWon publish so a close can race the announcement.
type blockingSink struct {
	recordingSink
	wonEntered chan struct{}
	release    chan struct{}
}

func (s *blockingSink) Publish(ctx context.Context, ev *events.Event) error {
	if ev.Type == events.EventTypeRaffleWon {
		s.wonEntered <- struct{}{}
		<-s.release
	}
	return s.recordingSink.Publish(ctx, ev)
}

func TestCloseRaffle_DuringAnnouncementKeepsEventOrder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := &fakeSource{}
	source.set(models.Participant{ID: "a", Title: "Alice", IsEligible: true})
	sink := &blockingSink{
		wonEntered: make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	app := raffle.NewApp(source, winners.NewMemoryStore(), sink, raffle.WithClock(clock))
	t.Cleanup(app.Close)
	var releaseOnce sync.Once
	release := func() { releaseOnce.Do(func() { close(sink.release) }) }
	t.Cleanup(release)

	ctx := context.Background()
	_, err := app.StartRaffle(ctx, "chan-1", 1)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	select {
	case <-sink.wonEntered:
	case <-time.After(2 * time.Second):
		t.Fatal("winner was never announced")
	}

	closed := make(chan error, 1)
	go func() { closed <- app.CloseRaffle(ctx, "chan-1") }()

	select {
	case <-closed:
		t.Fatal("close finished while the announcement was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	require.NoError(t, <-closed)

	assert.Equal(t, []events.EventType{
		events.EventTypeRaffleStarted,
		events.EventTypeRaffleWon,
		events.EventTypeRaffleClosed,
	}, eventTypes(&sink.recordingSink))
	assert.Equal(t, events.CloseReasonCompleted, closedReason(t, sink.ofType(events.EventTypeRaffleClosed)[0]))
}
