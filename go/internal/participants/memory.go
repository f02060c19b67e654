package participants

import (
	"context"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/wheelraffle/go/internal/models"
)

// MemoryStore keeps participants in process. It backs dev runs and tests.
type MemoryStore struct {
	clock clockwork.Clock

	mu   sync.RWMutex
	rows map[string]models.Participant
}

// NewMemoryStore creates an empty store. A nil clock means the real clock.
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		clock: clock,
		rows:  make(map[string]models.Participant),
	}
}

// ListParticipants returns a copy of every participant ordered like the SQL query (title, id).
func (m *MemoryStore) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]models.Participant, 0, len(m.rows))
	for _, p := range m.rows {
		out = append(out, p)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	return &p, nil
}

func (m *MemoryStore) UpsertParticipant(ctx context.Context, req UpsertParticipantRequest) (*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.put(req)
	return &p, nil
}

func (m *MemoryStore) SetEligible(ctx context.Context, id string, eligible bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return ErrParticipantNotFound
	}
	p.IsEligible = eligible
	p.UpdatedAt = m.clock.Now()
	m.rows[id] = p
	return nil
}

func (m *MemoryStore) SetAllEligible(ctx context.Context, eligible bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	for id, p := range m.rows {
		p.IsEligible = eligible
		p.UpdatedAt = now
		m.rows[id] = p
	}
	return int64(len(m.rows)), nil
}

func (m *MemoryStore) DeleteParticipant(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return ErrParticipantNotFound
	}
	delete(m.rows, id)
	return nil
}

// ImportParticipants upserts all requests under one lock, so readers see all or none.
func (m *MemoryStore) ImportParticipants(ctx context.Context, reqs []UpsertParticipantRequest) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range reqs {
		m.put(req)
	}
	return len(reqs), nil
}

// put must be called with mu held.
func (m *MemoryStore) put(req UpsertParticipantRequest) models.Participant {
	p := models.Participant{
		ID:         req.ID,
		Title:      req.Title,
		ImageURL:   req.ImageURL,
		IsEligible: req.IsEligible,
		UpdatedAt:  m.clock.Now(),
	}
	m.rows[p.ID] = p
	return p
}
