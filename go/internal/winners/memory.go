package winners

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mcdev12/wheelraffle/go/internal/models"
)

// MemoryStore keeps winner history per channel in process.
type MemoryStore struct {
	mu        sync.RWMutex
	byChannel map[string][]models.Winner
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byChannel: make(map[string][]models.Winner)}
}

func (m *MemoryStore) Record(ctx context.Context, w models.Winner) (*models.Winner, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	w.Details = append([]byte(nil), w.Details...)

	m.mu.Lock()
	m.byChannel[w.ChannelID] = append(m.byChannel[w.ChannelID], w)
	m.mu.Unlock()
	return &w, nil
}

func (m *MemoryStore) ListRecent(ctx context.Context, channelID string, limit int) ([]models.Winner, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	m.mu.RLock()
	out := append([]models.Winner(nil), m.byChannel[channelID]...)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].WonAt.After(out[j].WonAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
