package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kiosk-backend/internal/models"
)

// MemoryStore keeps sessions in process memory. Every read returns a copy.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(seed ...models.Session) *MemoryStore {
	m := &MemoryStore{sessions: make(map[string]models.Session, len(seed))}
	for _, s := range seed {
		m.sessions[s.ID] = s.Clone()
	}
	return m
}

func (m *MemoryStore) List(_ context.Context, filter Filter) ([]models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if filter.matches(s) {
			out = append(out, s.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) Insert(_ context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("insert session %s: already exists", s.ID)
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s models.Session) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.sessions[s.ID]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	if current.Version != s.Version {
		return models.Session{}, ErrVersionConflict
	}

	s.Version++
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	m.sessions[s.ID] = s.Clone()
	return s.Clone(), nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// DemoSessions returns the two sessions the kiosk demo starts with.
func DemoSessions(now time.Time, template []models.ChecklistItem) []models.Session {
	hindi := models.Session{
		ID:              "1",
		Timestamp:       now.Add(-1 * time.Hour),
		CitizenLanguage: "hi",
		Status:          models.StatusActive,
		Transcript:      "मुझे अपना शिकायत दर्ज करना है।",
		Summary:         "Citizen wants to file a complaint",
		Checklist:       append([]models.ChecklistItem(nil), template...),
		Version:         1,
		UpdatedAt:       now.Add(-1 * time.Hour),
	}

	tamil := models.Session{
		ID:              "2",
		Timestamp:       now.Add(-2 * time.Hour),
		CitizenLanguage: "ta",
		Status:          models.StatusCompleted,
		Transcript:      "எனக்கு உதவி தேவை",
		Summary:         "General assistance request",
		Checklist:       completedChecklist(template),
		Version:         1,
		UpdatedAt:       now.Add(-2 * time.Hour),
	}

	return []models.Session{hindi, tamil}
}

func completedChecklist(template []models.ChecklistItem) []models.ChecklistItem {
	out := append([]models.ChecklistItem(nil), template...)
	for i := range out {
		if out[i].Required {
			out[i].Completed = true
		}
	}
	return out
}
