package service

import (
	"context"
	"errors"
	"sort"

	"kiosk-backend/internal/models"
)

// Sentinel errors: callers use errors.Is() instead of string matching
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrVersionConflict     = errors.New("session was modified by another request")
	ErrChecklistIncomplete = errors.New("required checklist items are not completed")
	ErrInvalidTransition   = errors.New("invalid session status transition")
	ErrSessionArchived     = errors.New("session is archived")
)

// Filter narrows List. A zero Status lists every session that is not archived.
type Filter struct {
	Status models.SessionStatus
}

func (f Filter) matches(s models.Session) bool {
	if f.Status == "" {
		return s.Status != models.StatusArchived
	}
	return s.Status == f.Status
}

// Store persists sessions. Save is an optimistic update: it fails with
// ErrVersionConflict unless s.Version matches the stored version, and returns
// the session with its version bumped.
type Store interface {
	List(ctx context.Context, filter Filter) ([]models.Session, error)
	Insert(ctx context.Context, s models.Session) error
	Get(ctx context.Context, id string) (models.Session, error)
	Save(ctx context.Context, s models.Session) (models.Session, error)
	Ping(ctx context.Context) error
	Close() error
}

func sortNewestFirst(sessions []models.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Timestamp.After(sessions[j].Timestamp)
	})
}
