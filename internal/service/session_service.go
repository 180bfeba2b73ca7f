// internal/service/session_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kiosk-backend/internal/checklist"
	"kiosk-backend/internal/i18n"
	"kiosk-backend/internal/models"

	"github.com/google/uuid"
)

var (
	ErrInvalidStatus       = errors.New("invalid session status")
	ErrInvalidResponseType = errors.New("unknown response type")
)

const maxSaveAttempts = 3

type SessionService struct {
	Store    Store
	Template []models.ChecklistItem
	Now      func() time.Time
}

func NewSessionService(store Store, template []models.ChecklistItem) *SessionService {
	return &SessionService{
		Store:    store,
		Template: template,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewSession carries the caller-provided fields of a session. Everything else
// is defaulted.
type NewSession struct {
	CitizenLanguage string   `json:"citizen_language"`
	Transcript      string   `json:"transcript"`
	Summary         string   `json:"summary"`
	AudioURLs       []string `json:"audio_urls"`
}

// SessionPatch updates officer-editable fields. Nil fields are left alone.
// A non-nil Version must match the stored version.
type SessionPatch struct {
	Summary *string               `json:"summary"`
	Notes   *string               `json:"notes"`
	Status  *models.SessionStatus `json:"status"`
	Version *int                  `json:"version"`
}

func (s *SessionService) List(ctx context.Context, status models.SessionStatus) ([]models.Session, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.Store.List(ctx, Filter{Status: status})
}

// Create assigns an id and timestamp. The session starts active, in English
// unless a language is given, with a fresh copy of the checklist template.
func (s *SessionService) Create(ctx context.Context, in NewSession) (models.Session, error) {
	language := i18n.DefaultLanguage
	if strings.TrimSpace(in.CitizenLanguage) != "" {
		l, ok := i18n.Resolve(in.CitizenLanguage)
		if !ok {
			return models.Session{}, fmt.Errorf("%w: %q", i18n.ErrUnsupportedLanguage, in.CitizenLanguage)
		}
		language = l.Code
	}

	now := s.Now()
	session := models.Session{
		ID:              uuid.New().String(),
		Timestamp:       now,
		CitizenLanguage: language,
		Status:          models.StatusActive,
		Transcript:      in.Transcript,
		Summary:         in.Summary,
		Checklist:       append([]models.ChecklistItem(nil), s.Template...),
		Responses:       []models.SentResponse{},
		AudioURLs:       append([]string(nil), in.AudioURLs...),
		Version:         1,
		UpdatedAt:       now,
	}

	if err := s.Store.Insert(ctx, session); err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (models.Session, error) {
	return s.Store.Get(ctx, id)
}

func (s *SessionService) Update(ctx context.Context, id string, patch SessionPatch) (models.Session, error) {
	if patch.Status != nil && (!patch.Status.Valid() || *patch.Status == models.StatusArchived) {
		return models.Session{}, fmt.Errorf("%w: cannot set status %q", ErrInvalidTransition, *patch.Status)
	}

	return s.update(ctx, id, patch.Version, func(session *models.Session) error {
		if patch.Summary != nil {
			session.Summary = *patch.Summary
		}
		if patch.Notes != nil {
			session.Notes = *patch.Notes
		}
		if patch.Status != nil {
			if *patch.Status == models.StatusCompleted && !checklist.Evaluate(session.Checklist).ReadyToComplete {
				return ErrChecklistIncomplete
			}
			session.Status = *patch.Status
		}
		return nil
	})
}

// ToggleChecklistItem flips one item. A completed session keeps every
// required item done.
func (s *SessionService) ToggleChecklistItem(ctx context.Context, id, itemID string) (models.Session, error) {
	return s.update(ctx, id, nil, func(session *models.Session) error {
		items, err := checklist.Toggle(session.Checklist, itemID)
		if err != nil {
			return err
		}
		if session.Status == models.StatusCompleted && !checklist.Evaluate(items).ReadyToComplete {
			return fmt.Errorf("%w: session is completed", ErrChecklistIncomplete)
		}
		session.Checklist = items
		return nil
	})
}

// AppendResponse records a response sent to the citizen and returns the
// stored response alongside the updated session.
func (s *SessionService) AppendResponse(ctx context.Context, id string, response models.SentResponse) (models.SentResponse, models.Session, error) {
	if response.Type == "" {
		response.Type = DefaultResponseType
	}
	if !IsResponseType(response.Type) {
		return models.SentResponse{}, models.Session{}, fmt.Errorf("%w: %q", ErrInvalidResponseType, response.Type)
	}
	response.ID = uuid.New().String()
	response.SentAt = s.Now()

	session, err := s.update(ctx, id, nil, func(session *models.Session) error {
		session.Responses = append(session.Responses, response)
		return nil
	})
	if err != nil {
		return models.SentResponse{}, models.Session{}, err
	}
	return response, session, nil
}

// RecordTurn appends a citizen utterance to the session transcript.
func (s *SessionService) RecordTurn(ctx context.Context, id, transcript, audioURL string) (models.Session, error) {
	return s.update(ctx, id, nil, func(session *models.Session) error {
		if transcript != "" {
			if session.Transcript == "" {
				session.Transcript = transcript
			} else {
				session.Transcript += "\n" + transcript
			}
		}
		if audioURL != "" {
			session.AudioURLs = append(session.AudioURLs, audioURL)
		}
		return nil
	})
}

// Archive hides a session from the default listing. Sessions are never deleted.
func (s *SessionService) Archive(ctx context.Context, id string) (models.Session, error) {
	return s.update(ctx, id, nil, func(session *models.Session) error {
		session.Status = models.StatusArchived
		return nil
	})
}

func (s *SessionService) Ping(ctx context.Context) error {
	return s.Store.Ping(ctx)
}

// update applies mutate to the latest stored session and saves it, retrying
// when a concurrent writer wins. With expected set, a version mismatch is
// returned to the caller instead.
func (s *SessionService) update(ctx context.Context, id string, expected *int, mutate func(*models.Session) error) (models.Session, error) {
	for attempt := 1; ; attempt++ {
		session, err := s.Store.Get(ctx, id)
		if err != nil {
			return models.Session{}, err
		}
		if session.Status == models.StatusArchived {
			return models.Session{}, ErrSessionArchived
		}
		if expected != nil && *expected != session.Version {
			return models.Session{}, ErrVersionConflict
		}

		if err := mutate(&session); err != nil {
			return models.Session{}, err
		}
		session.UpdatedAt = s.Now()

		saved, err := s.Store.Save(ctx, session)
		if errors.Is(err, ErrVersionConflict) && expected == nil && attempt < maxSaveAttempts {
			continue
		}
		return saved, err
	}
}
