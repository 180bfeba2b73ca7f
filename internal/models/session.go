package models

import (
	"time"
)

type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusArchived  SessionStatus = "archived"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusArchived:
		return true
	default:
		return false
	}
}

// Session is one citizen conversation as seen by the officer review desk.
// Sessions are archived, never deleted.
type Session struct {
	ID              string        `json:"id"`
	Timestamp       time.Time     `json:"timestamp"`
	CitizenLanguage string        `json:"citizen_language"`
	Status          SessionStatus `json:"status"`
	Transcript      string        `json:"transcript"`
	Summary         string        `json:"summary,omitempty"`

	// Officer-side state, persisted through the registry.
	Notes     string          `json:"notes,omitempty"`
	Checklist []ChecklistItem `json:"checklist"`
	Responses []SentResponse  `json:"responses"`
	AudioURLs []string        `json:"audio_urls,omitempty"`

	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy that shares no slices with s.
func (s Session) Clone() Session {
	out := s
	out.Checklist = append([]ChecklistItem(nil), s.Checklist...)
	out.Responses = make([]SentResponse, len(s.Responses))
	copy(out.Responses, s.Responses)
	out.AudioURLs = append([]string(nil), s.AudioURLs...)
	return out
}

type ChecklistItem struct {
	ID        string `json:"id" toml:"id"`
	Category  string `json:"category" toml:"category"`
	Text      string `json:"text" toml:"text"`
	Completed bool   `json:"completed" toml:"completed"`
	Required  bool   `json:"required" toml:"required"`
}

type SentResponse struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Text           string    `json:"text"`
	TranslatedText string    `json:"translated_text,omitempty"`
	OfficerID      string    `json:"officer_id,omitempty"`
	SentAt         time.Time `json:"sent_at"`
}
