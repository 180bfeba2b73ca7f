// Package orchestrator runs one citizen interaction through the backend:
// transcribe, translate to the pivot language, query the assistant,
// translate back and optionally synthesize speech.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"kiosk-backend/internal/backend"
	"kiosk-backend/internal/i18n"
	"kiosk-backend/internal/models"
)

const DefaultMinConfidence = 0.5

type Config struct {
	PivotLanguage string
	// MinConfidence rejects transcriptions scored below it.
	MinConfidence float64
}

type Orchestrator struct {
	backend backend.Backend
	cfg     Config
}

// New accepts the pivot as a code or a language name. An empty or unknown
// pivot falls back to i18n.PivotLanguage.
func New(b backend.Backend, cfg Config) *Orchestrator {
	pivot, ok := i18n.Resolve(cfg.PivotLanguage)
	switch {
	case ok:
		cfg.PivotLanguage = pivot.Code
	case strings.TrimSpace(cfg.PivotLanguage) == "":
		cfg.PivotLanguage = i18n.PivotLanguage
	default:
		log.Printf("orchestrator: unsupported pivot language %q, using %q", cfg.PivotLanguage, i18n.PivotLanguage)
		cfg.PivotLanguage = i18n.PivotLanguage
	}
	return &Orchestrator{backend: b, cfg: cfg}
}

// PivotLanguage is the language the assistant is queried in.
func (o *Orchestrator) PivotLanguage() string {
	return o.cfg.PivotLanguage
}

type TurnRequest struct {
	Audio []byte
	// Language is the citizen's language code. Empty or "auto" uses the
	// language reported by transcription.
	Language string
	Role     models.Role
	Speak    bool
}

// Turn holds every artifact produced by one interaction.
type Turn struct {
	Language   string          `json:"language"`
	Transcript string          `json:"transcript"`
	Confidence float64         `json:"confidence"`
	Translated string          `json:"translated"`
	Answer     string          `json:"answer"`
	Sources    []string        `json:"sources,omitempty"`
	Response   string          `json:"response"`
	Speech     *backend.Speech `json:"speech,omitempty"`
}

// Run executes the full pipeline for a recording. Any failure before the
// speech step halts the turn.
func (o *Orchestrator) Run(ctx context.Context, req TurnRequest) (*Turn, error) {
	language, auto, err := o.language(req.Language)
	if err != nil {
		return nil, err
	}

	res, err := o.backend.SpeechToText(ctx, req.Audio, language)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Transcript) == "" {
		return nil, fmt.Errorf("%w: no speech detected", backend.ErrTranscriptionFailed)
	}
	if res.Confidence < o.cfg.MinConfidence {
		return nil, fmt.Errorf("%w: confidence %.2f below %.2f", backend.ErrTranscriptionFailed, res.Confidence, o.cfg.MinConfidence)
	}

	if auto {
		language = o.detected(res.Language, res.Transcript)
	}

	turn := &Turn{
		Language:   language,
		Transcript: res.Transcript,
		Confidence: res.Confidence,
	}
	if err := o.answer(ctx, turn, req.Role, req.Speak); err != nil {
		return nil, err
	}
	return turn, nil
}

// Ask runs the pipeline for typed text, skipping transcription.
func (o *Orchestrator) Ask(ctx context.Context, text, language string, role models.Role, speak bool) (*Turn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %w: empty question", backend.ErrQueryFailed, backend.ErrInvalidInput)
	}

	language, auto, err := o.language(language)
	if err != nil {
		return nil, err
	}
	if auto {
		language = i18n.DetectLanguage(text)
	}

	turn := &Turn{Language: language, Transcript: text, Confidence: 1}
	if err := o.answer(ctx, turn, role, speak); err != nil {
		return nil, err
	}
	return turn, nil
}

func (o *Orchestrator) answer(ctx context.Context, turn *Turn, role models.Role, speak bool) error {
	translated, err := o.toPivot(ctx, turn.Transcript, turn.Language)
	if err != nil {
		return err
	}
	turn.Translated = translated

	answer, err := o.backend.QueryAssistant(ctx, translated, role)
	if err != nil {
		return err
	}
	turn.Answer = answer.Answer
	turn.Sources = answer.Sources

	response, err := o.Localize(ctx, answer.Answer, turn.Language)
	if err != nil {
		return err
	}
	turn.Response = response

	if speak {
		speech, err := o.backend.TextToSpeech(ctx, response, turn.Language)
		if err != nil {
			log.Printf("orchestrator: speech synthesis skipped: %v", err)
			return nil
		}
		turn.Speech = &speech
	}
	return nil
}

// Localize translates pivot-language text into language.
func (o *Orchestrator) Localize(ctx context.Context, text, language string) (string, error) {
	if language == "" || language == o.cfg.PivotLanguage {
		return text, nil
	}
	res, err := o.backend.Translate(ctx, text, language)
	if err != nil {
		return "", err
	}
	return res.Translated, nil
}

// Suggest asks the officer assistant for a reply to a citizen transcript.
func (o *Orchestrator) Suggest(ctx context.Context, transcript, language string) (backend.Answer, error) {
	if strings.TrimSpace(transcript) == "" {
		return backend.Answer{}, fmt.Errorf("%w: %w: session has no transcript", backend.ErrQueryFailed, backend.ErrInvalidInput)
	}
	if language == "" {
		language = i18n.DetectLanguage(transcript)
	}

	translated, err := o.toPivot(ctx, transcript, language)
	if err != nil {
		return backend.Answer{}, err
	}
	return o.backend.QueryAssistant(ctx, translated, models.RoleOfficer)
}

func (o *Orchestrator) Speak(ctx context.Context, text, language string) (backend.Speech, error) {
	if _, ok := i18n.Lookup(language); !ok {
		return backend.Speech{}, fmt.Errorf("%w: %q", i18n.ErrUnsupportedLanguage, language)
	}
	return o.backend.TextToSpeech(ctx, text, language)
}

func (o *Orchestrator) toPivot(ctx context.Context, text, language string) (string, error) {
	if language == o.cfg.PivotLanguage {
		return text, nil
	}
	res, err := o.backend.Translate(ctx, text, o.cfg.PivotLanguage)
	if err != nil {
		return "", err
	}
	return res.Translated, nil
}

func (o *Orchestrator) language(value string) (code string, auto bool, err error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "auto") {
		return "", true, nil
	}
	l, ok := i18n.Resolve(value)
	if !ok {
		return "", false, fmt.Errorf("%w: %q", i18n.ErrUnsupportedLanguage, value)
	}
	return l.Code, false, nil
}

func (o *Orchestrator) detected(reported, transcript string) string {
	if l, ok := i18n.Lookup(reported); ok {
		return l.Code
	}
	return i18n.DetectLanguage(transcript)
}
