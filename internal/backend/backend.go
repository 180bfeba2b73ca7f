// Package backend defines the speech, translation and assistant capabilities
// the kiosk depends on. The mock and Gemini implementations are
// interchangeable behind Backend.
package backend

import (
	"context"
	"errors"

	"kiosk-backend/internal/models"
)

// Error kinds surfaced by every implementation. Callers use errors.Is.
var (
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrTranslationFailed   = errors.New("translation failed")
	ErrQueryFailed         = errors.New("assistant query failed")
	ErrTTSFailed           = errors.New("speech synthesis failed")

	// ErrInvalidInput marks a request that will fail again if retried.
	ErrInvalidInput = errors.New("invalid input")
)

type TranscriptionResult struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
}

type TranslationResult struct {
	Translated     string `json:"translated"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

type Answer struct {
	Answer     string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources,omitempty"`
}

type Speech struct {
	AudioURL string  `json:"audio_url"`
	Duration float64 `json:"duration"`
}

type Transcriber interface {
	SpeechToText(ctx context.Context, audio []byte, language string) (TranscriptionResult, error)
}

type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (TranslationResult, error)
}

type Assistant interface {
	QueryAssistant(ctx context.Context, text string, role models.Role) (Answer, error)
}

type Synthesizer interface {
	TextToSpeech(ctx context.Context, text, language string) (Speech, error)
}

type Backend interface {
	Transcriber
	Translator
	Assistant
	Synthesizer
}
