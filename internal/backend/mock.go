package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kiosk-backend/internal/i18n"
	"kiosk-backend/internal/models"
)

const (
	mockTranscript           = "मुझे अपना शिकायत दर्ज करना है।"
	mockTranscriptConfidence = 0.92
	mockAnswerConfidence     = 0.85
	mockAudioURL             = "data:audio/wav;base64,mock-audio-data"
	mockAudioDuration        = 3.5
)

// Latency is the artificial delay of each mock call.
type Latency struct {
	SpeechToText time.Duration
	Translate    time.Duration
	Query        time.Duration
	TextToSpeech time.Duration
}

func DefaultLatency() Latency {
	return Latency{
		SpeechToText: 2 * time.Second,
		Translate:    1 * time.Second,
		Query:        1500 * time.Millisecond,
		TextToSpeech: 1 * time.Second,
	}
}

// Scaled multiplies every delay by factor. Zero disables delays.
func (l Latency) Scaled(factor float64) Latency {
	scale := func(d time.Duration) time.Duration {
		if factor <= 0 {
			return 0
		}
		return time.Duration(float64(d) * factor)
	}
	return Latency{
		SpeechToText: scale(l.SpeechToText),
		Translate:    scale(l.Translate),
		Query:        scale(l.Query),
		TextToSpeech: scale(l.TextToSpeech),
	}
}

type phrase struct {
	text       string
	source     string
	target     string
	translated string
}

var phrasebook = []phrase{
	{text: mockTranscript, source: "hi", target: "en", translated: "I want to file a complaint."},
	{text: "Hello, how can I help you?", source: "en", target: "hi", translated: "नमस्ते, मैं आपकी कैसे मदद कर सकता हूं?"},
	{text: cannedAnswers[0].answer, source: "en", target: "hi", translated: "शिकायत दर्ज करने के लिए, कृपया अपना विवरण दें और घटना का वर्णन करें। हम आपकी शिकायत दर्ज करेंगे और आपको एक संदर्भ संख्या प्रदान करेंगे।"},
	{text: cannedAnswers[1].answer, source: "en", target: "hi", translated: "चोरी के मामलों में, कृपया बताएं कि क्या चोरी हुआ, कब हुआ और किसी गवाह की जानकारी दें। हम तुरंत जांच शुरू करेंगे।"},
}

type cannedAnswer struct {
	keyword string
	answer  string
}

var cannedAnswers = []cannedAnswer{
	{keyword: "complaint", answer: "To file a complaint, please provide your details and describe the incident. We will register your complaint and provide you with a reference number."},
	{keyword: "theft", answer: "For theft cases, please provide details about what was stolen, when it happened, and any witness information. We will initiate an investigation immediately."},
}

const defaultAnswer = "I understand your concern. Let me connect you with the appropriate department to assist you further."

var mockSources = []string{"BNS Section 303", "Police Manual Chapter 4"}

// Mock answers every call with canned data after a fixed delay. Delays honour
// context cancellation.
type Mock struct {
	latency Latency
	silence *SilenceDetector
}

var _ Backend = (*Mock)(nil)

func NewMock(latency Latency) *Mock {
	return &Mock{
		latency: latency,
		silence: NewSilenceDetector(500),
	}
}

func (m *Mock) SpeechToText(ctx context.Context, audio []byte, language string) (TranscriptionResult, error) {
	if len(audio) == 0 {
		return TranscriptionResult{}, fmt.Errorf("%w: %w: empty recording", ErrTranscriptionFailed, ErrInvalidInput)
	}
	if err := wait(ctx, m.latency.SpeechToText); err != nil {
		return TranscriptionResult{}, fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}

	if m.silence.IsSilent(audio) {
		return TranscriptionResult{Language: language}, nil
	}

	return TranscriptionResult{
		Transcript: mockTranscript,
		Confidence: mockTranscriptConfidence,
		Language:   "hi",
	}, nil
}

func (m *Mock) Translate(ctx context.Context, text, targetLanguage string) (TranslationResult, error) {
	if strings.TrimSpace(text) == "" {
		return TranslationResult{}, fmt.Errorf("%w: %w: empty text", ErrTranslationFailed, ErrInvalidInput)
	}
	if err := wait(ctx, m.latency.Translate); err != nil {
		return TranslationResult{}, fmt.Errorf("%w: %w", ErrTranslationFailed, err)
	}

	for _, p := range phrasebook {
		if p.text == text && p.target == targetLanguage {
			return TranslationResult{Translated: p.translated, SourceLanguage: p.source, TargetLanguage: targetLanguage}, nil
		}
	}

	return TranslationResult{
		Translated:     fmt.Sprintf("[Translated to %s]: %s", targetLanguage, text),
		SourceLanguage: i18n.DetectLanguage(text),
		TargetLanguage: targetLanguage,
	}, nil
}

func (m *Mock) QueryAssistant(ctx context.Context, text string, role models.Role) (Answer, error) {
	if strings.TrimSpace(text) == "" {
		return Answer{}, fmt.Errorf("%w: %w: empty query", ErrQueryFailed, ErrInvalidInput)
	}
	if err := wait(ctx, m.latency.Query); err != nil {
		return Answer{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	answer := defaultAnswer
	lower := strings.ToLower(text)
	for _, c := range cannedAnswers {
		if strings.Contains(lower, c.keyword) {
			answer = c.answer
			break
		}
	}

	return Answer{
		Answer:     answer,
		Confidence: mockAnswerConfidence,
		Sources:    append([]string(nil), mockSources...),
	}, nil
}

func (m *Mock) TextToSpeech(ctx context.Context, text, language string) (Speech, error) {
	if strings.TrimSpace(text) == "" {
		return Speech{}, fmt.Errorf("%w: %w: empty text", ErrTTSFailed, ErrInvalidInput)
	}
	if err := wait(ctx, m.latency.TextToSpeech); err != nil {
		return Speech{}, fmt.Errorf("%w: %w", ErrTTSFailed, err)
	}

	return Speech{AudioURL: mockAudioURL, Duration: mockAudioDuration}, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
