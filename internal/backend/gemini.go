package backend

import (
	"context"
	"fmt"
	"strings"

	"kiosk-backend/internal/i18n"
	"kiosk-backend/internal/models"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

const (
	DefaultGeminiModel = "gemini-2.0-flash-001"

	geminiTranscriptConfidence = 0.9
	geminiAnswerConfidence     = 0.8
)

type GeminiConfig struct {
	ProjectID       string
	Location        string
	CredentialsFile string
	Model           string
}

// Gemini transcribes, translates and answers through Vertex AI. Speech
// synthesis is delegated to voice, since the model returns text only.
type Gemini struct {
	client     *genai.Client
	transcribe *genai.GenerativeModel
	translate  *genai.GenerativeModel
	citizen    *genai.GenerativeModel
	officer    *genai.GenerativeModel
	voice      Synthesizer
}

var _ Backend = (*Gemini)(nil)

func NewGemini(ctx context.Context, cfg GeminiConfig, voice Synthesizer) (*Gemini, error) {
	if cfg.ProjectID == "" || cfg.Location == "" {
		return nil, fmt.Errorf("gemini backend requires GOOGLE_CLOUD_PROJECT and GOOGLE_CLOUD_LOCATION")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vertex ai client: %w", err)
	}

	return &Gemini{
		client: client,
		transcribe: newModel(client, cfg.Model,
			"You transcribe speech recorded at a police help kiosk in India. "+
				"Return only the words spoken, in the script of the spoken language. "+
				"If nothing intelligible was said, return an empty response."),
		translate: newModel(client, cfg.Model,
			"You are a translator for a police help kiosk. "+
				"Translate the user's text faithfully and return only the translation."),
		citizen: newModel(client, cfg.Model,
			"You assist citizens at a police help kiosk in India. Answer briefly and politely in English, "+
				"explain the next procedural step, and never give legal advice beyond police procedure."),
		officer: newModel(client, cfg.Model,
			"You assist police officers reviewing a citizen's query. Draft a short, formal response in English "+
				"the officer can send, citing relevant BNS sections or police manual chapters where applicable."),
		voice: voice,
	}, nil
}

func newModel(client *genai.Client, name, instruction string) *genai.GenerativeModel {
	model := client.GenerativeModel(name)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(instruction)},
	}
	return model
}

func (g *Gemini) SpeechToText(ctx context.Context, audio []byte, language string) (TranscriptionResult, error) {
	if len(audio) == 0 {
		return TranscriptionResult{}, fmt.Errorf("%w: %w: empty recording", ErrTranscriptionFailed, ErrInvalidInput)
	}

	prompt := "Transcribe the audio above."
	if l, ok := i18n.Lookup(language); ok {
		prompt = fmt.Sprintf("Transcribe the audio above. The speaker is expected to use %s.", l.Name)
	}

	resp, err := g.transcribe.GenerateContent(ctx,
		genai.Blob{MIMEType: AudioMIME(audio), Data: audio},
		genai.Text(prompt),
	)
	if err != nil {
		return TranscriptionResult{}, fmt.Errorf("%w: vertex ai: %w", ErrTranscriptionFailed, err)
	}

	text := responseText(resp)
	result := TranscriptionResult{Transcript: text, Language: i18n.DetectLanguage(text)}
	if text != "" {
		result.Confidence = geminiTranscriptConfidence
	}
	return result, nil
}

func (g *Gemini) Translate(ctx context.Context, text, targetLanguage string) (TranslationResult, error) {
	if strings.TrimSpace(text) == "" {
		return TranslationResult{}, fmt.Errorf("%w: %w: empty text", ErrTranslationFailed, ErrInvalidInput)
	}
	target, ok := i18n.Lookup(targetLanguage)
	if !ok {
		return TranslationResult{}, fmt.Errorf("%w: %w: %q", ErrTranslationFailed, ErrInvalidInput, targetLanguage)
	}

	resp, err := g.translate.GenerateContent(ctx, genai.Text(fmt.Sprintf("Translate to %s:\n%s", target.Name, text)))
	if err != nil {
		return TranslationResult{}, fmt.Errorf("%w: vertex ai: %w", ErrTranslationFailed, err)
	}

	translated := responseText(resp)
	if translated == "" {
		return TranslationResult{}, fmt.Errorf("%w: empty response", ErrTranslationFailed)
	}

	return TranslationResult{
		Translated:     translated,
		SourceLanguage: i18n.DetectLanguage(text),
		TargetLanguage: target.Code,
	}, nil
}

func (g *Gemini) QueryAssistant(ctx context.Context, text string, role models.Role) (Answer, error) {
	if strings.TrimSpace(text) == "" {
		return Answer{}, fmt.Errorf("%w: %w: empty query", ErrQueryFailed, ErrInvalidInput)
	}

	model := g.citizen
	if role == models.RoleOfficer {
		model = g.officer
	}

	resp, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return Answer{}, fmt.Errorf("%w: vertex ai: %w", ErrQueryFailed, err)
	}

	answer := responseText(resp)
	if answer == "" {
		return Answer{}, fmt.Errorf("%w: empty response", ErrQueryFailed)
	}

	return Answer{Answer: answer, Confidence: geminiAnswerConfidence}, nil
}

func (g *Gemini) TextToSpeech(ctx context.Context, text, language string) (Speech, error) {
	return g.voice.TextToSpeech(ctx, text, language)
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}
