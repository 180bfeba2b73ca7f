package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"kiosk-backend/internal/backend"
	"kiosk-backend/internal/i18n"
	"kiosk-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	complaintAnswer   = "To file a complaint, please provide your details and describe the incident. We will register your complaint and provide you with a reference number."
	complaintAnswerHi = "शिकायत दर्ज करने के लिए, कृपया अपना विवरण दें और घटना का वर्णन करें। हम आपकी शिकायत दर्ज करेंगे और आपको एक संदर्भ संख्या प्रदान करेंगे।"
)

// recorder counts calls and injects failures on top of the mock backend.
type recorder struct {
	*backend.Mock
	translations []string
	queryErr     error
	ttsErr       error
	confidence   *float64
}

func newRecorder() *recorder {
	return &recorder{Mock: backend.NewMock(backend.Latency{})}
}

func (r *recorder) SpeechToText(ctx context.Context, audio []byte, language string) (backend.TranscriptionResult, error) {
	res, err := r.Mock.SpeechToText(ctx, audio, language)
	if err == nil && r.confidence != nil {
		res.Confidence = *r.confidence
	}
	return res, err
}

func (r *recorder) Translate(ctx context.Context, text, target string) (backend.TranslationResult, error) {
	r.translations = append(r.translations, target)
	return r.Mock.Translate(ctx, text, target)
}

func (r *recorder) QueryAssistant(ctx context.Context, text string, role models.Role) (backend.Answer, error) {
	if r.queryErr != nil {
		return backend.Answer{}, r.queryErr
	}
	return r.Mock.QueryAssistant(ctx, text, role)
}

func (r *recorder) TextToSpeech(ctx context.Context, text, language string) (backend.Speech, error) {
	if r.ttsErr != nil {
		return backend.Speech{}, r.ttsErr
	}
	return r.Mock.TextToSpeech(ctx, text, language)
}

func newOrchestrator(b backend.Backend) *Orchestrator {
	return New(b, Config{PivotLanguage: "en", MinConfidence: DefaultMinConfidence})
}

func TestRunHindiComplaint(t *testing.T) {
	rec := newRecorder()
	o := newOrchestrator(rec)

	turn, err := o.Run(context.Background(), TurnRequest{
		Audio:    []byte("webm-recording"),
		Language: "hi",
		Role:     models.RoleCitizen,
		Speak:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "hi", turn.Language)
	assert.Equal(t, "मुझे अपना शिकायत दर्ज करना है।", turn.Transcript)
	assert.Equal(t, 0.92, turn.Confidence)
	assert.Equal(t, "I want to file a complaint.", turn.Translated)
	assert.Equal(t, complaintAnswer, turn.Answer)
	assert.Equal(t, complaintAnswerHi, turn.Response)
	require.NotNil(t, turn.Speech)
	assert.Equal(t, "data:audio/wav;base64,mock-audio-data", turn.Speech.AudioURL)
	assert.Equal(t, []string{"en", "hi"}, rec.translations)
}

func TestPivotLanguageIsNormalized(t *testing.T) {
	for _, pivot := range []string{"English", " EN ", "", "Klingon"} {
		rec := newRecorder()
		o := New(rec, Config{PivotLanguage: pivot, MinConfidence: DefaultMinConfidence})
		assert.Equal(t, "en", o.PivotLanguage(), pivot)

		turn, err := o.Run(context.Background(), TurnRequest{
			Audio:    []byte("webm-recording"),
			Language: "hi",
			Role:     models.RoleCitizen,
		})
		require.NoError(t, err, pivot)
		assert.Equal(t, "I want to file a complaint.", turn.Translated, pivot)
		assert.Equal(t, complaintAnswerHi, turn.Response, pivot)
		assert.Equal(t, []string{"en", "hi"}, rec.translations, pivot)
	}
}

func TestRunAutoLanguageUsesTranscription(t *testing.T) {
	turn, err := newOrchestrator(newRecorder()).Run(context.Background(), TurnRequest{
		Audio:    []byte("webm-recording"),
		Language: "auto",
		Role:     models.RoleCitizen,
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", turn.Language)
	assert.Nil(t, turn.Speech)
}

func TestRunRejectsUnsupportedLanguage(t *testing.T) {
	_, err := newOrchestrator(newRecorder()).Run(context.Background(), TurnRequest{
		Audio:    []byte("webm-recording"),
		Language: "xx",
	})
	require.ErrorIs(t, err, i18n.ErrUnsupportedLanguage)
}

func TestRunRejectsLowConfidence(t *testing.T) {
	rec := newRecorder()
	low := 0.3
	rec.confidence = &low

	_, err := newOrchestrator(rec).Run(context.Background(), TurnRequest{Audio: []byte("webm"), Language: "hi"})
	require.ErrorIs(t, err, backend.ErrTranscriptionFailed)
	assert.Empty(t, rec.translations)
}

func TestRunRejectsEmptyAudio(t *testing.T) {
	_, err := newOrchestrator(newRecorder()).Run(context.Background(), TurnRequest{Language: "hi"})
	require.ErrorIs(t, err, backend.ErrTranscriptionFailed)
}

func TestRunHaltsOnQueryFailure(t *testing.T) {
	rec := newRecorder()
	rec.queryErr = fmt.Errorf("%w: upstream down", backend.ErrQueryFailed)

	_, err := newOrchestrator(rec).Run(context.Background(), TurnRequest{Audio: []byte("webm"), Language: "hi"})
	require.ErrorIs(t, err, backend.ErrQueryFailed)
	assert.Equal(t, []string{"en"}, rec.translations, "answer must not be translated back")
}

func TestRunSurvivesSpeechFailure(t *testing.T) {
	rec := newRecorder()
	rec.ttsErr = errors.New("voice unavailable")

	turn, err := newOrchestrator(rec).Run(context.Background(), TurnRequest{Audio: []byte("webm"), Language: "hi", Speak: true})
	require.NoError(t, err)
	assert.Nil(t, turn.Speech)
	assert.Equal(t, complaintAnswerHi, turn.Response)
}

func TestAskEnglishSkipsTranslation(t *testing.T) {
	rec := newRecorder()

	turn, err := newOrchestrator(rec).Ask(context.Background(), "My phone was stolen, theft", "en", models.RoleCitizen, false)
	require.NoError(t, err)
	assert.Empty(t, rec.translations)
	assert.Equal(t, turn.Answer, turn.Response)
	assert.Contains(t, turn.Answer, "theft cases")
}

func TestAskDetectsLanguage(t *testing.T) {
	turn, err := newOrchestrator(newRecorder()).Ask(context.Background(), "मुझे अपना शिकायत दर्ज करना है।", "", models.RoleCitizen, false)
	require.NoError(t, err)
	assert.Equal(t, "hi", turn.Language)
	assert.Equal(t, complaintAnswerHi, turn.Response)
}

func TestSuggestUsesOfficerAssistant(t *testing.T) {
	answer, err := newOrchestrator(newRecorder()).Suggest(context.Background(), "मुझे अपना शिकायत दर्ज करना है।", "hi")
	require.NoError(t, err)
	assert.Equal(t, complaintAnswer, answer.Answer)

	_, err = newOrchestrator(newRecorder()).Suggest(context.Background(), "  ", "hi")
	require.ErrorIs(t, err, backend.ErrInvalidInput)
}

func TestRunCancelled(t *testing.T) {
	o := newOrchestrator(backend.NewMock(backend.DefaultLatency()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx, TurnRequest{Audio: []byte("webm"), Language: "hi"})
	require.ErrorIs(t, err, context.Canceled)
}
