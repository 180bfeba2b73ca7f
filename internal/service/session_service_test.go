package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"kiosk-backend/internal/checklist"
	"kiosk-backend/internal/i18n"
	"kiosk-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, store Store) *SessionService {
	t.Helper()
	svc := NewSessionService(store, checklist.DefaultTemplate())
	svc.Now = func() time.Time { return fixedNow }
	return svc
}

func completeRequired(t *testing.T, svc *SessionService, id string) {
	t.Helper()
	session, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	for _, item := range session.Checklist {
		if item.Required && !item.Completed {
			_, err := svc.ToggleChecklistItem(context.Background(), id, item.ID)
			require.NoError(t, err)
		}
	}
}

func TestCreateDefaults(t *testing.T) {
	svc := newTestService(t, NewMemoryStore())

	s, err := svc.Create(context.Background(), NewSession{CitizenLanguage: "English"})
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, fixedNow, s.Timestamp)
	assert.Equal(t, "en", s.CitizenLanguage)
	assert.Equal(t, models.StatusActive, s.Status)
	assert.Empty(t, s.Transcript)
	assert.Len(t, s.Checklist, 12)
	assert.Equal(t, 1, s.Version)

	stored, err := svc.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, stored.ID)
}

func TestCreateLanguageHandling(t *testing.T) {
	svc := newTestService(t, NewMemoryStore())

	s, err := svc.Create(context.Background(), NewSession{})
	require.NoError(t, err)
	assert.Equal(t, "en", s.CitizenLanguage)

	s, err = svc.Create(context.Background(), NewSession{CitizenLanguage: "ta"})
	require.NoError(t, err)
	assert.Equal(t, "ta", s.CitizenLanguage)

	_, err = svc.Create(context.Background(), NewSession{CitizenLanguage: "Klingon"})
	require.ErrorIs(t, err, i18n.ErrUnsupportedLanguage)
}

func TestCreatedSessionsDoNotShareChecklist(t *testing.T) {
	svc := newTestService(t, NewMemoryStore())
	ctx := context.Background()

	a, err := svc.Create(ctx, NewSession{})
	require.NoError(t, err)
	b, err := svc.Create(ctx, NewSession{})
	require.NoError(t, err)

	_, err = svc.ToggleChecklistItem(ctx, a.ID, "1")
	require.NoError(t, err)

	got, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.Checklist[0].Completed)
}

func TestListValidatesStatus(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(DemoSessions(fixedNow, checklist.DefaultTemplate())...))

	all, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(all))

	completed, err := svc.List(context.Background(), models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(completed))

	_, err = svc.List(context.Background(), "closed")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdatePersistsOfficerEdits(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(t, factory(t))
			ctx := context.Background()

			s, err := svc.Create(ctx, NewSession{CitizenLanguage: "hi"})
			require.NoError(t, err)

			summary, notes := "Lost phone", "Asked for IMEI"
			updated, err := svc.Update(ctx, s.ID, SessionPatch{Summary: &summary, Notes: &notes})
			require.NoError(t, err)
			assert.Equal(t, 2, updated.Version)

			got, err := svc.Get(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, summary, got.Summary)
			assert.Equal(t, notes, got.Notes)
		})
	}
}

func TestUpdateCompletionRequiresChecklist(t *testing.T) {
	svc := newTestService(t, NewMemoryStore())
	ctx := context.Background()

	s, err := svc.Create(ctx, NewSession{})
	require.NoError(t, err)

	completed := models.StatusCompleted
	_, err = svc.Update(ctx, s.ID, SessionPatch{Status: &completed})
	require.ErrorIs(t, err, ErrChecklistIncomplete)

	completeRequired(t, svc, s.ID)

	done, err := svc.Update(ctx, s.ID, SessionPatch{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
}

func TestUpdateRejectsStaleVersion(t *testing.T) {
	svc := newTestService(t, NewMemoryStore())
	ctx := context.Background()

	s, err := svc.Create(ctx, NewSession{})
	require.NoError(t, err)

	notes := "first"
	_, err = svc.Update(ctx, s.ID, SessionPatch{Notes: &notes, Version: &s.Version})
	require.NoError(t, err)

	notes = "second"
	_, err = svc.Update(ctx, s.ID, SessionPatch{Notes: &notes, Version: &s.Version})
	require.ErrorIs(t, err, ErrVersionConflict)
}

func TestUpdateRejectsArchiveStatus(t *testing.T) {
	svc := newTestService(t, NewMemoryStore())
	s, err := svc.Create(context.Background(), NewSession{})
	require.NoError(t, err)

	archived := models.StatusArchived
	_, err = svc.Update(context.Background(), s.ID, SessionPatch{Status: &archived})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestToggleChecklistItem(t *testing.T) {
	svc := newTestService(t, NewMemoryStore())
	ctx := context.Background()

	s, err := svc.Create(ctx, NewSession{})
	require.NoError(t, err)

	toggled, err := svc.ToggleChecklistItem(ctx, s.ID, "1")
	require.NoError(t, err)
	assert.True(t, toggled.Checklist[0].Completed)

	_, err = svc.ToggleChecklistItem(ctx, s.ID, "99")
	require.ErrorIs(t, err, checklist.ErrItemNotFound)

	_, err = svc.ToggleChecklistItem(ctx, "missing", "1")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestToggleKeepsCompletedSessionReady(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(t, factory(t))
			ctx := context.Background()

			s, err := svc.Create(ctx, NewSession{})
			require.NoError(t, err)
			completeRequired(t, svc, s.ID)

			completed := models.StatusCompleted
			_, err = svc.Update(ctx, s.ID, SessionPatch{Status: &completed})
			require.NoError(t, err)

			_, err = svc.ToggleChecklistItem(ctx, s.ID, "1")
			require.ErrorIs(t, err, ErrChecklistIncomplete)

			got, err := svc.Get(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusCompleted, got.Status)
			assert.True(t, checklist.Evaluate(got.Checklist).ReadyToComplete)

			// Optional items stay editable.
			toggled, err := svc.ToggleChecklistItem(ctx, s.ID, "3")
			require.NoError(t, err)
			assert.True(t, toggled.Checklist[2].Completed)
		})
	}
}

func TestAppendResponse(t *testing.T) {
	svc := newTestService(t, NewMemoryStore())
	ctx := context.Background()

	s, err := svc.Create(ctx, NewSession{CitizenLanguage: "hi"})
	require.NoError(t, err)

	resp, updated, err := svc.AppendResponse(ctx, s.ID, models.SentResponse{Text: "We have registered your complaint.", OfficerID: "OFF001"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, DefaultResponseType, resp.Type)
	assert.Equal(t, fixedNow, resp.SentAt)
	require.Len(t, updated.Responses, 1)
	assert.Equal(t, resp, updated.Responses[0])

	_, _, err = svc.AppendResponse(ctx, s.ID, models.SentResponse{Type: "gossip", Text: "x"})
	require.ErrorIs(t, err, ErrInvalidResponseType)
}

func TestRecordTurnAppendsTranscript(t *testing.T) {
	svc := newTestService(t, NewMemoryStore())
	ctx := context.Background()

	s, err := svc.Create(ctx, NewSession{CitizenLanguage: "hi"})
	require.NoError(t, err)

	_, err = svc.RecordTurn(ctx, s.ID, "first", "/uploads/1.webm")
	require.NoError(t, err)
	got, err := svc.RecordTurn(ctx, s.ID, "second", "")
	require.NoError(t, err)

	assert.Equal(t, "first\nsecond", got.Transcript)
	assert.Equal(t, []string{"/uploads/1.webm"}, got.AudioURLs)
}

func TestArchiveFreezesSession(t *testing.T) {
	svc := newTestService(t, NewMemoryStore())
	ctx := context.Background()

	s, err := svc.Create(ctx, NewSession{})
	require.NoError(t, err)

	archived, err := svc.Archive(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, archived.Status)

	_, err = svc.ToggleChecklistItem(ctx, s.ID, "1")
	require.ErrorIs(t, err, ErrSessionArchived)

	list, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)

	still, err := svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, still.ID)
}

func TestConcurrentTogglesAreAllApplied(t *testing.T) {
	svc := newTestService(t, NewMemoryStore())
	ctx := context.Background()

	s, err := svc.Create(ctx, NewSession{})
	require.NoError(t, err)

	// Each goroutine flips a distinct item; retries absorb version conflicts.
	items := []string{"1", "3", "4"}
	var wg sync.WaitGroup
	errs := make([]error, len(items))
	for i, id := range items {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = svc.ToggleChecklistItem(ctx, s.ID, id)
		}(i, id)
	}
	wg.Wait()

	applied := 0
	for _, err := range errs {
		if err == nil {
			applied++
		} else {
			require.ErrorIs(t, err, ErrVersionConflict)
		}
	}

	got, err := svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1+applied, got.Version)
}

func TestResponseTemplates(t *testing.T) {
	templates := ResponseTemplates()
	require.Len(t, templates, 5)
	for _, tmpl := range templates {
		assert.True(t, IsResponseType(tmpl.Type))
		assert.NotEmpty(t, tmpl.Text)
	}
	assert.False(t, IsResponseType("gossip"))
}
