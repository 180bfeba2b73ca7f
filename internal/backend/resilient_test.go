package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"kiosk-backend/internal/models"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyBackend fails the first failures calls of every capability with err.
type flakyBackend struct {
	*Mock
	failures int
	err      error
	calls    int
}

func (f *flakyBackend) fail() error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func (f *flakyBackend) QueryAssistant(ctx context.Context, text string, role models.Role) (Answer, error) {
	if err := f.fail(); err != nil {
		return Answer{}, err
	}
	return f.Mock.QueryAssistant(ctx, text, role)
}

func (f *flakyBackend) Translate(ctx context.Context, text, target string) (TranslationResult, error) {
	if err := f.fail(); err != nil {
		return TranslationResult{}, err
	}
	return f.Mock.Translate(ctx, text, target)
}

func testPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		BreakerFailures: 2,
		BreakerCooldown: time.Hour,
	}
}

func TestResilientRetriesTransientErrors(t *testing.T) {
	flaky := &flakyBackend{Mock: NewMock(Latency{}), failures: 2, err: errors.New("upstream 503")}
	r := NewResilient(flaky, Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})

	answer, err := r.QueryAssistant(context.Background(), "complaint", models.RoleCitizen)
	require.NoError(t, err)
	assert.Equal(t, cannedAnswers[0].answer, answer.Answer)
	assert.Equal(t, 3, flaky.calls)
}

func TestResilientGivesUpAfterMaxAttempts(t *testing.T) {
	upstream := errors.New("upstream 503")
	flaky := &flakyBackend{Mock: NewMock(Latency{}), failures: 10, err: upstream}
	r := NewResilient(flaky, Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})

	_, err := r.QueryAssistant(context.Background(), "complaint", models.RoleCitizen)
	require.ErrorIs(t, err, ErrQueryFailed)
	require.ErrorIs(t, err, upstream)
	assert.Equal(t, 3, flaky.calls)
}

func TestResilientDoesNotRetryInvalidInput(t *testing.T) {
	flaky := &flakyBackend{Mock: NewMock(Latency{}), failures: 10, err: ErrInvalidInput}
	r := NewResilient(flaky, testPolicy())

	_, err := r.Translate(context.Background(), "text", "en")
	require.ErrorIs(t, err, ErrTranslationFailed)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 1, flaky.calls)
}

func TestResilientBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	flaky := &flakyBackend{Mock: NewMock(Latency{}), failures: 100, err: errors.New("timeout")}
	r := NewResilient(flaky, Policy{MaxAttempts: 1, BreakerFailures: 2, BreakerCooldown: time.Hour})

	for i := 0; i < 2; i++ {
		_, err := r.QueryAssistant(context.Background(), "x", models.RoleCitizen)
		require.Error(t, err)
	}

	_, err := r.QueryAssistant(context.Background(), "x", models.RoleCitizen)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.ErrorIs(t, err, ErrQueryFailed)
	assert.Equal(t, 2, flaky.calls)

	// Breakers are per capability.
	_, err = r.Translate(context.Background(), "x", "en")
	require.Error(t, err)
	assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestResilientStopsOnCancelledContext(t *testing.T) {
	flaky := &flakyBackend{Mock: NewMock(Latency{}), failures: 100, err: errors.New("timeout")}
	r := NewResilient(flaky, testPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.QueryAssistant(ctx, "x", models.RoleCitizen)
	require.ErrorIs(t, err, ErrQueryFailed)
	assert.LessOrEqual(t, flaky.calls, 1)
}

func TestTransient(t *testing.T) {
	assert.False(t, Transient(nil))
	assert.False(t, Transient(ErrInvalidInput))
	assert.False(t, Transient(context.Canceled))
	assert.False(t, Transient(gobreaker.ErrOpenState))
	assert.True(t, Transient(errors.New("connection reset")))
}
