package backend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"kiosk-backend/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// BreakerFailures consecutive failures open the breaker for BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}

// Resilient retries transient failures of next with exponential backoff and
// guards each capability with its own circuit breaker.
type Resilient struct {
	next     Backend
	policy   Policy
	breakers map[string]*gobreaker.CircuitBreaker
}

var _ Backend = (*Resilient)(nil)

const (
	capSpeechToText = "speech-to-text"
	capTranslate    = "translate"
	capQuery        = "query"
	capTextToSpeech = "text-to-speech"
)

func NewResilient(next Backend, policy Policy) *Resilient {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	r := &Resilient{next: next, policy: policy, breakers: map[string]*gobreaker.CircuitBreaker{}}
	for _, name := range []string{capSpeechToText, capTranslate, capQuery, capTextToSpeech} {
		r.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: policy.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return policy.BreakerFailures > 0 && counts.ConsecutiveFailures >= policy.BreakerFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !Transient(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("backend: circuit %s %s -> %s", name, from, to)
			},
		})
	}
	return r
}

// Transient reports whether err is worth retrying.
func Transient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	default:
		return true
	}
}

func (r *Resilient) do(ctx context.Context, name string, kind error, op func(context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.policy.InitialInterval
	policy.MaxInterval = r.policy.MaxInterval
	policy.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.policy.MaxAttempts-1)), ctx)
	breaker := r.breakers[name]

	err := backoff.Retry(func() error {
		_, err := breaker.Execute(func() (interface{}, error) {
			return nil, op(ctx)
		})
		if err != nil && !Transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)

	if err != nil && !errors.Is(err, kind) {
		err = fmt.Errorf("%w: %w", kind, err)
	}
	return err
}

func (r *Resilient) SpeechToText(ctx context.Context, audio []byte, language string) (TranscriptionResult, error) {
	var out TranscriptionResult
	err := r.do(ctx, capSpeechToText, ErrTranscriptionFailed, func(ctx context.Context) error {
		res, err := r.next.SpeechToText(ctx, audio, language)
		out = res
		return err
	})
	return out, err
}

func (r *Resilient) Translate(ctx context.Context, text, targetLanguage string) (TranslationResult, error) {
	var out TranslationResult
	err := r.do(ctx, capTranslate, ErrTranslationFailed, func(ctx context.Context) error {
		res, err := r.next.Translate(ctx, text, targetLanguage)
		out = res
		return err
	})
	return out, err
}

func (r *Resilient) QueryAssistant(ctx context.Context, text string, role models.Role) (Answer, error) {
	var out Answer
	err := r.do(ctx, capQuery, ErrQueryFailed, func(ctx context.Context) error {
		res, err := r.next.QueryAssistant(ctx, text, role)
		out = res
		return err
	})
	return out, err
}

func (r *Resilient) TextToSpeech(ctx context.Context, text, language string) (Speech, error) {
	var out Speech
	err := r.do(ctx, capTextToSpeech, ErrTTSFailed, func(ctx context.Context) error {
		res, err := r.next.TextToSpeech(ctx, text, language)
		out = res
		return err
	})
	return out, err
}
