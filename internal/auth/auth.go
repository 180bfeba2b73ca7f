// Package auth implements the kiosk sign-in flows. Citizens verify a one-time
// code sent to a phone or email; officers sign in with a password and a
// second factor. Verification is simulated by a Verifier.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"kiosk-backend/internal/models"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrChallengeNotFound  = errors.New("verification not found or expired")
	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("not allowed for this role")
)

// Step is the position of a sign-in flow.
type Step string

const (
	StepMethodSelect  Step = "method-select"
	StepOTPSent       Step = "otp-sent"
	StepCredentials   Step = "credentials"
	Step2FASent       Step = "2fa-sent"
	StepAuthenticated Step = "authenticated"
)

// Credentials covers both flows. Citizens fill Identifier and Code;
// officers fill Identifier (username), Password and Code.
type Credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password,omitempty"`
	Code       string `json:"code"`
}

// Challenge is a pending verification. Its ID is handed to the client and
// echoed back with the code.
type Challenge struct {
	ID         string      `json:"challenge_id"`
	Role       models.Role `json:"role"`
	Step       Step        `json:"step"`
	Identifier string      `json:"identifier"`
	ExpiresAt  time.Time   `json:"expires_at"`
	Attempts   int         `json:"attempts"`
}

// Grant is an issued bearer token.
type Grant struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type Config struct {
	ChallengeTTL time.Duration
	TokenTTL     time.Duration
	// MaxAttempts is the number of wrong codes after which a challenge is
	// dropped and the flow must start over.
	MaxAttempts int
}

func DefaultConfig() Config {
	return Config{ChallengeTTL: 10 * time.Minute, TokenTTL: 12 * time.Hour, MaxAttempts: 5}
}

type Service struct {
	verifier Verifier
	cfg      Config
	now      func() time.Time

	mu         sync.Mutex
	challenges map[string]Challenge
	grants     map[string]Grant
}

func NewService(verifier Verifier, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = def.ChallengeTTL
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = def.TokenTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	return &Service{
		verifier:   verifier,
		cfg:        cfg,
		now:        time.Now,
		challenges: map[string]Challenge{},
		grants:     map[string]Grant{},
	}
}

// StartCitizen sends a one-time code to identifier and moves the flow to
// otp-sent.
func (s *Service) StartCitizen(ctx context.Context, identifier string) (Challenge, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Challenge{}, fmt.Errorf("%w: phone or email is required", ErrInvalidCredentials)
	}
	if err := s.verifier.SendOTP(ctx, identifier); err != nil {
		return Challenge{}, fmt.Errorf("send otp: %w", err)
	}
	return s.newChallenge(models.RoleCitizen, StepOTPSent, identifier), nil
}

// ResendOTP sends a fresh code for a pending citizen challenge.
func (s *Service) ResendOTP(ctx context.Context, challengeID string) (Challenge, error) {
	c, err := s.challenge(challengeID, models.RoleCitizen)
	if err != nil {
		return Challenge{}, err
	}
	if err := s.verifier.SendOTP(ctx, c.Identifier); err != nil {
		return Challenge{}, fmt.Errorf("send otp: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c.Step = StepOTPSent
	c.ExpiresAt = s.now().Add(s.cfg.ChallengeTTL)
	s.challenges[c.ID] = c
	return c, nil
}

// VerifyCitizen checks the one-time code. A wrong code leaves the challenge
// in otp-sent so the citizen can retry.
func (s *Service) VerifyCitizen(ctx context.Context, challengeID, code string) (Grant, error) {
	return s.verify(ctx, challengeID, models.RoleCitizen, code)
}

// StartOfficer checks the password and sends the second factor.
func (s *Service) StartOfficer(ctx context.Context, username, password string) (Challenge, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Challenge{}, fmt.Errorf("%w: username and password are required", ErrInvalidCredentials)
	}
	if !s.verifier.CheckPassword(ctx, username, password) {
		return Challenge{}, ErrInvalidCredentials
	}
	if err := s.verifier.SendTwoFactor(ctx, username); err != nil {
		return Challenge{}, fmt.Errorf("send 2fa: %w", err)
	}
	return s.newChallenge(models.RoleOfficer, Step2FASent, username), nil
}

func (s *Service) VerifyOfficer(ctx context.Context, challengeID, code string) (Grant, error) {
	return s.verify(ctx, challengeID, models.RoleOfficer, code)
}

// Login checks a complete set of credentials for role in one call.
func (s *Service) Login(ctx context.Context, creds Credentials, role models.Role) (models.User, error) {
	identifier := strings.TrimSpace(creds.Identifier)
	if identifier == "" {
		return models.User{}, ErrInvalidCredentials
	}

	switch role {
	case models.RoleCitizen:
		if !s.verifier.VerifyOTP(ctx, identifier, creds.Code) {
			return models.User{}, ErrInvalidCredentials
		}
		return citizenUser(identifier), nil
	case models.RoleOfficer:
		if creds.Password == "" || !s.verifier.CheckPassword(ctx, identifier, creds.Password) {
			return models.User{}, ErrInvalidCredentials
		}
		if !s.verifier.VerifyTwoFactor(ctx, identifier, creds.Code) {
			return models.User{}, ErrInvalidCredentials
		}
		return officerUser(identifier), nil
	default:
		return models.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidCredentials, role)
	}
}

// Issue creates a bearer token for user.
func (s *Service) Issue(user models.User) Grant {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := Grant{
		Token:     uuid.New().String(),
		User:      user,
		ExpiresAt: s.now().Add(s.cfg.TokenTTL),
	}
	s.grants[g.Token] = g
	return g
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(token string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.grants[token]
	if !ok {
		return models.User{}, ErrUnauthorized
	}
	if !s.now().Before(g.ExpiresAt) {
		delete(s.grants, token)
		return models.User{}, ErrUnauthorized
	}
	return g.User, nil
}

func (s *Service) Logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, token)
}

// Sweep drops expired challenges and tokens.
func (s *Service) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, c := range s.challenges {
		if !now.Before(c.ExpiresAt) {
			delete(s.challenges, id)
		}
	}
	for token, g := range s.grants {
		if !now.Before(g.ExpiresAt) {
			delete(s.grants, token)
		}
	}
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Service) verify(ctx context.Context, challengeID string, role models.Role, code string) (Grant, error) {
	c, err := s.challenge(challengeID, role)
	if err != nil {
		return Grant{}, err
	}

	var ok bool
	if role == models.RoleCitizen {
		ok = s.verifier.VerifyOTP(ctx, c.Identifier, code)
	} else {
		ok = s.verifier.VerifyTwoFactor(ctx, c.Identifier, code)
	}

	s.mu.Lock()
	if !ok {
		c.Attempts++
		if c.Attempts >= s.cfg.MaxAttempts {
			delete(s.challenges, c.ID)
			s.mu.Unlock()
			log.Printf("auth: dropped %s challenge %s after %d wrong codes", role, c.ID, c.Attempts)
			return Grant{}, fmt.Errorf("%w: too many attempts, start again", ErrInvalidCredentials)
		}
		s.challenges[c.ID] = c
		s.mu.Unlock()
		log.Printf("auth: rejected %s code for challenge %s (attempt %d)", role, c.ID, c.Attempts)
		return Grant{}, ErrInvalidCredentials
	}
	delete(s.challenges, c.ID)
	s.mu.Unlock()

	user := citizenUser(c.Identifier)
	if role == models.RoleOfficer {
		user = officerUser(c.Identifier)
	}
	return s.Issue(user), nil
}

func (s *Service) newChallenge(role models.Role, step Step, identifier string) Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := Challenge{
		ID:         uuid.New().String(),
		Role:       role,
		Step:       step,
		Identifier: identifier,
		ExpiresAt:  s.now().Add(s.cfg.ChallengeTTL),
	}
	s.challenges[c.ID] = c
	return c
}

func (s *Service) challenge(id string, role models.Role) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[id]
	if !ok || c.Role != role {
		return Challenge{}, ErrChallengeNotFound
	}
	if !s.now().Before(c.ExpiresAt) {
		delete(s.challenges, id)
		return Challenge{}, ErrChallengeNotFound
	}
	return c, nil
}

func citizenUser(identifier string) models.User {
	return models.User{
		ID:                uuid.NewSHA1(uuid.NameSpaceOID, []byte("citizen:"+identifier)).String(),
		Identifier:        identifier,
		Role:              models.RoleCitizen,
		Name:              "Citizen User",
		PreferredLanguage: "en",
	}
}

func officerUser(username string) models.User {
	return models.User{
		ID:                uuid.NewSHA1(uuid.NameSpaceOID, []byte("officer:"+username)).String(),
		Identifier:        username,
		Role:              models.RoleOfficer,
		Name:              "Officer Smith",
		BadgeNumber:       "OFF001",
		PreferredLanguage: "en",
	}
}
