package auth

import (
	"context"
	"log"
)

// Verifier delivers and checks verification codes.
type Verifier interface {
	SendOTP(ctx context.Context, identifier string) error
	VerifyOTP(ctx context.Context, identifier, code string) bool
	CheckPassword(ctx context.Context, username, password string) bool
	SendTwoFactor(ctx context.Context, username string) error
	VerifyTwoFactor(ctx context.Context, username, code string) bool
}

const (
	MockOTP       = "1234"
	MockTwoFactor = "123456"
)

// MockVerifier delivers nothing and accepts only the fixed demo codes. Any
// non-empty password passes.
type MockVerifier struct{}

var _ Verifier = MockVerifier{}

func (MockVerifier) SendOTP(_ context.Context, identifier string) error {
	log.Printf("auth: otp requested for %s", identifier)
	return nil
}

func (MockVerifier) VerifyOTP(_ context.Context, _, code string) bool {
	return code == MockOTP
}

func (MockVerifier) CheckPassword(_ context.Context, username, password string) bool {
	return username != "" && password != ""
}

func (MockVerifier) SendTwoFactor(_ context.Context, username string) error {
	log.Printf("auth: 2fa requested for %s", username)
	return nil
}

func (MockVerifier) VerifyTwoFactor(_ context.Context, _, code string) bool {
	return code == MockTwoFactor
}
