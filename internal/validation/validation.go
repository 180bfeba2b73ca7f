package validation

import (
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxAudioSize      = 25 * 1024 * 1024 // 25MB, several minutes of compressed speech
	MaxFilenameLength = 255
	MaxIdentifier     = 254
	MaxResponseLength = 4000
	MaxNotesLength    = 10000

	OTPDigits       = 4
	TwoFactorDigits = 6
)

var (
	ErrAudioTooLarge    = errors.New("recording too large - maximum 25MB allowed")
	ErrInvalidAudioType = errors.New("invalid audio type - only webm, ogg, wav, mp3, m4a allowed")
	ErrFilenameTooLong  = errors.New("filename too long - maximum 255 characters")
	ErrEmptyAudio       = errors.New("recording is empty")
	ErrInvalidCode      = errors.New("invalid verification code")
	ErrInvalidInput     = errors.New("invalid input")
)

var AllowedAudioTypes = map[string]bool{
	"audio/webm":  true,
	"video/webm":  true,
	"audio/ogg":   true,
	"audio/wav":   true,
	"audio/wave":  true,
	"audio/x-wav": true,
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/mp4":   true,
	"audio/m4a":   true,
}

// ValidateAudioUpload checks a multipart recording before it is read.
func ValidateAudioUpload(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size == 0 {
		return ErrEmptyAudio
	}

	if fileHeader.Size > MaxAudioSize {
		return ErrAudioTooLarge
	}

	if len(fileHeader.Filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}

	contentType := baseType(fileHeader.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = guessContentType(fileHeader.Filename)
	}

	if !AllowedAudioTypes[contentType] {
		return ErrInvalidAudioType
	}

	return nil
}

// ValidateAudioBytes checks a recording assembled from streamed frames.
func ValidateAudioBytes(audio []byte) error {
	if len(audio) == 0 {
		return ErrEmptyAudio
	}
	if len(audio) > MaxAudioSize {
		return ErrAudioTooLarge
	}
	return nil
}

// baseType drops parameters such as "codecs=opus".
func baseType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func guessContentType(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx == -1 {
		return "application/octet-stream"
	}

	ext := strings.ToLower(filename[idx+1:])

	typeMap := map[string]string{
		"webm": "audio/webm",
		"ogg":  "audio/ogg",
		"oga":  "audio/ogg",
		"wav":  "audio/wav",
		"mp3":  "audio/mpeg",
		"m4a":  "audio/mp4",
	}

	if ct, ok := typeMap[ext]; ok {
		return ct
	}

	return "application/octet-stream"
}

// ValidateCode accepts a code of exactly the given number of ASCII digits.
func ValidateCode(code string, digits int) error {
	if len(code) != digits {
		return fmt.Errorf("%w: must be %d digits", ErrInvalidCode, digits)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: must be %d digits", ErrInvalidCode, digits)
		}
	}
	return nil
}

// ValidateIdentifier accepts a phone number or an email address.
func ValidateIdentifier(identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return fmt.Errorf("%w: phone or email is required", ErrInvalidInput)
	}
	if len(identifier) > MaxIdentifier {
		return fmt.Errorf("%w: identifier too long", ErrInvalidInput)
	}
	if strings.Contains(identifier, "@") {
		at := strings.LastIndex(identifier, "@")
		if at == 0 || at == len(identifier)-1 {
			return fmt.Errorf("%w: malformed email", ErrInvalidInput)
		}
		return nil
	}

	digits := 0
	for _, r := range identifier {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return fmt.Errorf("%w: malformed phone number", ErrInvalidInput)
		}
	}
	if digits < 6 || digits > 15 {
		return fmt.Errorf("%w: phone number must have 6 to 15 digits", ErrInvalidInput)
	}
	return nil
}

func ValidateResponseText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: response text is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxResponseLength {
		return fmt.Errorf("%w: response too long - maximum %d characters", ErrInvalidInput, MaxResponseLength)
	}
	return nil
}

func ValidateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return fmt.Errorf("%w: notes too long - maximum %d characters", ErrInvalidInput, MaxNotesLength)
	}
	return nil
}

// ValidateSessionID accepts generated UUIDs and the short ids of seeded demo
// sessions.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	if _, err := uuid.Parse(id); err == nil {
		return nil
	}
	if len(id) > 64 {
		return fmt.Errorf("%w: session id too long", ErrInvalidInput)
	}
	for _, r := range id {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '-' || r == '_') {
			return fmt.Errorf("%w: malformed session id", ErrInvalidInput)
		}
	}
	return nil
}
