// Package i18n holds the supported kiosk languages and the UI message catalog.
package i18n

import (
	"errors"
	"strings"
	"unicode"
)

const (
	// DefaultLanguage is used for sessions opened without a language, for
	// Latin-script text and as the message fallback.
	DefaultLanguage = "en"

	// PivotLanguage is the default language every query is answered in
	// before being translated back for the citizen.
	PivotLanguage = "en"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

type Language struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
	Flag       string `json:"flag"`
}

var supported = []Language{
	{Code: "en", Name: "English", NativeName: "English", Flag: "🇺🇸"},
	{Code: "hi", Name: "Hindi", NativeName: "हिन्दी", Flag: "🇮🇳"},
	{Code: "ta", Name: "Tamil", NativeName: "தமிழ்", Flag: "🇮🇳"},
	{Code: "te", Name: "Telugu", NativeName: "తెలుగు", Flag: "🇮🇳"},
	{Code: "bn", Name: "Bengali", NativeName: "বাংলা", Flag: "🇮🇳"},
	{Code: "gu", Name: "Gujarati", NativeName: "ગુજરાતી", Flag: "🇮🇳"},
	{Code: "kn", Name: "Kannada", NativeName: "ಕನ್ನಡ", Flag: "🇮🇳"},
	{Code: "ml", Name: "Malayalam", NativeName: "മലയാളം", Flag: "🇮🇳"},
	{Code: "mr", Name: "Marathi", NativeName: "मराठी", Flag: "🇮🇳"},
	{Code: "pa", Name: "Punjabi", NativeName: "ਪੰਜਾਬੀ", Flag: "🇮🇳"},
	{Code: "ur", Name: "Urdu", NativeName: "اردو", Flag: "🇮🇳"},
}

// Supported returns the language table in display order.
func Supported() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

// Lookup finds a language by its code.
func Lookup(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, l := range supported {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// Resolve accepts a code, an English name or a native name. Sessions store
// the English name ("Hindi") while the kiosk sends codes ("hi").
func Resolve(value string) (Language, bool) {
	if l, ok := Lookup(value); ok {
		return l, true
	}
	value = strings.TrimSpace(value)
	for _, l := range supported {
		if strings.EqualFold(l.Name, value) || l.NativeName == value {
			return l, true
		}
	}
	return Language{}, false
}

var scripts = []struct {
	table *unicode.RangeTable
	code  string
}{
	{unicode.Devanagari, "hi"},
	{unicode.Tamil, "ta"},
	{unicode.Telugu, "te"},
	{unicode.Bengali, "bn"},
	{unicode.Gujarati, "gu"},
	{unicode.Kannada, "kn"},
	{unicode.Malayalam, "ml"},
	{unicode.Gurmukhi, "pa"},
	{unicode.Arabic, "ur"},
}

// DetectLanguage guesses a language code from the script of the first
// non-Latin letter. Devanagari maps to Hindi; Latin text maps to English.
func DetectLanguage(text string) string {
	for _, r := range text {
		if !unicode.IsLetter(r) || unicode.Is(unicode.Latin, r) {
			continue
		}
		for _, s := range scripts {
			if unicode.Is(s.table, r) {
				return s.code
			}
		}
	}
	return DefaultLanguage
}
