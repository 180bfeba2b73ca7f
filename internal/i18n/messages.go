package i18n

// Message keys shared by the kiosk UI and API error bodies.
const (
	KeyApology             = "apology"
	KeyTranscriptionFailed = "error_transcription"
	KeyInvalidCode         = "error_invalid_code"
	KeyUnsupportedLanguage = "error_unsupported_language"
	KeyTurnInProgress      = "error_turn_in_progress"
)

var messages = map[string]map[string]string{
	"en": {
		"welcome":            "Welcome to Police Assistant",
		"select_language":    "Select Your Language",
		"speak":              "Tap to Speak",
		"listening":          "Listening...",
		"processing":         "Processing...",
		"you_said":           "You said:",
		"translated":         "Translated:",
		"response":           "Response:",
		"help":               "Need Help?",
		"emergency":          "Emergency: 100",
		"new_session":        "New Session",
		"active_sessions":    "Active Sessions",
		"completed_sessions": "Completed Sessions",

		KeyApology:             "I apologize, but I encountered an error. Please try again or contact an officer for assistance.",
		KeyTranscriptionFailed: "We could not understand the recording. Please speak clearly and try again.",
		KeyInvalidCode:         "The code you entered is not valid. Please try again.",
		KeyUnsupportedLanguage: "This language is not supported yet.",
		KeyTurnInProgress:      "Please wait, we are still working on your last question.",
	},
	"hi": {
		"welcome":            "पुलिस सहायक में आपका स्वागत है",
		"select_language":    "अपनी भाषा चुनें",
		"speak":              "बोलने के लिए टैप करें",
		"listening":          "सुन रहा है...",
		"processing":         "प्रोसेसिंग...",
		"you_said":           "आपने कहा:",
		"translated":         "अनुवादित:",
		"response":           "जवाब:",
		"help":               "सहायता चाहिए?",
		"emergency":          "आपातकाल: 100",
		"new_session":        "नया सत्र",
		"active_sessions":    "सक्रिय सत्र",
		"completed_sessions": "पूर्ण सत्र",

		KeyApology:             "क्षमा करें, एक त्रुटि हुई। कृपया पुनः प्रयास करें या सहायता के लिए किसी अधिकारी से संपर्क करें।",
		KeyTranscriptionFailed: "हम रिकॉर्डिंग समझ नहीं सके। कृपया स्पष्ट बोलें और पुनः प्रयास करें।",
		KeyInvalidCode:         "दर्ज किया गया कोड मान्य नहीं है। कृपया पुनः प्रयास करें।",
		KeyTurnInProgress:      "कृपया प्रतीक्षा करें, हम अभी आपके पिछले प्रश्न पर काम कर रहे हैं।",
	},
}

// Message returns the text for key in language, falling back to English and
// then to the key itself.
func Message(key, language string) string {
	if l, ok := Resolve(language); ok {
		if text, ok := messages[l.Code][key]; ok {
			return text
		}
	}
	if text, ok := messages[DefaultLanguage][key]; ok {
		return text
	}
	return key
}

// Catalog returns every message key rendered for language.
func Catalog(language string) map[string]string {
	out := make(map[string]string, len(messages[DefaultLanguage]))
	for key := range messages[DefaultLanguage] {
		out[key] = Message(key, language)
	}
	return out
}
