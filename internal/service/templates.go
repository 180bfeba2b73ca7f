package service

// ResponseTemplate is a canned officer reply.
type ResponseTemplate struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

const DefaultResponseType = "standard"

var responseTemplates = []ResponseTemplate{
	{Type: "standard", Label: "Standard Response", Text: "Thank you for contacting us. We have received your query and will assist you accordingly."},
	{Type: "complaint", Label: "Complaint Registration", Text: "We have registered your complaint. A reference number will be provided for tracking purposes."},
	{Type: "emergency", Label: "Emergency Response", Text: "Your emergency request has been escalated to the appropriate department. Help is on the way."},
	{Type: "information", Label: "Information Request", Text: "Based on your inquiry, here is the information you requested."},
	{Type: "redirect", Label: "Department Redirect", Text: "For this matter, please visit the appropriate department or contact the specialized unit."},
}

func ResponseTemplates() []ResponseTemplate {
	return append([]ResponseTemplate(nil), responseTemplates...)
}

func IsResponseType(t string) bool {
	for _, tmpl := range responseTemplates {
		if tmpl.Type == t {
			return true
		}
	}
	return false
}
