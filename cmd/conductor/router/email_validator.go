package router

// EmailMessage is the normalized inbound email envelope delivered by the
// external ingest process
type EmailMessage struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// validateEmail evaluates sender/subject/recipient patterns from a row's
// trigger_config against the message
func validateEmail(config map[string]interface{}, msg *EmailMessage) bool {
	if pattern := asString(config, "sender_filter"); pattern != "" {
		if !matchWildcard(pattern, msg.From) {
			return false
		}
	}
	if pattern := asString(config, "subject_filter"); pattern != "" {
		if !matchWildcard(pattern, msg.Subject) {
			return false
		}
	}
	if pattern := asString(config, "recipient_filter"); pattern != "" {
		if !matchWildcard(pattern, msg.To) {
			return false
		}
	}
	return true
}
