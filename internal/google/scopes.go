package google

// Scopes are the Google OAuth scopes inboxpilot requests. gmail.modify covers
// everything triage needs: reading messages, marking them read and trashing
// them. Full mail.google.com access is deliberately not requested.
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.modify",
}
