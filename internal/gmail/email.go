package gmail

import (
	"encoding/base64"
	"net/mail"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/inboxpilot/inboxpilot/internal/rules"
)

// metadataEmail converts a metadata-format message into an engine email. The
// body carries the not-loaded sentinel until explicitly fetched.
func metadataEmail(msg *gmail.Message) rules.Email {
	return rules.Email{
		ID:      msg.Id,
		Subject: HeaderValue(msg, "Subject"),
		From:    HeaderValue(msg, "From"),
		Body:    rules.BodyNotLoaded,
	}
}

// HeaderValue returns the first value of a payload header, case-insensitive.
func HeaderValue(msg *gmail.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// ParseSender derives the sender identity from a From header. Headers that
// do not parse as an address fall back to the raw string as the email.
func ParseSender(from string) rules.SenderInfo {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return rules.SenderInfo{Email: strings.TrimSpace(from)}
	}
	return rules.SenderInfo{
		Email: strings.ToLower(addr.Address),
		Name:  addr.Name,
	}
}

// extractBody walks the message parts for the first body of the wanted MIME
// type and decodes it. Gmail uses base64url; some senders produce standard
// base64, so that is tried second.
func extractBody(payload *gmail.MessagePart, mimeType string) string {
	var encoded string
	walkParts(payload, func(part *gmail.MessagePart) {
		if encoded == "" && part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
			encoded = part.Body.Data
		}
	})
	if encoded == "" {
		return ""
	}

	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

// walkParts visits a part and all nested subparts.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, sub := range part.Parts {
		walkParts(sub, fn)
	}
}
