package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/inboxpilot/inboxpilot/internal/rules"
)

func TestParseSender(t *testing.T) {
	tests := []struct {
		name string
		from string
		want rules.SenderInfo
	}{
		{
			name: "name and address",
			from: "Alice Smith <Alice@Example.COM>",
			want: rules.SenderInfo{Email: "alice@example.com", Name: "Alice Smith"},
		},
		{
			name: "bare address",
			from: "bob@example.org",
			want: rules.SenderInfo{Email: "bob@example.org"},
		},
		{
			name: "quoted name with comma",
			from: `"Smith, Alice" <a@b.com>`,
			want: rules.SenderInfo{Email: "a@b.com", Name: "Smith, Alice"},
		},
		{
			name: "unparseable falls back to raw",
			from: "not an address at all <<",
			want: rules.SenderInfo{Email: "not an address at all <<"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSender(tt.from))
		})
	}
}

func TestMetadataEmail(t *testing.T) {
	msg := &gmail.Message{
		Id: "msg-9",
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "Hello"},
				{Name: "from", Value: "Alice <a@b.com>"},
			},
		},
	}

	e := metadataEmail(msg)
	assert.Equal(t, "msg-9", e.ID)
	assert.Equal(t, "Hello", e.Subject)
	assert.Equal(t, "Alice <a@b.com>", e.From, "header lookup is case-insensitive")
	assert.Equal(t, rules.BodyNotLoaded, e.Body)
	assert.False(t, e.ContentLoaded())
}

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestExtractBodyMultipart(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "text/plain",
				Body:     &gmail.MessagePartBody{Data: b64("plain text body")},
			},
			{
				MimeType: "multipart/related",
				Parts: []*gmail.MessagePart{
					{
						MimeType: "text/html",
						Body:     &gmail.MessagePartBody{Data: b64("<p>html body</p>")},
					},
				},
			},
		},
	}

	assert.Equal(t, "plain text body", extractBody(payload, "text/plain"))
	assert.Equal(t, "<p>html body</p>", extractBody(payload, "text/html"))
}

func TestExtractBodyTopLevel(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "text/plain",
		Body:     &gmail.MessagePartBody{Data: b64("short and simple")},
	}
	assert.Equal(t, "short and simple", extractBody(payload, "text/plain"))
	assert.Empty(t, extractBody(payload, "text/html"))
}

func TestExtractBodyStandardBase64Fallback(t *testing.T) {
	// "ünïcode?" encoded with standard base64 contains "+" and "/" which
	// base64url rejects.
	raw := "\xfb\xff~subject?"
	payload := &gmail.MessagePart{
		MimeType: "text/plain",
		Body:     &gmail.MessagePartBody{Data: base64.StdEncoding.EncodeToString([]byte(raw))},
	}
	assert.Equal(t, raw, extractBody(payload, "text/plain"))
}

func TestExtractBodyNilPayload(t *testing.T) {
	assert.Empty(t, extractBody(nil, "text/plain"))
}
