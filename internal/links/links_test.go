package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxpilot/inboxpilot/internal/rules"
)

func TestExtractFromHTML(t *testing.T) {
	html := `<p>See <a href="https://news.example.com/post?id=1">the post</a>
and <a href='https://www.shop.example/item'>this item</a>
and <A HREF="https://news.example.com/post?id=1">again</A></p>`

	got := Extract("ignored when html present https://hidden.example", html)
	require.Len(t, got, 2)
	assert.Equal(t, rules.Link{URL: "https://news.example.com/post?id=1", Domain: "news.example.com"}, got[0])
	assert.Equal(t, rules.Link{URL: "https://www.shop.example/item", Domain: "shop.example"}, got[1])
}

func TestExtractFromPlainText(t *testing.T) {
	body := `Check https://docs.example.org/guide, then http://example.net:8080/a.
No link here. Again: https://docs.example.org/guide`

	got := Extract(body, "")
	require.Len(t, got, 2)
	assert.Equal(t, "https://docs.example.org/guide", got[0].URL)
	assert.Equal(t, "docs.example.org", got[0].Domain)
	assert.Equal(t, "example.net", got[1].Domain, "port must be stripped from the domain")
}

func TestExtractEmpty(t *testing.T) {
	assert.Empty(t, Extract("no links at all", ""))
	assert.Empty(t, Extract("", ""))
}

func TestDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://WWW.Example.COM/path", "example.com"},
		{"http://sub.example.org:9000/x", "sub.example.org"},
		{"https://example.net", "example.net"},
	}
	for _, tt := range tests {
		got, err := Domain(tt.url)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestDomains(t *testing.T) {
	ls := []rules.Link{
		{URL: "a", Domain: "one.example"},
		{URL: "b", Domain: "two.example"},
		{URL: "c", Domain: "one.example"},
	}
	assert.Equal(t, []string{"one.example", "two.example"}, Domains(ls))
}
