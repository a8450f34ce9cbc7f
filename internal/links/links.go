package links

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/inboxpilot/inboxpilot/internal/rules"
)

// Regular expressions for locating URLs in email bodies
var (
	// Anchor hrefs in HTML bodies: <a href="https://...">
	hrefRegex = regexp.MustCompile(`(?i)<a[^>]+href=["']?(https?://[^"'\s>]+)`)

	// Bare URLs in plain-text bodies
	bareURLRegex = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
)

// Trailing punctuation that is part of the surrounding sentence, not the URL.
const trailingPunct = ".,;:!?"

// Extract parses the links from an email. When an HTML body is present its
// anchor hrefs are used; the plain-text body is scanned for bare URLs
// otherwise. Duplicate URLs are reported once, in first-seen order.
func Extract(body, htmlBody string) []rules.Link {
	var raw []string
	if htmlBody != "" {
		for _, m := range hrefRegex.FindAllStringSubmatch(htmlBody, -1) {
			raw = append(raw, m[1])
		}
	} else {
		raw = bareURLRegex.FindAllString(body, -1)
	}

	var out []rules.Link
	seen := make(map[string]bool)
	for _, u := range raw {
		u = strings.TrimRight(u, trailingPunct)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true

		domain, err := Domain(u)
		if err != nil {
			continue
		}
		out = append(out, rules.Link{URL: u, Domain: domain})
	}
	return out
}

// Domain returns the lowercased host of a URL, with any www. prefix and port
// removed.
func Domain(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return host, nil
}

// Domains returns the unique link domains in first-seen order.
func Domains(ls []rules.Link) []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range ls {
		if l.Domain == "" || seen[l.Domain] {
			continue
		}
		seen[l.Domain] = true
		out = append(out, l.Domain)
	}
	return out
}
