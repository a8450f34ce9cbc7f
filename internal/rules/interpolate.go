package rules

import (
	"regexp"
	"strconv"
	"strings"
)

var interpolationRef = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z_][a-zA-Z0-9_]*)?)\}`)

// Interpolate expands ${...} references in a template against the rule
// context. Supported reference forms:
//
//	${email.<field>}      id, subject, from, body, htmlBody
//	${senderInfo.<field>} email, name
//	${senderScore}
//	${variables.<name>}
//
// Unresolved references are left verbatim so malformed templates stay
// visible instead of being silently eaten. No nesting, no escaping.
func Interpolate(template string, rc *RuleContext, vars map[string]any) string {
	if !strings.Contains(template, "${") {
		return template
	}
	return interpolationRef.ReplaceAllStringFunc(template, func(ref string) string {
		path := ref[2 : len(ref)-1]
		if v, ok := resolveRef(path, rc, vars); ok {
			return v
		}
		return ref
	})
}

func resolveRef(path string, rc *RuleContext, vars map[string]any) (string, bool) {
	if path == "senderScore" {
		return strconv.FormatFloat(rc.SenderScore, 'f', -1, 64), true
	}

	ns, field, ok := strings.Cut(path, ".")
	if !ok {
		return "", false
	}

	switch ns {
	case "email":
		switch field {
		case "id":
			return rc.Email.ID, true
		case "subject":
			return rc.Email.Subject, true
		case "from":
			return rc.Email.From, true
		case "body":
			return rc.Email.Body, true
		case "htmlBody":
			return rc.Email.HTMLBody, true
		}
	case "senderInfo":
		switch field {
		case "email":
			return rc.Sender.Email, true
		case "name":
			return rc.Sender.Name, true
		}
	case "variables":
		if vars == nil {
			return "", false
		}
		if v, present := vars[field]; present && v != nil {
			return stringify(v), true
		}
	}
	return "", false
}
